package descriptor

import (
	"fmt"
	"strings"
)

// ValidationError lists every problem found in a descriptor.
type ValidationError struct {
	Operation Operation
	Problems  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s descriptor: %s", e.Operation, strings.Join(e.Problems, "; "))
}

// ValidatePattern checks that a pattern can be compiled for op: change and
// order entries must target a slot the operation defines, and attribute
// names must be present. It does not check labels or values against any
// schema.
func ValidatePattern(op Operation, p *Pattern) error {
	v := &validator{op: op, slots: op.Slots()}

	for _, slot := range v.slots {
		v.entity(slot, p.Entity(slot))
	}
	for i, c := range ResolveChanges(p.Changes, op.DefaultSlot()) {
		if !v.allowed(c.Item) {
			v.addProblem("changes[%d]: item %q is not a slot of %s", i, c.Item, op)
		}
		if c.Property == "" {
			v.addProblem("changes[%d]: property is required", i)
		}
	}
	for i, o := range ResolveOrder(p.Order, op.DefaultSlot()) {
		if !v.allowed(o.Item) {
			v.addProblem("order[%d]: item %q is not a slot of %s", i, o.Item, op)
		}
		if o.Name == "" {
			v.addProblem("order[%d]: name is required", i)
		}
	}
	if op == OpCreateRelation && p.Entity(SlotRel).Type == "" {
		v.addProblem("rel: type is required to create a relationship")
	}
	if op == OpChangeRelation && p.Entity(SlotRel).Merge && p.Entity(SlotRel).Type == "" {
		v.addProblem("rel: type is required to merge a relationship")
	}

	return v.err()
}

// ValidateEntity checks a bare entity payload (createNode, deleteNode).
func ValidateEntity(op Operation, e *Entity) error {
	v := &validator{op: op}
	v.entity(SlotNode, e)
	return v.err()
}

// validator accumulates problems during traversal.
type validator struct {
	op       Operation
	slots    []Slot
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) allowed(s Slot) bool {
	for _, slot := range v.slots {
		if slot == s {
			return true
		}
	}
	return false
}

func (v *validator) entity(slot Slot, e *Entity) {
	if e == nil {
		return
	}
	for _, prop := range e.Properties {
		if prop.Key == "" {
			v.addProblem("%s: empty property name", slot)
		}
	}
	if e.ID != nil && *e.ID < 0 {
		v.addProblem("%s: id must not be negative", slot)
	}
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Operation: v.op, Problems: v.problems}
}
