package cypher

import (
	"fmt"
	"strings"

	"github.com/roach88/graphledger/internal/descriptor"
	"github.com/roach88/graphledger/internal/sequence"
)

// rowVar is the index variable of a row-wise statement.
const rowVar = "row"

// ChangeLog collects (:M_ChangeLog) creation fragments for one statement.
//
// Every entry calls the sequence provider exactly once. The create entry of
// an entity is allocated before the entries for its properties, so the
// entity's createChangeLog marker and its create entry share the same
// number N and its properties get N+1, N+2, ...
//
// A row-wise log writes its entries once per matched row. Entry j of row r
// reads its number from $numbers[r][j] and its GUID from $guids[r][j]; both
// lists are bound by Plan.Bind after the rows are counted.
type ChangeLog struct {
	b       *Builder
	seq     sequence.Provider
	guids   GUIDGenerator
	user    string
	userRef string

	// item is the GUID expression of the entity being created, set by
	// CreateNode / CreateRelation and read by Property.
	item string

	rowWise    bool
	numbersRef string
	guidsRef   string
	itemsRef   string

	frags   []string
	numbers []int64
}

type logField struct {
	key  string
	expr string
}

func newChangeLog(b *Builder, seq sequence.Provider, guids GUIDGenerator, user string) *ChangeLog {
	return &ChangeLog{b: b, seq: seq, guids: guids, user: user}
}

func newRowLog(b *Builder, seq sequence.Provider, guids GUIDGenerator, user string) *ChangeLog {
	l := newChangeLog(b, seq, guids, user)
	l.rowWise = true
	return l
}

// newItem returns the GUID expression for an entity about to be created:
// the named $item parameter, or one GUID per row.
func (l *ChangeLog) newItem() string {
	if !l.rowWise {
		return l.b.Named("item", l.guids.Generate())
	}
	if l.itemsRef == "" {
		l.itemsRef = l.b.Placeholder()
	}
	return l.itemsRef + "[" + rowVar + "]"
}

// CreateNode records the creation of a node whose GUID is held by item and
// returns the expression of its number.
func (l *ChangeLog) CreateNode(label, item string) (string, error) {
	l.item = item
	return l.create(descriptor.KindNode, label, item)
}

// CreateRelation records the creation of a relationship between the
// entities in from and to. The endpoint GUIDs are stored on the entry.
func (l *ChangeLog) CreateRelation(label, item string, from, to descriptor.Slot) (string, error) {
	l.item = item
	return l.create(descriptor.KindRelation, label, item,
		logField{"from_GUID", string(from) + ".M_GUID"},
		logField{"to_GUID", string(to) + ".M_GUID"},
	)
}

func (l *ChangeLog) create(kind descriptor.Kind, label, item string, extra ...logField) (string, error) {
	numRef, err := l.number()
	if err != nil {
		return "", err
	}
	fields := []logField{
		{"number", numRef},
		{"item_GUID", item},
		{"user_GUID", l.userParam()},
		{"action", quoteLiteral(string(descriptor.ActionCreate))},
		{"itemType", quoteLiteral(string(kind))},
		{"label", l.b.Param(label)},
	}
	fields = append(fields, extra...)
	l.add(fields)
	return numRef, nil
}

// Property records one attribute set while creating the current entity.
// valueRef is the parameter already holding the value.
func (l *ChangeLog) Property(slot descriptor.Slot, key, valueRef string) error {
	if l.item == "" {
		return fmt.Errorf("change log: property %q recorded before the entity's create entry", key)
	}
	return l.change(slot, l.item, key, valueRef)
}

// Change records one attribute set on an existing entity. The entity's
// GUID is read from slot.M_GUID at execution time.
func (l *ChangeLog) Change(slot descriptor.Slot, key, valueRef string) error {
	return l.change(slot, string(slot)+".M_GUID", key, valueRef)
}

func (l *ChangeLog) change(slot descriptor.Slot, item, key, valueRef string) error {
	kind, ok := slot.Kind()
	if !ok {
		return fmt.Errorf("change log: %q is not a slot", slot)
	}
	numRef, err := l.number()
	if err != nil {
		return err
	}
	l.add([]logField{
		{"number", numRef},
		{"item_GUID", item},
		{"user_GUID", l.userParam()},
		{"action", quoteLiteral(string(descriptor.ActionChange))},
		{"itemType", quoteLiteral(string(kind))},
		{"attribute", l.b.Param(key)},
		{"value", valueRef},
	})
	return nil
}

// Delete records the deletion of an entity whose GUID was captured in the
// variable item before the delete ran.
func (l *ChangeLog) Delete(kind descriptor.Kind, item string) error {
	numRef, err := l.number()
	if err != nil {
		return err
	}
	l.add([]logField{
		{"number", numRef},
		{"item_GUID", item},
		{"user_GUID", l.userParam()},
		{"action", quoteLiteral(string(descriptor.ActionDelete))},
		{"itemType", quoteLiteral(string(kind))},
	})
	return nil
}

// Numbers returns the numbers allocated at compile time, in order. A
// row-wise log allocates nothing until Plan.Bind.
func (l *ChangeLog) Numbers() []int64 {
	return l.numbers
}

// Fragments returns the comma-joined creation patterns.
func (l *ChangeLog) Fragments() string {
	return strings.Join(l.frags, ", ")
}

// Clause renders "WITH vars CREATE fragments", or "" when nothing was
// recorded. A row-wise log keeps the row index in scope.
func (l *ChangeLog) Clause(vars ...descriptor.Slot) string {
	if len(l.frags) == 0 {
		return ""
	}
	names := make([]string, 0, len(vars)+1)
	for _, v := range vars {
		names = append(names, string(v))
	}
	if l.rowWise {
		names = append(names, rowVar)
	}
	return "WITH " + strings.Join(names, ", ") + " CREATE " + l.Fragments()
}

// number returns the expression of the next entry's number.
func (l *ChangeLog) number() (string, error) {
	if l.rowWise {
		if l.numbersRef == "" {
			l.numbersRef = l.b.Placeholder()
		}
		return l.rowRef(l.numbersRef), nil
	}
	n, err := l.seq.Next()
	if err != nil {
		return "", &SequenceError{Err: err}
	}
	l.numbers = append(l.numbers, n)
	return l.b.Param(n), nil
}

// rowRef indexes a per-row list parameter for the entry being added.
func (l *ChangeLog) rowRef(list string) string {
	return fmt.Sprintf("%s[%s][%d]", list, rowVar, len(l.frags))
}

func (l *ChangeLog) userParam() string {
	if l.userRef == "" {
		l.userRef = l.b.Named("user", l.user)
	}
	return l.userRef
}

// add renders one entry. Every entry carries its own GUID.
func (l *ChangeLog) add(fields []logField) {
	var guid string
	if l.rowWise {
		if l.guidsRef == "" {
			l.guidsRef = l.b.Placeholder()
		}
		guid = l.rowRef(l.guidsRef)
	} else {
		guid = l.b.Param(l.guids.Generate())
	}
	fields = append(fields, logField{"M_GUID", guid})

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.key + ": " + f.expr
	}
	l.frags = append(l.frags, fmt.Sprintf("(log%d:%s {%s})", len(l.frags), descriptor.ChangeLogLabel, strings.Join(parts, ", ")))
}

// quoteLiteral is only used for fixed vocabulary (actions, kinds), never
// for caller data.
func quoteLiteral(s string) string {
	return "'" + s + "'"
}
