package descriptor

// Slot names the role an entity plays inside a pattern.
type Slot string

const (
	SlotNode     Slot = "node"
	SlotFrom     Slot = "from"
	SlotTo       Slot = "to"
	SlotRel      Slot = "rel"
	SlotRequired Slot = "required"
	SlotOptional Slot = "optional"
	SlotStart    Slot = "start"
	SlotRel1     Slot = "rel1"
	SlotMiddle   Slot = "middle"
	SlotRel2     Slot = "rel2"
	SlotEnd      Slot = "end"
)

// Kind is the entity kind recorded in change log entries.
type Kind string

const (
	KindNode     Kind = "node"
	KindRelation Kind = "relation"
)

// Kind reports whether the slot holds a node or a relationship.
// The second result is false for names that are not slots.
func (s Slot) Kind() (Kind, bool) {
	switch s {
	case SlotRel, SlotRel1, SlotRel2:
		return KindRelation, true
	case SlotNode, SlotFrom, SlotTo, SlotRequired, SlotOptional, SlotStart, SlotMiddle, SlotEnd:
		return KindNode, true
	default:
		return "", false
	}
}

func (s Slot) String() string {
	return string(s)
}
