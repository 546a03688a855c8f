package descriptor

// Operation is the closed set of operations the engine dispatches on.
type Operation int

const (
	OpUnknown Operation = iota
	OpCreateNode
	OpDeleteNode
	OpChangeNode
	OpCreateRelation
	OpDeleteRelation
	OpChangeRelation
	OpFindOptionalRelation
	OpChangeTwoRelPattern
	OpTableNodeSearch
	OpGetMetaData
	OpGetChangeLogs
)

// Operations lists every known operation in declaration order.
var Operations = []Operation{
	OpCreateNode,
	OpDeleteNode,
	OpChangeNode,
	OpCreateRelation,
	OpDeleteRelation,
	OpChangeRelation,
	OpFindOptionalRelation,
	OpChangeTwoRelPattern,
	OpTableNodeSearch,
	OpGetMetaData,
	OpGetChangeLogs,
}

var operationNames = map[Operation]string{
	OpCreateNode:           "createNode",
	OpDeleteNode:           "deleteNode",
	OpChangeNode:           "changeNode",
	OpCreateRelation:       "createRelation",
	OpDeleteRelation:       "deleteRelation",
	OpChangeRelation:       "changeRelation",
	OpFindOptionalRelation: "findOptionalRelation",
	OpChangeTwoRelPattern:  "changeTwoRelPattern",
	OpTableNodeSearch:      "tableNodeSearch",
	OpGetMetaData:          "getMetaData",
	OpGetChangeLogs:        "getChangeLogs",
}

// ParseOperation maps a wire name to an Operation.
func ParseOperation(name string) (Operation, bool) {
	for op, n := range operationNames {
		if n == name {
			return op, true
		}
	}
	return OpUnknown, false
}

// String returns the wire name.
func (o Operation) String() string {
	if n, ok := operationNames[o]; ok {
		return n
	}
	return "unknown"
}

// Slots returns the slots an operation reads, in the order they are
// compiled. The first slot is the default target of changes and ordering.
func (o Operation) Slots() []Slot {
	switch o {
	case OpCreateNode, OpDeleteNode, OpChangeNode:
		return []Slot{SlotNode}
	case OpCreateRelation, OpDeleteRelation, OpChangeRelation:
		return []Slot{SlotFrom, SlotTo, SlotRel}
	case OpFindOptionalRelation:
		return []Slot{SlotRequired, SlotOptional, SlotRel}
	case OpChangeTwoRelPattern:
		return []Slot{SlotStart, SlotMiddle, SlotEnd, SlotRel1, SlotRel2}
	default:
		return nil
	}
}

// DefaultSlot is the slot a change or order entry targets when it names none.
func (o Operation) DefaultSlot() Slot {
	switch o {
	case OpChangeRelation:
		return SlotRel
	default:
		if slots := o.Slots(); len(slots) > 0 {
			return slots[0]
		}
		return SlotNode
	}
}

// Mutates reports whether the operation can write to the store.
func (o Operation) Mutates() bool {
	switch o {
	case OpTableNodeSearch, OpGetMetaData, OpGetChangeLogs, OpUnknown:
		return false
	default:
		return true
	}
}
