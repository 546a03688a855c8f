package descriptor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Entity describes one node or relationship in a pattern. Whether it is a
// node or a relationship follows from the slot it occupies.
type Entity struct {
	// Type is the node label or relationship type.
	Type string `json:"type,omitempty"`

	// ID is the store-assigned identifier. It is only ever an exact-match filter.
	ID *int64 `json:"id,omitempty"`

	// Properties are matched inline, or set when the entity is created.
	Properties Properties `json:"properties,omitempty"`

	// Merge requests find-or-create semantics.
	Merge bool `json:"merge,omitempty"`

	// Return controls projection; nil means true.
	Return *bool `json:"return,omitempty"`

	// Name is the alias the entity is returned under. Defaults to the slot name.
	Name string `json:"name,omitempty"`

	// Direction is only read on the relationship of findOptionalRelation;
	// "left" points the arrow at the required node.
	Direction string `json:"direction,omitempty"`
}

// ShouldReturn reports whether the entity is projected.
func (e *Entity) ShouldReturn() bool {
	return e == nil || e.Return == nil || *e.Return
}

// Clone returns a copy that shares no mutable state with e.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	if e.ID != nil {
		id := *e.ID
		c.ID = &id
	}
	if e.Return != nil {
		r := *e.Return
		c.Return = &r
	}
	if e.Properties != nil {
		c.Properties = make(Properties, len(e.Properties))
		copy(c.Properties, e.Properties)
	}
	return &c
}

// Change sets one attribute on one slot.
type Change struct {
	// Item is the target slot. Empty means "same as the previous change".
	Item Slot `json:"item,omitempty"`

	Property string `json:"property"`
	Value    any    `json:"value"`

	// String defaults to true: the value is sent as a string literal unless
	// the caller sets string:false.
	String *bool `json:"string,omitempty"`
}

// IsString reports whether the value is coerced to a string.
func (c Change) IsString() bool {
	return c.String == nil || *c.String
}

// Literal returns the value that is written to the store.
func (c Change) Literal() any {
	if !c.IsString() {
		return Scalar(c.Value)
	}
	return Stringify(c.Value)
}

// Stringify renders a decoded JSON value the way it is stored when a change
// is string-typed.
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return string(val)
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// Order requests ordering on one attribute.
type Order struct {
	// Item is the slot owning the attribute; empty inherits the previous entry.
	Item      Slot   `json:"item,omitempty"`
	Name      string `json:"name"`
	Direction string `json:"direction,omitempty"`
}

// Descending reports whether the order runs high to low ("D").
func (o Order) Descending() bool {
	return o.Direction == "D"
}

// ResolveChanges returns a copy of changes with every Item filled in. An
// entry without an item inherits the previous entry's item; the first one
// falls back to def.
func ResolveChanges(changes []Change, def Slot) []Change {
	out := make([]Change, len(changes))
	item := def
	for i, c := range changes {
		if c.Item != "" {
			item = c.Item
		}
		c.Item = item
		out[i] = c
	}
	return out
}

// ResolveOrder is the Order counterpart of ResolveChanges.
func ResolveOrder(order []Order, def Slot) []Order {
	out := make([]Order, len(order))
	item := def
	for i, o := range order {
		if o.Item != "" {
			item = o.Item
		}
		o.Item = item
		out[i] = o
	}
	return out
}

// Pattern is the payload of the find/update, relationship and chain
// operations. Only the slots an operation uses are read.
type Pattern struct {
	Node     *Entity `json:"node,omitempty"`
	From     *Entity `json:"from,omitempty"`
	Rel      *Entity `json:"rel,omitempty"`
	To       *Entity `json:"to,omitempty"`
	Required *Entity `json:"required,omitempty"`
	Optional *Entity `json:"optional,omitempty"`
	Start    *Entity `json:"start,omitempty"`
	Rel1     *Entity `json:"rel1,omitempty"`
	Middle   *Entity `json:"middle,omitempty"`
	Rel2     *Entity `json:"rel2,omitempty"`
	End      *Entity `json:"end,omitempty"`

	Changes  []Change `json:"changes,omitempty"`
	Order    []Order  `json:"order,omitempty"`
	Limit    Limit    `json:"limit,omitempty"`
	Distinct bool     `json:"distinct,omitempty"`
}

// Entity returns the descriptor in slot, or an empty one when the slot is
// absent. The result is never nil.
func (p *Pattern) Entity(slot Slot) *Entity {
	if e := *p.ref(slot); e != nil {
		return e
	}
	return &Entity{}
}

func (p *Pattern) ref(slot Slot) **Entity {
	switch slot {
	case SlotNode:
		return &p.Node
	case SlotFrom:
		return &p.From
	case SlotRel:
		return &p.Rel
	case SlotTo:
		return &p.To
	case SlotRequired:
		return &p.Required
	case SlotOptional:
		return &p.Optional
	case SlotStart:
		return &p.Start
	case SlotRel1:
		return &p.Rel1
	case SlotMiddle:
		return &p.Middle
	case SlotRel2:
		return &p.Rel2
	case SlotEnd:
		return &p.End
	default:
		var none *Entity
		return &none
	}
}

// Clone deep-copies the pattern so merge steps can rewrite it freely.
func (p *Pattern) Clone() *Pattern {
	c := *p
	for _, slot := range []Slot{SlotNode, SlotFrom, SlotRel, SlotTo, SlotRequired, SlotOptional, SlotStart, SlotRel1, SlotMiddle, SlotRel2, SlotEnd} {
		*c.ref(slot) = (*p.ref(slot)).Clone()
	}
	c.Changes = append([]Change(nil), p.Changes...)
	c.Order = append([]Order(nil), p.Order...)
	return &c
}

// SearchField is one column predicate of a table search.
type SearchField struct {
	Field      string `json:"-"`
	FieldType  string `json:"fieldType"`
	SearchType string `json:"searchType"`
	Value      any    `json:"value"`
}

// SearchFields keeps the caller's column order.
type SearchFields []SearchField

// UnmarshalJSON implements json.Unmarshaler, preserving key order.
func (s *SearchFields) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}
	fields := SearchFields{}
	err := decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var f SearchField
		if err := decode(raw, &f); err != nil {
			return fmt.Errorf("where %q: %w", key, err)
		}
		f.Field = key
		fields = append(fields, f)
		return nil
	})
	if err != nil {
		return err
	}
	*s = fields
	return nil
}

// OwnerFilter constrains the name of a node's owner.
type OwnerFilter struct {
	Value      string `json:"value"`
	SearchType string `json:"searchType"`
}

// TableSearch is the payload of tableNodeSearch.
type TableSearch struct {
	Type        string       `json:"type"`
	Name        string       `json:"name"`
	Where       SearchFields `json:"where,omitempty"`
	Owner       *OwnerFilter `json:"owner,omitempty"`
	Permissions string       `json:"permissions,omitempty"`
	Links       []string     `json:"links,omitempty"`
	OrderBy     []Order      `json:"orderBy,omitempty"`
	Limit       Limit        `json:"limit,omitempty"`
}

// ChangeLogQuery pages through the change log for synchronization.
type ChangeLogQuery struct {
	// External selects entries written by anyone except the caller.
	External bool `json:"external,omitempty"`

	// Count returns the number of matching entries instead of the entries.
	Count bool `json:"count,omitempty"`

	// Min is a low-water mark: only entries numbered at or above it match.
	Min *int64 `json:"min,omitempty"`

	Limit Limit `json:"limit,omitempty"`
}

// Request is one call from the dispatcher.
type Request struct {
	Function string          `json:"function"`
	Query    json.RawMessage `json:"query"`
	GUID     string          `json:"GUID"`
}

// DecodeRequest decodes a request envelope.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// DecodeEntity decodes the payload of createNode and deleteNode.
func DecodeEntity(raw json.RawMessage) (*Entity, error) {
	var e Entity
	if err := decode(raw, &e); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return &e, nil
}

// DecodePattern decodes a pattern payload.
func DecodePattern(raw json.RawMessage) (*Pattern, error) {
	var p Pattern
	if err := decode(raw, &p); err != nil {
		return nil, fmt.Errorf("decode pattern: %w", err)
	}
	return &p, nil
}

// DecodeTableSearch decodes a tableNodeSearch payload.
func DecodeTableSearch(raw json.RawMessage) (*TableSearch, error) {
	var s TableSearch
	if err := decode(raw, &s); err != nil {
		return nil, fmt.Errorf("decode table search: %w", err)
	}
	return &s, nil
}

// DecodeChangeLogQuery decodes a getChangeLogs payload.
func DecodeChangeLogQuery(raw json.RawMessage) (*ChangeLogQuery, error) {
	var q ChangeLogQuery
	if err := decode(raw, &q); err != nil {
		return nil, fmt.Errorf("decode change log query: %w", err)
	}
	return &q, nil
}

// DecodeMetaQuery decodes the query name of getMetaData, which is a bare
// JSON string.
func DecodeMetaQuery(raw json.RawMessage) (string, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return "", fmt.Errorf("decode metadata query name: %w", err)
	}
	return name, nil
}

// decode treats a missing payload as an empty object and keeps numbers as
// json.Number so integer values survive.
func decode(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
