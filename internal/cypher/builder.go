package cypher

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/graphledger/internal/descriptor"
)

// Statement is one compiled round trip to the graph store.
type Statement struct {
	Cypher string
	Params map[string]any

	// Numbers are the change log numbers allocated while compiling, in
	// allocation order. Empty for statements that write no change log.
	Numbers []int64
}

type projection struct {
	slot  descriptor.Slot
	alias string
}

// Builder accumulates the parts of one statement: parameters, the
// projection list and named filter buckets. Text is only assembled by the
// caller at the end.
//
// CRITICAL: values are always parameters, never interpolated into the text.
type Builder struct {
	params   map[string]any
	deferred map[string]bool
	next     int
	returns []projection
	filters map[string][]string
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		params:   make(map[string]any),
		deferred: make(map[string]bool),
		filters:  make(map[string][]string),
	}
}

// Param registers a positional parameter and returns its reference ($pN).
// Strings are NFC-normalized.
func (b *Builder) Param(v any) string {
	name := fmt.Sprintf("p%d", b.next)
	b.next++
	b.params[name] = canonicalValue(v)
	return "$" + name
}

// Placeholder registers a positional parameter whose value is only known
// after compilation. Plan.Bind fills it in.
func (b *Builder) Placeholder() string {
	name := fmt.Sprintf("p%d", b.next)
	b.next++
	b.params[name] = nil
	b.deferred[name] = true
	return "$" + name
}

// Named registers (or overwrites) a named parameter.
func (b *Builder) Named(name string, v any) string {
	b.params[name] = canonicalValue(v)
	return "$" + name
}

// Params returns the parameter map.
func (b *Builder) Params() map[string]any {
	return b.params
}

// boundParams copies the parameters that already have values.
func (b *Builder) boundParams() map[string]any {
	params := make(map[string]any, len(b.params))
	for name, v := range b.params {
		if !b.deferred[name] {
			params[name] = v
		}
	}
	return params
}

// Pattern renders the pattern text for the entity in slot.
//
// Side effects, in order:
//   - unless return is false, slot [AS alias] joins the projection
//   - properties render inline as {key: $pN}; with a non-nil sink each one
//     also records a change log entry
//   - an id becomes id(slot) = $pN in the named filter bucket
//
// An empty descriptor renders the bare slot name.
func (b *Builder) Pattern(e *descriptor.Entity, bucket string, slot descriptor.Slot, sink *ChangeLog) (string, error) {
	if e == nil {
		e = &descriptor.Entity{}
	}

	if e.ShouldReturn() {
		b.returns = append(b.returns, projection{slot: slot, alias: e.Name})
	}

	text := string(slot)
	if e.Type != "" {
		text += ":" + Ident(e.Type)
	}

	if len(e.Properties) > 0 {
		parts := make([]string, 0, len(e.Properties))
		for _, prop := range e.Properties {
			ref := b.Param(prop.Value)
			parts = append(parts, Ident(prop.Key)+": "+ref)
			if sink != nil {
				if err := sink.Property(slot, prop.Key, ref); err != nil {
					return "", err
				}
			}
		}
		text += " {" + strings.Join(parts, ", ") + "}"
	}

	if e.ID != nil && bucket != "" {
		b.Filter(bucket, fmt.Sprintf("id(%s) = %s", slot, b.Param(*e.ID)))
	}

	return text, nil
}

// Filter appends a predicate to a bucket. Predicates are AND-joined.
func (b *Builder) Filter(bucket, predicate string) {
	b.filters[bucket] = append(b.filters[bucket], predicate)
}

// Where renders a bucket as a WHERE clause, or "" when it is empty.
func (b *Builder) Where(bucket string) string {
	preds := b.filters[bucket]
	if len(preds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(preds, " AND ")
}

// Projection returns the projected items in registration order.
func (b *Builder) Projection(except ...descriptor.Slot) []string {
	var items []string
outer:
	for _, p := range b.returns {
		for _, s := range except {
			if p.slot == s {
				continue outer
			}
		}
		item := string(p.slot)
		if p.alias != "" {
			item += " AS " + Ident(p.alias)
		}
		items = append(items, item)
	}
	return items
}

// Return renders the RETURN clause, or "" when nothing is projected.
func (b *Builder) Return(distinct bool, except ...descriptor.Slot) string {
	items := b.Projection(except...)
	if len(items) == 0 {
		return ""
	}
	if distinct {
		return "RETURN DISTINCT " + strings.Join(items, ", ")
	}
	return "RETURN " + strings.Join(items, ", ")
}

// OrderBy renders ORDER BY from resolved order entries. prefix items are
// placed first verbatim.
func (b *Builder) OrderBy(order []descriptor.Order, prefix ...string) string {
	items := append([]string(nil), prefix...)
	for _, o := range order {
		item := Ident(string(o.Item)) + "." + Ident(o.Name)
		if o.Descending() {
			item += " DESC"
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return ""
	}
	return "ORDER BY " + strings.Join(items, ", ")
}

// Limit renders LIMIT $pN, or "" when no limit is set.
func (b *Builder) Limit(l descriptor.Limit) string {
	if !l.Set() {
		return ""
	}
	return "LIMIT " + b.Param(int64(l))
}

// statement assembles non-empty clauses with single spaces.
func (b *Builder) statement(numbers []int64, clauses ...string) Statement {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return Statement{
		Cypher:  strings.Join(parts, " "),
		Params:  b.params,
		Numbers: numbers,
	}
}

// Ident renders a label, relationship type, property key or alias. Plain
// ASCII identifiers are emitted as-is; anything else is backtick-quoted.
func Ident(name string) string {
	name = norm.NFC.String(name)
	if isPlainIdent(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func canonicalValue(v any) any {
	switch val := v.(type) {
	case string:
		return norm.NFC.String(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = canonicalValue(elem)
		}
		return out
	default:
		return v
	}
}
