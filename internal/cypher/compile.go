// Package cypher compiles descriptors into parameterized Cypher statements.
//
// A Statement is one round trip to the store. Mutating statements also
// create their change log entries inside the same statement, so a log row
// exists only when the mutation it describes matched something. Mutations
// that can match many rows compile to a Plan: a count, then a statement
// that writes each row's entries under numbers of its own.
package cypher

import (
	"fmt"
	"strings"

	"github.com/roach88/graphledger/internal/descriptor"
	"github.com/roach88/graphledger/internal/sequence"
)

// GUIDGenerator creates entity and change log GUIDs.
type GUIDGenerator interface {
	Generate() string
}

// Compiler turns descriptors into statements, pulling change log numbers
// from the injected sequence provider.
type Compiler struct {
	seq   sequence.Provider
	guids GUIDGenerator
}

// NewCompiler creates a Compiler.
func NewCompiler(seq sequence.Provider, guids GUIDGenerator) *Compiler {
	return &Compiler{seq: seq, guids: guids}
}

func (c *Compiler) changeLog(b *Builder, user string) *ChangeLog {
	return newChangeLog(b, c.seq, c.guids, user)
}

func (c *Compiler) rowLog(b *Builder, user string) *ChangeLog {
	return newRowLog(b, c.seq, c.guids, user)
}

// CreateNode creates one node with a fresh GUID, one create entry and one
// change entry per property.
func (c *Compiler) CreateNode(e *descriptor.Entity, user string) (Statement, error) {
	if e == nil {
		e = &descriptor.Entity{}
	}
	b := NewBuilder()
	log := c.changeLog(b, user)

	item := log.newItem()
	num, err := log.CreateNode(e.Type, item)
	if err != nil {
		return Statement{}, err
	}
	node, err := b.Pattern(e, "", descriptor.SlotNode, log)
	if err != nil {
		return Statement{}, err
	}

	return b.statement(log.Numbers(),
		"CREATE ("+node+"), "+log.Fragments(),
		fmt.Sprintf("SET node.M_GUID = %s, node.createChangeLog = %s", item, num),
		b.Return(false),
	), nil
}

// DeleteNode detaches and deletes every matching node. Each delete entry is
// created after its delete, from the GUID captured before it.
func (c *Compiler) DeleteNode(e *descriptor.Entity, user string) (*Plan, error) {
	b := NewBuilder()
	log := c.rowLog(b, user)

	node, err := b.Pattern(e, "where", descriptor.SlotNode, nil)
	if err != nil {
		return nil, err
	}
	if err := log.Delete(descriptor.KindNode, "id"); err != nil {
		return nil, err
	}

	return rowWise(b, log,
		[]string{"MATCH (" + node + ")", b.Where("where")},
		[]descriptor.Slot{descriptor.SlotNode},
		"WITH node, row, node.M_GUID AS id DETACH DELETE node",
		"CREATE "+log.Fragments(),
	), nil
}

// ChangeNode finds nodes and applies the requested changes, logging them
// once per matched node. Merge is not handled here; see engine.
func (c *Compiler) ChangeNode(p *descriptor.Pattern, user string) (*Plan, error) {
	b := NewBuilder()
	log := c.rowLog(b, user)

	node, err := b.Pattern(p.Entity(descriptor.SlotNode), "where", descriptor.SlotNode, nil)
	if err != nil {
		return nil, err
	}
	set, err := c.set(b, log, p.Changes, descriptor.OpChangeNode)
	if err != nil {
		return nil, err
	}

	match := []string{"MATCH (" + node + ")", b.Where("where")}
	tail := []string{
		b.Return(p.Distinct),
		b.OrderBy(descriptor.ResolveOrder(p.Order, descriptor.OpChangeNode.DefaultSlot())),
		b.Limit(p.Limit),
	}
	if set == "" {
		return Ready(b.statement(nil, append(match, tail...)...)), nil
	}
	return rowWise(b, log, match, []descriptor.Slot{descriptor.SlotNode},
		append([]string{set, log.Clause(descriptor.SlotNode)}, tail...)...), nil
}

// ProbeNode matches the node pattern without changing anything.
func (c *Compiler) ProbeNode(p *descriptor.Pattern) (Statement, error) {
	b := NewBuilder()
	node, err := b.Pattern(p.Entity(descriptor.SlotNode), "where", descriptor.SlotNode, nil)
	if err != nil {
		return Statement{}, err
	}
	return b.statement(nil,
		"MATCH ("+node+")",
		b.Where("where"),
		"RETURN node",
	), nil
}

// CreateRelation creates one relationship between every pair of matching
// endpoints. Endpoints are matched, never created. Each relationship gets
// its own GUID and its own create and property entries.
func (c *Compiler) CreateRelation(p *descriptor.Pattern, user string) (*Plan, error) {
	b := NewBuilder()
	log := c.rowLog(b, user)

	rel := p.Entity(descriptor.SlotRel)
	item := log.newItem()
	num, err := log.CreateRelation(rel.Type, item, descriptor.SlotFrom, descriptor.SlotTo)
	if err != nil {
		return nil, err
	}

	from, err := b.Pattern(p.Entity(descriptor.SlotFrom), "where", descriptor.SlotFrom, nil)
	if err != nil {
		return nil, err
	}
	to, err := b.Pattern(p.Entity(descriptor.SlotTo), "where", descriptor.SlotTo, nil)
	if err != nil {
		return nil, err
	}
	relText, err := b.Pattern(rel, "", descriptor.SlotRel, log)
	if err != nil {
		return nil, err
	}

	return rowWise(b, log,
		[]string{"MATCH (" + from + "), (" + to + ")", b.Where("where")},
		[]descriptor.Slot{descriptor.SlotFrom, descriptor.SlotTo},
		"CREATE (from)-["+relText+"]->(to), "+log.Fragments(),
		fmt.Sprintf("SET rel.M_GUID = %s, rel.createChangeLog = %s", item, num),
		b.Return(p.Distinct),
	), nil
}

// DeleteRelation deletes every matching relationship and logs each delete.
// The deleted relationship itself is not projected.
func (c *Compiler) DeleteRelation(p *descriptor.Pattern, user string) (*Plan, error) {
	b := NewBuilder()
	log := c.rowLog(b, user)

	from, to, rel, err := c.triple(b, p, "where", "where")
	if err != nil {
		return nil, err
	}
	if err := log.Delete(descriptor.KindRelation, "id"); err != nil {
		return nil, err
	}

	return rowWise(b, log,
		[]string{"MATCH (" + from + ")-[" + rel + "]->(" + to + ")", b.Where("where")},
		[]descriptor.Slot{descriptor.SlotFrom, descriptor.SlotRel, descriptor.SlotTo},
		"WITH from, rel, to, row, rel.M_GUID AS id DELETE rel",
		"CREATE "+log.Fragments(),
		b.Return(p.Distinct, descriptor.SlotRel),
	), nil
}

// ChangeRelation finds relationships between matching endpoints and applies
// the requested changes. It always projects something so one row per match
// comes back.
func (c *Compiler) ChangeRelation(p *descriptor.Pattern, user string) (*Plan, error) {
	b := NewBuilder()
	log := c.rowLog(b, user)

	from, to, rel, err := c.triple(b, p, "nodes", "rel")
	if err != nil {
		return nil, err
	}
	set, err := c.set(b, log, p.Changes, descriptor.OpChangeRelation)
	if err != nil {
		return nil, err
	}

	ret := b.Return(p.Distinct)
	if ret == "" {
		ret = "RETURN null"
	}

	match := []string{
		"MATCH (" + from + "), (" + to + ")",
		b.Where("nodes"),
		"MATCH (from)-[" + rel + "]->(to)",
		b.Where("rel"),
	}
	tail := []string{
		ret,
		b.OrderBy(descriptor.ResolveOrder(p.Order, descriptor.OpChangeRelation.DefaultSlot())),
		b.Limit(p.Limit),
	}
	if set == "" {
		return Ready(b.statement(nil, append(match, tail...)...)), nil
	}
	return rowWise(b, log, match,
		[]descriptor.Slot{descriptor.SlotFrom, descriptor.SlotRel, descriptor.SlotTo},
		append([]string{set, log.Clause(descriptor.SlotFrom, descriptor.SlotRel, descriptor.SlotTo)}, tail...)...), nil
}

// ProbeRelation matches the full from-rel-to pattern and returns rel.
func (c *Compiler) ProbeRelation(p *descriptor.Pattern) (Statement, error) {
	b := NewBuilder()
	from, to, rel, err := c.triple(b, p, "nodes", "rel")
	if err != nil {
		return Statement{}, err
	}
	return b.statement(nil,
		"MATCH ("+from+"), ("+to+")",
		b.Where("nodes"),
		"MATCH (from)-["+rel+"]->(to)",
		b.Where("rel"),
		"RETURN rel",
	), nil
}

// MergeEndpoints matches the two endpoints of a relationship merge and
// applies the endpoint-targeted changes. changes must only target from/to.
func (c *Compiler) MergeEndpoints(p *descriptor.Pattern, changes []descriptor.Change, user string) (*Plan, error) {
	b := NewBuilder()
	log := c.rowLog(b, user)

	from, err := b.Pattern(p.Entity(descriptor.SlotFrom), "nodes", descriptor.SlotFrom, nil)
	if err != nil {
		return nil, err
	}
	to, err := b.Pattern(p.Entity(descriptor.SlotTo), "nodes", descriptor.SlotTo, nil)
	if err != nil {
		return nil, err
	}
	set, err := c.set(b, log, changes, descriptor.OpChangeRelation)
	if err != nil {
		return nil, err
	}

	match := []string{"MATCH (" + from + "), (" + to + ")", b.Where("nodes")}
	if set == "" {
		return Ready(b.statement(nil, append(match, "RETURN from, to")...)), nil
	}
	return rowWise(b, log, match,
		[]descriptor.Slot{descriptor.SlotFrom, descriptor.SlotTo},
		set,
		log.Clause(descriptor.SlotFrom, descriptor.SlotTo),
		"RETURN from, to",
	), nil
}

// FindOptionalRelation matches the required node and, optionally, one
// adjacent relationship and node. A required node with no neighbour still
// yields one row, with rel and optional null.
func (c *Compiler) FindOptionalRelation(p *descriptor.Pattern, user string) (*Plan, error) {
	b := NewBuilder()
	log := c.rowLog(b, user)

	required, err := b.Pattern(p.Entity(descriptor.SlotRequired), "required", descriptor.SlotRequired, nil)
	if err != nil {
		return nil, err
	}
	optional, err := b.Pattern(p.Entity(descriptor.SlotOptional), "optional", descriptor.SlotOptional, nil)
	if err != nil {
		return nil, err
	}
	relEntity := p.Entity(descriptor.SlotRel)
	rel, err := b.Pattern(relEntity, "optional", descriptor.SlotRel, nil)
	if err != nil {
		return nil, err
	}
	set, err := c.set(b, log, p.Changes, descriptor.OpFindOptionalRelation)
	if err != nil {
		return nil, err
	}

	arrow := "-[" + rel + "]->"
	if relEntity.Direction == "left" {
		arrow = "<-[" + rel + "]-"
	}

	match := []string{
		"MATCH (" + required + ")",
		b.Where("required"),
		"OPTIONAL MATCH (required)" + arrow + "(" + optional + ")",
		b.Where("optional"),
	}
	tail := []string{
		b.Return(p.Distinct),
		b.OrderBy(descriptor.ResolveOrder(p.Order, descriptor.OpFindOptionalRelation.DefaultSlot())),
		b.Limit(p.Limit),
	}
	if set == "" {
		return Ready(b.statement(nil, append(match, tail...)...)), nil
	}
	return rowWise(b, log, match,
		[]descriptor.Slot{descriptor.SlotRequired, descriptor.SlotRel, descriptor.SlotOptional},
		append([]string{set, log.Clause(descriptor.SlotRequired, descriptor.SlotRel, descriptor.SlotOptional)}, tail...)...), nil
}

// ChangeTwoRelPattern matches the chain start-rel1->middle-rel2->end. All
// five slots share one filter bucket and one change scope.
func (c *Compiler) ChangeTwoRelPattern(p *descriptor.Pattern, user string) (*Plan, error) {
	b := NewBuilder()
	log := c.rowLog(b, user)

	slots := descriptor.OpChangeTwoRelPattern.Slots()
	parts := make(map[descriptor.Slot]string, len(slots))
	for _, slot := range slots {
		text, err := b.Pattern(p.Entity(slot), "where", slot, nil)
		if err != nil {
			return nil, err
		}
		parts[slot] = text
	}
	set, err := c.set(b, log, p.Changes, descriptor.OpChangeTwoRelPattern)
	if err != nil {
		return nil, err
	}

	match := []string{
		fmt.Sprintf("MATCH (%s)-[%s]->(%s)-[%s]->(%s)",
			parts[descriptor.SlotStart], parts[descriptor.SlotRel1], parts[descriptor.SlotMiddle],
			parts[descriptor.SlotRel2], parts[descriptor.SlotEnd]),
		b.Where("where"),
	}
	tail := []string{
		b.Return(p.Distinct),
		b.OrderBy(descriptor.ResolveOrder(p.Order, descriptor.OpChangeTwoRelPattern.DefaultSlot())),
		b.Limit(p.Limit),
	}
	if set == "" {
		return Ready(b.statement(nil, append(match, tail...)...)), nil
	}
	vars := []descriptor.Slot{descriptor.SlotStart, descriptor.SlotMiddle, descriptor.SlotEnd, descriptor.SlotRel1, descriptor.SlotRel2}
	return rowWise(b, log, match, vars,
		append([]string{set, log.Clause(vars...)}, tail...)...), nil
}

// triple renders from, to and rel in that order (the projection order of
// every relationship operation).
func (c *Compiler) triple(b *Builder, p *descriptor.Pattern, nodeBucket, relBucket string) (from, to, rel string, err error) {
	if from, err = b.Pattern(p.Entity(descriptor.SlotFrom), nodeBucket, descriptor.SlotFrom, nil); err != nil {
		return
	}
	if to, err = b.Pattern(p.Entity(descriptor.SlotTo), nodeBucket, descriptor.SlotTo, nil); err != nil {
		return
	}
	rel, err = b.Pattern(p.Entity(descriptor.SlotRel), relBucket, descriptor.SlotRel, nil)
	return
}

// set renders the SET clause and records one change entry per change.
func (c *Compiler) set(b *Builder, log *ChangeLog, changes []descriptor.Change, op descriptor.Operation) (string, error) {
	if len(changes) == 0 {
		return "", nil
	}
	assignments := make([]string, 0, len(changes))
	for _, ch := range descriptor.ResolveChanges(changes, op.DefaultSlot()) {
		ref := b.Param(ch.Literal())
		assignments = append(assignments, fmt.Sprintf("%s.%s = %s", ch.Item, Ident(ch.Property), ref))
		if err := log.Change(ch.Item, ch.Property, ref); err != nil {
			return "", err
		}
	}
	return "SET " + strings.Join(assignments, ", "), nil
}
