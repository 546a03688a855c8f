package engine

import (
	"context"

	"github.com/roach88/graphledger/internal/cypher"
	"github.com/roach88/graphledger/internal/descriptor"
	"github.com/roach88/graphledger/internal/graph"
)

// MergeStep is one round trip of a merge.
type MergeStep int

const (
	// StepProbe matches the pattern without changing anything.
	StepProbe MergeStep = iota

	// StepUpdate applies the changes to what the probe found.
	StepUpdate

	// StepCreate creates the node with the changes folded into its
	// properties.
	StepCreate

	// StepLocateEndpoints matches both endpoints of a missing relationship
	// and applies the changes that target them.
	StepLocateEndpoints

	// StepCreateRelation creates the relationship between the located
	// endpoints with its changes folded into its properties.
	StepCreateRelation

	// StepDone ends the merge; the rows of the last step are the result.
	StepDone
)

var mergeStepNames = [...]string{
	StepProbe:           "probe",
	StepUpdate:          "update",
	StepCreate:          "create",
	StepLocateEndpoints: "locate_endpoints",
	StepCreateRelation:  "create_relation",
	StepDone:            "done",
}

func (s MergeStep) String() string {
	if s >= 0 && int(s) < len(mergeStepNames) {
		return mergeStepNames[s]
	}
	return "unknown"
}

// NextNodeMergeStep decides the step after step of a node merge from the
// number of rows step returned.
func NextNodeMergeStep(step MergeStep, rows int) MergeStep {
	if step != StepProbe {
		return StepDone
	}
	if rows > 0 {
		return StepUpdate
	}
	return StepCreate
}

// NextRelationshipMergeStep decides the step after step of a relationship
// merge from the number of rows step returned.
func NextRelationshipMergeStep(step MergeStep, rows int) MergeStep {
	switch step {
	case StepProbe:
		if rows > 0 {
			return StepUpdate
		}
		return StepLocateEndpoints
	case StepLocateEndpoints:
		if rows > 0 {
			return StepCreateRelation
		}
		return StepDone
	default:
		return StepDone
	}
}

// mergeNode runs changeNode with merge semantics: update every match, or
// create one node when nothing matches.
//
// The probe and the mutation are separate round trips. A concurrent merge
// of the same descriptor can also see no match and create a second node.
func (e *Engine) mergeNode(ctx context.Context, c *call, p *descriptor.Pattern) ([]graph.Row, error) {
	return e.merge(ctx, c, "node", NextNodeMergeStep, func(step MergeStep) (*cypher.Plan, error) {
		switch step {
		case StepProbe:
			return ready(e.compiler.ProbeNode(p))
		case StepUpdate:
			update := p.Clone()
			update.Node = update.Entity(descriptor.SlotNode)
			update.Node.Merge = false
			return e.compiler.ChangeNode(update, c.user)
		default:
			node := p.Entity(descriptor.SlotNode).Clone()
			node.Merge = false
			node.ID = nil
			for _, ch := range descriptor.ResolveChanges(p.Changes, descriptor.SlotNode) {
				node.Properties.Set(ch.Property, ch.Literal())
			}
			return ready(e.compiler.CreateNode(node, c.user))
		}
	})
}

// mergeRelation runs changeRelation with merge semantics. When the
// relationship is missing, endpoint changes are applied while locating the
// endpoints and relationship changes become properties of the new
// relationship. Endpoints are never created.
func (e *Engine) mergeRelation(ctx context.Context, c *call, p *descriptor.Pattern) ([]graph.Row, error) {
	var relChanges, endpointChanges []descriptor.Change
	for _, ch := range descriptor.ResolveChanges(p.Changes, descriptor.SlotRel) {
		if ch.Item == descriptor.SlotRel {
			relChanges = append(relChanges, ch)
		} else {
			endpointChanges = append(endpointChanges, ch)
		}
	}

	return e.merge(ctx, c, "relationship", NextRelationshipMergeStep, func(step MergeStep) (*cypher.Plan, error) {
		switch step {
		case StepProbe:
			return ready(e.compiler.ProbeRelation(p))
		case StepUpdate:
			update := p.Clone()
			update.Rel = update.Entity(descriptor.SlotRel)
			update.Rel.Merge = false
			return e.compiler.ChangeRelation(update, c.user)
		case StepLocateEndpoints:
			return e.compiler.MergeEndpoints(p, endpointChanges, c.user)
		default:
			create := p.Clone()
			rel := create.Entity(descriptor.SlotRel)
			rel.Merge = false
			rel.ID = nil
			for _, ch := range relChanges {
				rel.Properties.Set(ch.Property, ch.Literal())
			}
			create.Rel = rel
			create.Changes = nil
			return e.compiler.CreateRelation(create, c.user)
		}
	})
}

// merge drives the steps chosen by next. Cancellation is honoured up to the
// first mutating step; from there the merge runs to completion so it never
// stops between locating endpoints and creating the relationship.
func (e *Engine) merge(
	ctx context.Context,
	c *call,
	kind string,
	next func(MergeStep, int) MergeStep,
	compile func(MergeStep) (*cypher.Plan, error),
) ([]graph.Row, error) {
	var rows []graph.Row
	for step := StepProbe; step != StepDone; step = next(step, len(rows)) {
		if step != StepProbe {
			if err := ctx.Err(); err != nil {
				return nil, storeFailure(c.op, err)
			}
			ctx = context.WithoutCancel(ctx)
			e.metrics.mergeBranch(kind, step)
		}

		e.logger.Debug("merge step", "operation", c.op.String(), "kind", kind, "step", step.String())
		plan, err := compile(step)
		if err != nil {
			return nil, compileFailure(c.op, err)
		}
		if rows, err = c.runPlan(ctx, plan); err != nil {
			return nil, err
		}
	}
	return rows, nil
}
