package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/graphledger/internal/cypher"
	"github.com/roach88/graphledger/internal/descriptor"
	"github.com/roach88/graphledger/internal/graph"
	"github.com/roach88/graphledger/internal/sequence"
	"github.com/roach88/graphledger/internal/store"
)

// Journal records requests before they run and their outcomes after.
// Implemented by *store.Store.
type Journal interface {
	WriteRequest(ctx context.Context, req store.Request) (store.Request, error)
	WriteOutcome(ctx context.Context, out store.Outcome) error
}

var _ Journal = (*store.Store)(nil)

// Engine compiles requests and runs them against a graph store.
//
// Thread-safety model:
//   - Execute(): safe from any goroutine; each call opens its own session
//   - the sequence provider is the only state shared between calls
//
// INVARIANTS:
//   - every session opened by Execute is closed before it returns
//   - a change log number is taken from the provider exactly once
type Engine struct {
	store      graph.Store
	seq        sequence.Provider
	compiler   *cypher.Compiler
	guids      cypher.GUIDGenerator
	requestIDs cypher.GUIDGenerator
	journal    Journal
	metrics    *Metrics
	timeout    time.Duration
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithGUIDGenerator replaces the UUIDv7 generator used for entity and
// change log GUIDs. Tests pass a deterministic one.
func WithGUIDGenerator(g cypher.GUIDGenerator) Option {
	return func(e *Engine) {
		e.guids = g
	}
}

// WithJournal records every request and outcome in j.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithMetrics records request metrics in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTimeout bounds every Execute call. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithLogger replaces slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine over s, numbering change log entries from seq.
func New(s graph.Store, seq sequence.Provider, opts ...Option) *Engine {
	e := &Engine{
		store:      s,
		seq:        seq,
		guids:      UUIDv7Generator{},
		requestIDs: UUIDv7Generator{},
		logger:     slog.Default(),
		tracer:     otel.Tracer("graphledger"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e.compiler = cypher.NewCompiler(seq, e.guids)
	return e
}

// Execute runs one request and returns its normalized rows.
//
// A read that matches nothing and a delete of a missing entity both return
// an empty slice and no error. Every failure is an *Error.
func (e *Engine) Execute(ctx context.Context, req descriptor.Request) (rows []graph.Row, err error) {
	start := time.Now()

	op, ok := descriptor.ParseOperation(req.Function)
	if !ok {
		e.metrics.observeRequest(req.Function, string(ErrCodeUnknownOperation), time.Since(start).Seconds())
		return nil, unknownOperation(req.Function)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	ctx, span := e.tracer.Start(ctx, "graphledger."+op.String(),
		trace.WithAttributes(
			attribute.String("operation", op.String()),
			attribute.String("caller", req.GUID),
		),
	)
	defer span.End()

	c := &call{engine: e, op: op, user: req.GUID}
	defer c.close(ctx)

	requestID, err := e.journalRequest(ctx, op, req)
	if err != nil {
		return nil, err
	}

	defer func() {
		status := "ok"
		if err != nil {
			status = string(CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("rows", len(rows)))
		}
		e.metrics.observeRequest(op.String(), status, time.Since(start).Seconds())
		e.journalOutcome(ctx, requestID, c, rows, err)
	}()

	return e.dispatch(ctx, c, op, req.Query)
}

// dispatch is the closed switch over operations.
func (e *Engine) dispatch(ctx context.Context, c *call, op descriptor.Operation, raw json.RawMessage) ([]graph.Row, error) {
	switch op {
	case descriptor.OpCreateNode, descriptor.OpDeleteNode:
		ent, err := descriptor.DecodeEntity(raw)
		if err != nil {
			return nil, compileFailure(op, err)
		}
		if err := descriptor.ValidateEntity(op, ent); err != nil {
			return nil, compileFailure(op, err)
		}
		if op == descriptor.OpCreateNode {
			return c.compileAndRun(ctx, func() (*cypher.Plan, error) { return ready(e.compiler.CreateNode(ent, c.user)) })
		}
		return c.compileAndRun(ctx, func() (*cypher.Plan, error) { return e.compiler.DeleteNode(ent, c.user) })

	case descriptor.OpChangeNode:
		p, err := decodePattern(op, raw)
		if err != nil {
			return nil, err
		}
		if p.Entity(descriptor.SlotNode).Merge {
			return e.mergeNode(ctx, c, p)
		}
		return c.compileAndRun(ctx, func() (*cypher.Plan, error) { return e.compiler.ChangeNode(p, c.user) })

	case descriptor.OpCreateRelation:
		p, err := decodePattern(op, raw)
		if err != nil {
			return nil, err
		}
		return c.compileAndRun(ctx, func() (*cypher.Plan, error) { return e.compiler.CreateRelation(p, c.user) })

	case descriptor.OpDeleteRelation:
		p, err := decodePattern(op, raw)
		if err != nil {
			return nil, err
		}
		return c.compileAndRun(ctx, func() (*cypher.Plan, error) { return e.compiler.DeleteRelation(p, c.user) })

	case descriptor.OpChangeRelation:
		p, err := decodePattern(op, raw)
		if err != nil {
			return nil, err
		}
		if p.Entity(descriptor.SlotRel).Merge {
			return e.mergeRelation(ctx, c, p)
		}
		return c.compileAndRun(ctx, func() (*cypher.Plan, error) { return e.compiler.ChangeRelation(p, c.user) })

	case descriptor.OpFindOptionalRelation:
		p, err := decodePattern(op, raw)
		if err != nil {
			return nil, err
		}
		return c.compileAndRun(ctx, func() (*cypher.Plan, error) { return e.compiler.FindOptionalRelation(p, c.user) })

	case descriptor.OpChangeTwoRelPattern:
		p, err := decodePattern(op, raw)
		if err != nil {
			return nil, err
		}
		return c.compileAndRun(ctx, func() (*cypher.Plan, error) { return e.compiler.ChangeTwoRelPattern(p, c.user) })

	case descriptor.OpTableNodeSearch:
		s, err := descriptor.DecodeTableSearch(raw)
		if err != nil {
			return nil, compileFailure(op, err)
		}
		return c.compileAndRun(ctx, func() (*cypher.Plan, error) { return ready(e.compiler.TableNodeSearch(s, c.user)) })

	case descriptor.OpGetMetaData:
		name, err := descriptor.DecodeMetaQuery(raw)
		if err != nil {
			return nil, compileFailure(op, err)
		}
		return c.compileAndRun(ctx, func() (*cypher.Plan, error) { return ready(e.compiler.MetaData(name, c.user)) })

	case descriptor.OpGetChangeLogs:
		q, err := descriptor.DecodeChangeLogQuery(raw)
		if err != nil {
			return nil, compileFailure(op, err)
		}
		return c.compileAndRun(ctx, func() (*cypher.Plan, error) { return ready(e.compiler.ChangeLogs(q, c.user)) })

	default:
		return nil, unknownOperation(op.String())
	}
}

func decodePattern(op descriptor.Operation, raw json.RawMessage) (*descriptor.Pattern, error) {
	p, err := descriptor.DecodePattern(raw)
	if err != nil {
		return nil, compileFailure(op, err)
	}
	if err := descriptor.ValidatePattern(op, p); err != nil {
		return nil, compileFailure(op, err)
	}
	return p, nil
}

// SeedHighWaterMark reads the highest change log number in the store and,
// when the sequence provider can be advanced, raises it to that mark. It
// returns the mark (0 for an empty log).
func (e *Engine) SeedHighWaterMark(ctx context.Context) (int64, error) {
	session, err := e.store.Session(ctx)
	if err != nil {
		return 0, fmt.Errorf("open session: %w", err)
	}
	defer session.Close(context.WithoutCancel(ctx))

	rows, err := session.Run(ctx, cypher.HighWaterMark())
	if err != nil {
		return 0, fmt.Errorf("read change log high-water mark: %w", err)
	}
	rows = graph.Normalize(rows)

	var mark int64
	if len(rows) > 0 {
		switch n := rows[0]["number"].(type) {
		case int64:
			mark = n
		case nil:
		default:
			return 0, fmt.Errorf("change log high-water mark has type %T", n)
		}
	}

	adv, ok := e.seq.(sequence.Advancer)
	if !ok {
		e.logger.Warn("sequence provider cannot be advanced", "mark", mark)
		return mark, nil
	}
	if err := adv.Advance(mark); err != nil {
		return 0, fmt.Errorf("advance sequence to %d: %w", mark, err)
	}
	e.logger.Info("sequence seeded from change log", "mark", mark)
	return mark, nil
}

func (e *Engine) journalRequest(ctx context.Context, op descriptor.Operation, req descriptor.Request) (string, error) {
	if e.journal == nil {
		return "", nil
	}
	written, err := e.journal.WriteRequest(ctx, store.Request{
		ID:        e.requestIDs.Generate(),
		Operation: op.String(),
		Caller:    req.GUID,
		Payload:   req.Query,
	})
	if err != nil {
		return "", &Error{
			Code:      ErrCodeStoreExecutionFailure,
			Message:   fmt.Sprintf("journal request: %v", err),
			Operation: op.String(),
			Err:       err,
		}
	}
	return written.ID, nil
}

// journalOutcome never fails the request: the graph store has already
// answered.
func (e *Engine) journalOutcome(ctx context.Context, requestID string, c *call, rows []graph.Row, err error) {
	if e.journal == nil || requestID == "" {
		return
	}
	out := store.Outcome{
		RequestID:  requestID,
		Status:     store.StatusOK,
		Rows:       len(rows),
		Numbers:    c.numbers(),
		Statements: c.journalStatements(),
	}
	if err != nil {
		out.Status = store.StatusError
		out.ErrorCode = string(CodeOf(err))
		out.Message = err.Error()
	}
	if werr := e.journal.WriteOutcome(context.WithoutCancel(ctx), out); werr != nil {
		e.logger.Error("journal outcome failed", "request", requestID, "error", werr)
	}
}

// call is the state of one Execute: the lazily opened session and every
// statement sent on it.
type call struct {
	engine     *Engine
	op         descriptor.Operation
	user       string
	session    graph.Session
	statements []cypher.Statement
}

func (c *call) compileAndRun(ctx context.Context, compile func() (*cypher.Plan, error)) ([]graph.Row, error) {
	plan, err := compile()
	if err != nil {
		return nil, compileFailure(c.op, err)
	}
	return c.runPlan(ctx, plan)
}

// runPlan counts the rows a plan will touch, binds numbers for exactly that
// many and runs it. Nothing matched means nothing to write: the mutation is
// skipped and no number is taken.
func (c *call) runPlan(ctx context.Context, plan *cypher.Plan) ([]graph.Row, error) {
	var matched int64
	if plan.Count != nil {
		rows, err := c.run(ctx, *plan.Count)
		if err != nil {
			return nil, err
		}
		matched, err = countOf(rows)
		if err != nil {
			return nil, storeFailure(c.op, err)
		}
		if matched == 0 {
			return []graph.Row{}, nil
		}
	}
	stmt, err := plan.Bind(matched)
	if err != nil {
		return nil, compileFailure(c.op, err)
	}
	return c.run(ctx, stmt)
}

func ready(stmt cypher.Statement, err error) (*cypher.Plan, error) {
	if err != nil {
		return nil, err
	}
	return cypher.Ready(stmt), nil
}

// countOf reads the single count column of a count statement. Stores that
// round-trip through JSON or YAML hand back float64 or int.
func countOf(rows []graph.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	switch n := rows[0][cypher.CountAlias].(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("count has type %T", n)
	}
}

func (c *call) run(ctx context.Context, stmt cypher.Statement) ([]graph.Row, error) {
	e := c.engine
	if c.session == nil {
		session, err := e.store.Session(ctx)
		if err != nil {
			e.logger.Error("open session failed", "operation", c.op.String(), "error", err)
			return nil, storeFailure(c.op, err)
		}
		c.session = session
	}
	c.statements = append(c.statements, stmt)

	ctx, span := e.tracer.Start(ctx, "graphledger.run",
		trace.WithAttributes(
			attribute.String("operation", c.op.String()),
			attribute.Int("changelog_entries", len(stmt.Numbers)),
		),
	)
	defer span.End()

	e.logger.Debug("running statement",
		"operation", c.op.String(),
		"statement", stmt.Cypher,
		"params", stmt.Params,
	)

	rows, err := c.session.Run(ctx, stmt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("statement failed", "operation", c.op.String(), "statement", stmt.Cypher, "error", err)
		return nil, storeFailure(c.op, err)
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	e.metrics.addChangeLogEntries(len(stmt.Numbers))
	return graph.Normalize(rows), nil
}

func (c *call) close(ctx context.Context) {
	if c.session == nil {
		return
	}
	if err := c.session.Close(context.WithoutCancel(ctx)); err != nil {
		c.engine.logger.Warn("close session failed", "operation", c.op.String(), "error", err)
	}
}

func (c *call) numbers() []int64 {
	var numbers []int64
	for _, stmt := range c.statements {
		numbers = append(numbers, stmt.Numbers...)
	}
	return numbers
}

func (c *call) journalStatements() []store.Statement {
	stmts := make([]store.Statement, len(c.statements))
	for i, stmt := range c.statements {
		stmts[i] = store.Statement{Cypher: stmt.Cypher, Params: stmt.Params}
	}
	return stmts
}
