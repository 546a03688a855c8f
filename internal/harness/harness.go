package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/roach88/graphledger/internal/cypher"
	"github.com/roach88/graphledger/internal/descriptor"
	"github.com/roach88/graphledger/internal/engine"
	"github.com/roach88/graphledger/internal/graph"
	"github.com/roach88/graphledger/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and GUIDs.
type Harness struct {
	clock  *testutil.DeterministicClock
	guids  *testutil.SequentialGUIDs
	caller string
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each step gets a fresh scripted store and engine; the clock and GUID
// generator are shared so numbering continues across steps.
//
// Execution flow:
// 1. Create the deterministic clock, advanced to sequence_start
// 2. Run every step and record its statements
// 3. Check each step's expect clause
// 4. Evaluate assertions against the trace
func Run(scenario *Scenario) (*Result, error) {
	clock := testutil.NewDeterministicClock()
	if err := clock.Advance(scenario.SequenceStart); err != nil {
		return nil, fmt.Errorf("failed to seed clock: %w", err)
	}

	h := &Harness{
		clock:  clock,
		guids:  testutil.NewSequentialGUIDs(),
		caller: scenario.Caller,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	if h.caller == "" {
		h.caller = DefaultCaller
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	query, err := step.QueryJSON()
	if err != nil {
		return err
	}

	script := make([]graph.Result, len(step.Store))
	for i, sr := range step.Store {
		script[i] = toResult(sr)
	}
	rec := graph.NewRecordingStore(script...)
	eng := engine.New(rec, h.clock,
		engine.WithGUIDGenerator(h.guids),
		engine.WithLogger(h.logger),
	)

	rows, execErr := eng.Execute(ctx, descriptor.Request{
		Function: step.Function,
		Query:    query,
		GUID:     h.caller,
	})

	event := TraceEvent{
		Step:       index,
		Function:   step.Function,
		Statements: traceStatements(rec.Statements()),
		Rows:       len(rows),
		ErrorCode:  string(engine.CodeOf(execErr)),
	}
	result.Trace = append(result.Trace, event)

	if pending := rec.Pending(); pending > 0 {
		result.AddError(fmt.Sprintf("step %d (%s): %d scripted store result(s) were not used", index, step.Function, pending))
	}
	checkExpect(index, step, len(rows), execErr, result)
	return nil
}

func checkExpect(index int, step Step, rows int, err error, result *Result) {
	want := step.Expect
	if want == nil {
		if err != nil {
			result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", index, step.Function, err))
		}
		return
	}

	if want.Error != "" {
		if got := string(engine.CodeOf(err)); got != want.Error {
			result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got %q (%v)", index, step.Function, want.Error, got, err))
		}
		return
	}
	if err != nil {
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", index, step.Function, err))
		return
	}
	if want.Rows != nil && *want.Rows != rows {
		result.AddError(fmt.Sprintf("step %d (%s): expected %d row(s), got %d", index, step.Function, *want.Rows, rows))
	}
}

func toResult(sr StoreResult) graph.Result {
	if sr.Error != "" {
		return graph.Result{Err: errors.New(sr.Error)}
	}
	rows := make([]graph.Row, len(sr.Rows))
	for i, r := range sr.Rows {
		rows[i] = graph.Row(r)
	}
	return graph.Result{Rows: rows}
}

func traceStatements(stmts []cypher.Statement) []TraceStatement {
	out := make([]TraceStatement, len(stmts))
	for i, stmt := range stmts {
		out[i] = TraceStatement{Cypher: stmt.Cypher, Params: stmt.Params, Numbers: stmt.Numbers}
	}
	return out
}

// numbersEqual treats nil and empty as equal.
func numbersEqual(a, b []int64) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
