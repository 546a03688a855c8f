package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", event.Step, event.Function)
		for _, stmt := range event.Statements {
			fmt.Fprintf(&buf, "      %s\n", stmt.Cypher)
		}
	}

	return buf.String()
}

// statementsOf returns the statements of one step, or of the whole trace
// when step is nil.
func statementsOf(trace []TraceEvent, step *int) []TraceStatement {
	var out []TraceStatement
	for _, event := range trace {
		if step == nil || event.Step == *step {
			out = append(out, event.Statements...)
		}
	}
	return out
}

func scopeName(step *int) string {
	if step == nil {
		return "trace"
	}
	return fmt.Sprintf("step %d", *step)
}

// assertStatementContains checks that some statement in scope contains the
// text.
func assertStatementContains(trace []TraceEvent, a Assertion) error {
	for _, stmt := range statementsOf(trace, a.Step) {
		if strings.Contains(stmt.Cypher, a.Text) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertStatementContains,
		Expected: fmt.Sprintf("a statement in %s containing %q", scopeName(a.Step), a.Text),
		Actual:   "not found",
		Trace:    trace,
	}
}

// assertStatementOrder checks that each text is found in a statement after
// the one that matched the previous text.
func assertStatementOrder(trace []TraceEvent, a Assertion) error {
	stmts := statementsOf(trace, a.Step)
	pos := 0
	for _, text := range a.Texts {
		found := false
		for pos < len(stmts) {
			hit := strings.Contains(stmts[pos].Cypher, text)
			pos++
			if hit {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertStatementOrder,
				Expected: fmt.Sprintf("statements containing %q in order", a.Texts),
				Actual:   fmt.Sprintf("%q not found after the previous match", text),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertStatementCount checks the number of statements in scope.
func assertStatementCount(trace []TraceEvent, a Assertion) error {
	got := len(statementsOf(trace, a.Step))
	if got == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertStatementCount,
		Expected: fmt.Sprintf("%d statement(s) in %s", *a.Count, scopeName(a.Step)),
		Actual:   fmt.Sprintf("%d statement(s)", got),
		Trace:    trace,
	}
}

// assertChangeLogNumbers checks the numbers one step allocated.
func assertChangeLogNumbers(trace []TraceEvent, a Assertion) error {
	var got []int64
	for _, stmt := range statementsOf(trace, a.Step) {
		got = append(got, stmt.Numbers...)
	}
	if numbersEqual(got, a.Numbers) {
		return nil
	}
	return &AssertionError{
		Type:     AssertChangeLogNumbers,
		Expected: fmt.Sprintf("numbers %v in %s", a.Numbers, scopeName(a.Step)),
		Actual:   fmt.Sprintf("numbers %v", got),
		Trace:    trace,
	}
}

// EvaluateAssertions evaluates every assertion and returns the messages of
// the ones that failed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertStatementContains:
			err = assertStatementContains(result.Trace, a)
		case AssertStatementOrder:
			err = assertStatementOrder(result.Trace, a)
		case AssertStatementCount:
			if a.Count == nil {
				err = fmt.Errorf("statement_count requires 'count'")
			} else {
				err = assertStatementCount(result.Trace, a)
			}
		case AssertChangeLogNumbers:
			err = assertChangeLogNumbers(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
