package cypher

import "fmt"

// SequenceError wraps a failure of the sequence provider. Nothing has been
// sent to the store when it is returned.
type SequenceError struct {
	Err error
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("allocate change log number: %v", e.Err)
}

func (e *SequenceError) Unwrap() error {
	return e.Err
}

// PredicateError reports a search predicate the compiler cannot render.
type PredicateError struct {
	Field  string
	Reason string
}

func (e *PredicateError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// UnknownQueryError reports a metadata query name outside the fixed set.
type UnknownQueryError struct {
	Name string
}

func (e *UnknownQueryError) Error() string {
	return fmt.Sprintf("unknown metadata query %q", e.Name)
}
