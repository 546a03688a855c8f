package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/graphledger/internal/cypher"
	"github.com/roach88/graphledger/internal/descriptor"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeUnknownOperation indicates an operation or metadata query name
	// outside the known set.
	ErrCodeUnknownOperation ErrorCode = "UNKNOWN_OPERATION"

	// ErrCodeMalformedDescriptor indicates a payload that cannot be decoded
	// or compiled.
	ErrCodeMalformedDescriptor ErrorCode = "MALFORMED_DESCRIPTOR"

	// ErrCodeMalformedSearchPredicate indicates a table search predicate the
	// compiler cannot render.
	ErrCodeMalformedSearchPredicate ErrorCode = "MALFORMED_SEARCH_PREDICATE"

	// ErrCodeStoreExecutionFailure indicates the graph store rejected a
	// statement or could not be reached.
	ErrCodeStoreExecutionFailure ErrorCode = "STORE_EXECUTION_FAILURE"

	// ErrCodeSequenceFailure indicates the sequence provider could not
	// allocate a change log number. Nothing was sent to the store.
	ErrCodeSequenceFailure ErrorCode = "SEQUENCE_FAILURE"
)

// ErrUnknownOperation is wrapped by every UNKNOWN_OPERATION error.
var ErrUnknownOperation = errors.New("unknown operation")

// Error is returned by Execute for every failure.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Operation is the wire name of the requested operation.
	Operation string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s: %s (operation=%s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of an engine error, or "" for any other error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsUnknownOperation returns true for unknown operation and unknown
// metadata query errors.
func IsUnknownOperation(err error) bool {
	return CodeOf(err) == ErrCodeUnknownOperation
}

// IsMalformed returns true if the request payload was rejected, either as a
// whole or because of a search predicate.
func IsMalformed(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeMalformedDescriptor || code == ErrCodeMalformedSearchPredicate
}

// IsStoreFailure returns true if the graph store failed.
func IsStoreFailure(err error) bool {
	return CodeOf(err) == ErrCodeStoreExecutionFailure
}

// IsSequenceFailure returns true if no change log number could be allocated.
func IsSequenceFailure(err error) bool {
	return CodeOf(err) == ErrCodeSequenceFailure
}

func unknownOperation(name string) *Error {
	return &Error{
		Code:      ErrCodeUnknownOperation,
		Message:   fmt.Sprintf("no operation named %q", name),
		Operation: name,
		Err:       ErrUnknownOperation,
	}
}

func storeFailure(op descriptor.Operation, err error) *Error {
	return &Error{
		Code:      ErrCodeStoreExecutionFailure,
		Message:   err.Error(),
		Operation: op.String(),
		Err:       err,
	}
}

// compileFailure classifies an error returned while decoding, validating
// or compiling a request.
func compileFailure(op descriptor.Operation, err error) *Error {
	var (
		seqErr     *cypher.SequenceError
		predErr    *cypher.PredicateError
		unknownErr *cypher.UnknownQueryError
	)
	e := &Error{Message: err.Error(), Operation: op.String(), Err: err}
	switch {
	case errors.As(err, &seqErr):
		e.Code = ErrCodeSequenceFailure
	case errors.As(err, &predErr):
		e.Code = ErrCodeMalformedSearchPredicate
	case errors.As(err, &unknownErr):
		e.Code = ErrCodeUnknownOperation
		e.Err = fmt.Errorf("%w: %w", ErrUnknownOperation, err)
	default:
		e.Code = ErrCodeMalformedDescriptor
	}
	return e
}
