package graph

import (
	"context"
	"sync"

	"github.com/roach88/graphledger/internal/cypher"
)

// Result is one scripted response of a RecordingStore.
type Result struct {
	Rows []Row
	Err  error
}

// RecordingStore records every statement it is asked to run and answers
// from a FIFO script. Once the script is exhausted every statement returns
// no rows, which makes it a store that matches nothing. AnswerCounts makes
// unscripted count statements report a fixed number of rows instead.
//
// It backs dry runs (graphledger compile) and tests.
type RecordingStore struct {
	mu         sync.Mutex
	script     []Result
	statements []cypher.Statement
	open       int
	closed     bool
	counts     int64
}

// NewRecordingStore creates a store answering with results in order.
func NewRecordingStore(results ...Result) *RecordingStore {
	return &RecordingStore{script: results}
}

// Script appends results to the script.
func (s *RecordingStore) Script(results ...Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, results...)
}

// AnswerCounts sets the count reported by unscripted count statements.
func (s *RecordingStore) AnswerCounts(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = n
}

// Statements returns a copy of the statements run so far.
func (s *RecordingStore) Statements() []cypher.Statement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cypher.Statement(nil), s.statements...)
}

// OpenSessions returns the number of sessions not yet closed.
func (s *RecordingStore) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Pending returns the number of scripted results not yet consumed.
func (s *RecordingStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.script)
}

// Session opens a recording session.
func (s *RecordingStore) Session(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.open++
	return &recordingSession{store: s}, nil
}

// Close marks the store closed; later Session calls fail.
func (s *RecordingStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *RecordingStore) run(stmt cypher.Statement) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statements = append(s.statements, stmt)
	if len(s.script) == 0 {
		if s.counts > 0 && cypher.IsCount(stmt) {
			return []Row{{cypher.CountAlias: s.counts}}, nil
		}
		return []Row{}, nil
	}
	next := s.script[0]
	s.script = s.script[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	if next.Rows == nil {
		return []Row{}, nil
	}
	return next.Rows, nil
}

type recordingSession struct {
	store  *RecordingStore
	closed bool
}

func (s *recordingSession) Run(ctx context.Context, stmt cypher.Statement) ([]Row, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.run(stmt)
}

func (s *recordingSession) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.store.mu.Lock()
	s.store.open--
	s.store.mu.Unlock()
	return nil
}
