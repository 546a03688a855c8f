package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRequest creates a request with minimal required fields.
func createTestRequest(id, operation string) Request {
	return Request{
		ID:        id,
		Operation: operation,
		Caller:    "00000000-0000-0000-0000-0000000000aa",
		Payload:   json.RawMessage(`{"node":{"type":"people"}}`),
	}
}

func mustWriteRequest(t *testing.T, s *Store, req Request) Request {
	t.Helper()
	stored, err := s.WriteRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("WriteRequest(%s) failed: %v", req.ID, err)
	}
	return stored
}
