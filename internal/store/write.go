package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WriteRequest journals a request and assigns its seq, which is one more
// than the highest seq in the journal. The stored request is returned.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing the same ID twice
// returns the request as first journaled.
func (s *Store) WriteRequest(ctx context.Context, req Request) (Request, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Request{}, fmt.Errorf("write request: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM requests`).Scan(&seq); err != nil {
		return Request{}, fmt.Errorf("write request: next seq: %w", err)
	}

	payload := string(req.Payload)
	if payload == "" {
		payload = "null"
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO requests (id, seq, operation, caller, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, req.ID, seq, req.Operation, req.Caller, payload)
	if err != nil {
		return Request{}, fmt.Errorf("write request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return Request{}, fmt.Errorf("write request: rows affected: %w", err)
	}
	if affected == 0 {
		existing, err := scanRequest(tx.QueryRowContext(ctx, selectRequest+` WHERE id = ?`, req.ID))
		if err != nil {
			return Request{}, fmt.Errorf("write request: read existing: %w", err)
		}
		return existing, tx.Commit()
	}

	if err := tx.Commit(); err != nil {
		return Request{}, fmt.Errorf("write request: commit: %w", err)
	}

	req.Seq = seq
	req.Payload = []byte(payload)
	return req, nil
}

// WriteOutcome records how a request ended. Each request has at most one
// outcome; a second write is silently ignored.
//
// Note: The request referenced by RequestID must exist (foreign key constraint).
func (s *Store) WriteOutcome(ctx context.Context, out Outcome) error {
	numbers, err := marshalNumbers(out.Numbers)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	stmts, err := marshalStatements(out.Statements)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}

	status := out.Status
	if status == "" {
		status = StatusOK
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outcomes (request_id, status, error_code, message, row_count, numbers, statements)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO NOTHING
	`, out.RequestID, string(status), out.ErrorCode, out.Message, out.Rows, numbers, stmts)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	return nil
}

// ErrNotFound is returned when a journal lookup matches nothing.
var ErrNotFound = errors.New("store: not found")

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
