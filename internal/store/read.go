package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

const selectRequest = `SELECT id, seq, operation, caller, payload FROM requests`

type scanner interface {
	Scan(dest ...any) error
}

// ReadRequest retrieves a single request by ID.
// Returns ErrNotFound if it was never journaled.
func (s *Store) ReadRequest(ctx context.Context, id string) (Request, error) {
	req, err := scanRequest(s.db.QueryRowContext(ctx, selectRequest+` WHERE id = ?`, id))
	if err != nil {
		return Request{}, fmt.Errorf("read request %s: %w", id, notFound(err))
	}
	return req, nil
}

// ReadOutcome retrieves the outcome of a request.
// Returns ErrNotFound if the request has not finished.
func (s *Store) ReadOutcome(ctx context.Context, requestID string) (Outcome, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT request_id, status, error_code, message, row_count, numbers, statements
		FROM outcomes
		WHERE request_id = ?
	`, requestID)
	out, err := scanOutcome(row)
	if err != nil {
		return Outcome{}, fmt.Errorf("read outcome %s: %w", requestID, notFound(err))
	}
	return out, nil
}

// ReadEntries returns the most recent limit requests with their outcomes,
// oldest first. A limit of zero or less returns the whole journal.
// Results ordered by seq ASC, id ASC.
//
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ReadEntries(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT r.id, r.seq, r.operation, r.caller, r.payload,
		       o.request_id, o.status, o.error_code, o.message, o.row_count, o.numbers, o.statements
		FROM requests r
		LEFT JOIN outcomes o ON o.request_id = r.id
	`
	var args []any
	if limit > 0 {
		query += ` WHERE r.seq > (SELECT COALESCE(MAX(seq), 0) FROM requests) - ?`
		args = append(args, limit)
	}
	query += ` ORDER BY r.seq ASC, r.id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func scanRequest(row scanner) (Request, error) {
	var req Request
	var payload string
	if err := row.Scan(&req.ID, &req.Seq, &req.Operation, &req.Caller, &payload); err != nil {
		return Request{}, err
	}
	req.Payload = json.RawMessage(payload)
	return req, nil
}

func scanOutcome(row scanner) (Outcome, error) {
	var out Outcome
	var status string
	var numbers, stmts []byte
	if err := row.Scan(&out.RequestID, &status, &out.ErrorCode, &out.Message, &out.Rows, &numbers, &stmts); err != nil {
		return Outcome{}, err
	}
	return decodeOutcome(out, status, numbers, stmts)
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var entry Entry
	var payload string
	var (
		requestID, status, errorCode, message sql.NullString
		rowCount                               sql.NullInt64
		numbers, stmts                         []byte
	)
	if err := rows.Scan(
		&entry.Request.ID, &entry.Request.Seq, &entry.Request.Operation, &entry.Request.Caller, &payload,
		&requestID, &status, &errorCode, &message, &rowCount, &numbers, &stmts,
	); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	entry.Request.Payload = json.RawMessage(payload)

	if !requestID.Valid {
		return entry, nil
	}
	out, err := decodeOutcome(Outcome{
		RequestID: requestID.String,
		ErrorCode: errorCode.String,
		Message:   message.String,
		Rows:      int(rowCount.Int64),
	}, status.String, numbers, stmts)
	if err != nil {
		return Entry{}, err
	}
	entry.Outcome = &out
	return entry, nil
}

func decodeOutcome(out Outcome, status string, numbers, stmts []byte) (Outcome, error) {
	out.Status = Status(status)
	var err error
	if out.Numbers, err = unmarshalNumbers(numbers); err != nil {
		return Outcome{}, err
	}
	if out.Statements, err = unmarshalStatements(stmts); err != nil {
		return Outcome{}, err
	}
	return out, nil
}
