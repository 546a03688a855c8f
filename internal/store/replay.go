package store

import (
	"context"
	"fmt"
)

// FindIncomplete returns the requests that were journaled but never got an
// outcome, oldest first. These are requests interrupted by a crash; for a
// mutating operation the graph may or may not hold its effects, and its
// change log entries tell which.
func (s *Store) FindIncomplete(ctx context.Context) ([]Request, error) {
	rows, err := s.db.QueryContext(ctx, selectRequest+`
		WHERE id NOT IN (SELECT request_id FROM outcomes)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("find incomplete requests: %w", err)
	}
	defer rows.Close()

	reqs := []Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return reqs, nil
}

// HighestNumber returns the largest change log number recorded in any
// outcome, or 0. It lets a sequence provider recover its position when the
// graph store is unreachable.
func (s *Store) HighestNumber(ctx context.Context) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT numbers FROM outcomes`)
	if err != nil {
		return 0, fmt.Errorf("query numbers: %w", err)
	}
	defer rows.Close()

	var highest int64
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return 0, fmt.Errorf("scan numbers: %w", err)
		}
		numbers, err := unmarshalNumbers(data)
		if err != nil {
			return 0, err
		}
		for _, n := range numbers {
			if n > highest {
				highest = n
			}
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate numbers: %w", err)
	}
	return highest, nil
}
