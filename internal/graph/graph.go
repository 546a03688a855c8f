// Package graph runs compiled statements against a property-graph store and
// normalizes the rows that come back.
package graph

import (
	"context"
	"errors"

	"github.com/roach88/graphledger/internal/cypher"
)

// ErrSessionClosed is returned by Run on a session that was already closed.
var ErrSessionClosed = errors.New("graph: session closed")

// Row is one result record keyed by projection name.
type Row map[string]any

// Store opens sessions against a graph database.
type Store interface {
	Session(ctx context.Context) (Session, error)
	Close(ctx context.Context) error
}

// Session runs statements. One session serves one engine operation and is
// always closed when the operation returns.
type Session interface {
	Run(ctx context.Context, stmt cypher.Statement) ([]Row, error)
	Close(ctx context.Context) error
}
