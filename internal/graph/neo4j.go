package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/roach88/graphledger/internal/cypher"
)

// Neo4jConfig holds Neo4j connection settings.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jStore is a Store backed by the Neo4j Bolt driver.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// OpenNeo4j creates a driver and verifies connectivity.
func OpenNeo4j(ctx context.Context, cfg Neo4jConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connect to neo4j at %s: %w", cfg.URI, err)
	}

	slog.Info("connected to neo4j", "uri", cfg.URI, "database", cfg.Database)
	return &Neo4jStore{driver: driver, database: cfg.Database}, nil
}

// Session opens a write session.
func (s *Neo4jStore) Session(ctx context.Context) (Session, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	return &neo4jSession{session: session}, nil
}

// Close closes the driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

type neo4jSession struct {
	session neo4j.SessionWithContext
	closed  bool
}

// Run executes one statement in a managed write transaction. Transient
// failures are retried by the driver with the same parameters.
func (s *neo4jSession) Run(ctx context.Context, stmt cypher.Statement) ([]Row, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	out, err := s.session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, stmt.Cypher, stmt.Params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]Row, 0, len(records))
		for _, rec := range records {
			rows = append(rows, recordRow(rec.Keys, rec.Values))
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]Row), nil
}

func (s *neo4jSession) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.session.Close(ctx)
}

func recordRow(keys []string, values []any) Row {
	row := make(Row, len(keys))
	for i, key := range keys {
		row[key] = convertValue(values[i])
	}
	return row
}

// convertValue turns driver graph types into plain maps so rows look the
// same whichever store produced them. Only identity survives as the
// entity's key; element ids and relationship endpoint ids are dropped.
func convertValue(v any) any {
	switch val := v.(type) {
	case neo4j.Node:
		return map[string]any{
			"identity":   val.Id,
			"labels":     val.Labels,
			"properties": convertMap(val.Props),
		}
	case neo4j.Relationship:
		return map[string]any{
			"identity":   val.Id,
			"type":       val.Type,
			"properties": convertMap(val.Props),
		}
	case neo4j.Path:
		nodes := make([]any, len(val.Nodes))
		for i, n := range val.Nodes {
			nodes[i] = convertValue(n)
		}
		rels := make([]any, len(val.Relationships))
		for i, r := range val.Relationships {
			rels[i] = convertValue(r)
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = convertValue(elem)
		}
		return out
	case map[string]any:
		return convertMap(val)
	default:
		return v
	}
}

func convertMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = convertValue(v)
	}
	return out
}
