package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRequest_AssignsSeq(t *testing.T) {
	s := createTestStore(t)

	first := mustWriteRequest(t, s, createTestRequest("req-a", "createNode"))
	second := mustWriteRequest(t, s, createTestRequest("req-b", "deleteNode"))

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestWriteRequest_Idempotent(t *testing.T) {
	s := createTestStore(t)

	first := mustWriteRequest(t, s, createTestRequest("req-a", "createNode"))
	mustWriteRequest(t, s, createTestRequest("req-b", "createNode"))

	again := createTestRequest("req-a", "changeNode")
	stored := mustWriteRequest(t, s, again)

	assert.Equal(t, first.Seq, stored.Seq)
	assert.Equal(t, "createNode", stored.Operation, "the first write wins")

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestWriteRequest_EmptyPayload(t *testing.T) {
	s := createTestStore(t)
	req := createTestRequest("req-a", "getMetaData")
	req.Payload = nil

	stored := mustWriteRequest(t, s, req)
	assert.JSONEq(t, "null", string(stored.Payload))
}

func TestWriteOutcome_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	mustWriteRequest(t, s, createTestRequest("req-a", "createNode"))

	out := Outcome{
		RequestID: "req-a",
		Status:    StatusOK,
		Rows:      1,
		Numbers:   []int64{7, 8},
		Statements: []Statement{{
			Cypher: "CREATE (node:people {name: $p3})",
			Params: map[string]any{"p0": int64(7), "p3": "Ann", "p4": 2.5},
		}},
	}
	require.NoError(t, s.WriteOutcome(ctx, out))

	got, err := s.ReadOutcome(ctx, "req-a")
	require.NoError(t, err)
	assert.Equal(t, out, got)
}

func TestWriteOutcome_AtMostOnce(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	mustWriteRequest(t, s, createTestRequest("req-a", "createNode"))

	require.NoError(t, s.WriteOutcome(ctx, Outcome{RequestID: "req-a", Status: StatusOK, Rows: 1}))
	require.NoError(t, s.WriteOutcome(ctx, Outcome{RequestID: "req-a", Status: StatusError, ErrorCode: "X"}))

	got, err := s.ReadOutcome(ctx, "req-a")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, []int64{}, got.Numbers)
	assert.Equal(t, []Statement{}, got.Statements)
}

func TestWriteOutcome_RequiresRequest(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteOutcome(context.Background(), Outcome{RequestID: "missing"})
	assert.Error(t, err)
}

func TestReadRequest_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRequest(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ReadOutcome(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadRequest_PayloadUnchanged(t *testing.T) {
	s := createTestStore(t)
	req := createTestRequest("req-a", "createNode")
	req.Payload = json.RawMessage(`{"node":{"properties":{"b":1,"a":2}}}`)
	mustWriteRequest(t, s, req)

	got, err := s.ReadRequest(context.Background(), "req-a")
	require.NoError(t, err)
	assert.Equal(t, `{"node":{"properties":{"b":1,"a":2}}}`, string(got.Payload))
}
