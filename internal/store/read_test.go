package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEntries_Empty(t *testing.T) {
	s := createTestStore(t)

	entries, err := s.ReadEntries(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestReadEntries_OrderAndOutcomes(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for _, id := range []string{"c", "a", "b"} {
		mustWriteRequest(t, s, createTestRequest(id, "changeNode"))
	}
	require.NoError(t, s.WriteOutcome(ctx, Outcome{RequestID: "a", Status: StatusError, ErrorCode: "STORE_EXECUTION_FAILURE", Message: "down"}))

	entries, err := s.ReadEntries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "c", entries[0].Request.ID, "journal order, not ID order")
	assert.Equal(t, "a", entries[1].Request.ID)
	assert.Equal(t, "b", entries[2].Request.ID)

	assert.Nil(t, entries[0].Outcome)
	require.NotNil(t, entries[1].Outcome)
	assert.Equal(t, StatusError, entries[1].Outcome.Status)
	assert.Equal(t, "STORE_EXECUTION_FAILURE", entries[1].Outcome.ErrorCode)
	assert.Equal(t, "down", entries[1].Outcome.Message)
}

func TestReadEntries_Limit(t *testing.T) {
	s := createTestStore(t)
	for _, id := range []string{"r1", "r2", "r3", "r4"} {
		mustWriteRequest(t, s, createTestRequest(id, "createNode"))
	}

	entries, err := s.ReadEntries(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "r3", entries[0].Request.ID)
	assert.Equal(t, "r4", entries[1].Request.ID)
}

func TestFindIncomplete(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	for _, id := range []string{"r1", "r2", "r3"} {
		mustWriteRequest(t, s, createTestRequest(id, "createNode"))
	}
	require.NoError(t, s.WriteOutcome(ctx, Outcome{RequestID: "r2", Status: StatusOK}))

	reqs, err := s.FindIncomplete(ctx)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "r1", reqs[0].ID)
	assert.Equal(t, "r3", reqs[1].ID)
}

func TestHighestNumber(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	n, err := s.HighestNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	mustWriteRequest(t, s, createTestRequest("r1", "createNode"))
	mustWriteRequest(t, s, createTestRequest("r2", "createNode"))
	require.NoError(t, s.WriteOutcome(ctx, Outcome{RequestID: "r1", Status: StatusOK, Numbers: []int64{4, 9, 5}}))
	require.NoError(t, s.WriteOutcome(ctx, Outcome{RequestID: "r2", Status: StatusError, Numbers: []int64{11}}))

	n, err = s.HighestNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(11), n, "numbers of failed requests are burned too")
}
