package cli

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphledger/internal/graph"
	"github.com/roach88/graphledger/internal/store"
)

type journalResponse struct {
	Status string         `json:"status"`
	Data   []JournalEntry `json:"data"`
}

func TestJournal_ListsExecutedRequests(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, t.TempDir(), "create.json", createTopicJSON)

	stubGraphStore(t, highWaterMark(0), graph.Result{Rows: []graph.Row{topicRow()}})
	_, err := runCLI(t, "exec", path)
	require.NoError(t, err)

	stubGraphStore(t, highWaterMark(2), graph.Result{Err: errors.New("connection reset")})
	_, err = runCLI(t, "exec", path)
	require.Error(t, err)

	out, err := runCLI(t, "journal", "--statements", "--format", "json")
	require.NoError(t, err)

	var resp journalResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)

	first, second := resp.Data[0], resp.Data[1]
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "createNode", first.Operation)
	assert.Equal(t, testCaller, first.Caller)
	assert.Equal(t, "ok", first.Status)
	assert.Equal(t, 1, first.Rows)
	assert.Equal(t, []int64{1, 2}, first.Numbers)
	require.Len(t, first.Statements, 1)
	assert.Contains(t, first.Statements[0].Cypher, "CREATE (node:topic")

	assert.Equal(t, "error", second.Status)
	assert.Equal(t, "STORE_EXECUTION_FAILURE", second.ErrorCode)
	assert.Equal(t, []int64{3, 4}, second.Numbers)
}

func TestJournal_TextAndLimit(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, t.TempDir(), "create.json", createTopicJSON)
	for i := 0; i < 3; i++ {
		stubGraphStore(t, highWaterMark(0), graph.Result{Rows: []graph.Row{topicRow()}})
		_, err := runCLI(t, "exec", path)
		require.NoError(t, err)
	}

	out, err := runCLI(t, "journal", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "#3 createNode caller="+testCaller+" ok rows=1 numbers=[5 6]")
	assert.NotContains(t, out, "#2 ")
	assert.Contains(t, out, "1 of 3 request(s)")
}

func TestJournal_Incomplete(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = st.WriteRequest(ctx, store.Request{ID: "req-1", Operation: "createNode", Caller: testCaller, Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	_, err = st.WriteRequest(ctx, store.Request{ID: "req-2", Operation: "deleteNode", Caller: testCaller, Payload: json.RawMessage(`{"id":4}`)})
	require.NoError(t, err)
	require.NoError(t, st.WriteOutcome(ctx, store.Outcome{RequestID: "req-1", Status: store.StatusOK, Rows: 1, Numbers: []int64{1, 2}}))
	require.NoError(t, st.Close())

	out, err := runCLI(t, "journal", "--db", dbPath, "--incomplete", "--format", "json")
	require.NoError(t, err)

	var resp journalResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "req-2", resp.Data[0].ID)
	assert.Equal(t, statusIncomplete, resp.Data[0].Status)
	assert.JSONEq(t, `{"id":4}`, string(resp.Data[0].Payload))
}

func TestJournal_Empty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := runCLI(t, "journal", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No journaled requests.")
}

func TestJournal_Missing(t *testing.T) {
	out, err := runCLI(t, "journal", "--db", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
