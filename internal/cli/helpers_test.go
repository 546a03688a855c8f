package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/graphledger/internal/config"
	"github.com/roach88/graphledger/internal/graph"
)

const testCaller = "11111111-2222-3333-4444-555555555555"

// stubGraphStore makes openRuntime use a recording store answering with
// results. The first result answers the high-water mark query.
func stubGraphStore(t *testing.T, results ...graph.Result) *graph.RecordingStore {
	t.Helper()
	rec := graph.NewRecordingStore(results...)
	prev := openGraphStore
	openGraphStore = func(context.Context, config.Neo4j) (graph.Store, error) {
		return rec, nil
	}
	t.Cleanup(func() { openGraphStore = prev })
	return rec
}

// isolateEnv points the journal and sequence at a temp dir so no test
// writes next to the package. It returns the journal path.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	journal := filepath.Join(dir, "journal.db")
	t.Setenv("GRAPHLEDGER_JOURNAL_PATH", journal)
	t.Setenv("GRAPHLEDGER_SEQUENCE_BACKEND", config.BackendMemory)
	t.Setenv("GRAPHLEDGER_SEQUENCE_PATH", filepath.Join(dir, "sequence.db"))
	t.Setenv("GRAPHLEDGER_TIMEOUT", "")
	return journal
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func highWaterMark(n int64) graph.Result {
	return graph.Result{Rows: []graph.Row{{"number": n}}}
}

const createTopicJSON = `{
  "function": "createNode",
  "query": {"type": "topic", "properties": {"name": "Go"}},
  "GUID": "11111111-2222-3333-4444-555555555555"
}`
