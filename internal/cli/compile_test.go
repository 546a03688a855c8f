package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createTopicCypher = "CREATE (node:topic {name: $p3}), " +
	"(log0:M_ChangeLog {number: $p0, item_GUID: $item, user_GUID: $user, action: 'create', itemType: 'node', label: $p1, M_GUID: $p2}), " +
	"(log1:M_ChangeLog {number: $p4, item_GUID: $item, user_GUID: $user, action: 'change', itemType: 'node', attribute: $p5, value: $p3, M_GUID: $p6}) " +
	"SET node.M_GUID = $item, node.createChangeLog = $p0 RETURN node"

type compileResponse struct {
	Status string            `json:"status"`
	Data   CompilationResult `json:"data"`
	Error  *CLIError         `json:"error"`
}

func TestCompile_CreateNodeJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "create.json", createTopicJSON)

	out, err := runCLI(t, "compile", path, "--deterministic", "--start", "40", "--format", "json")
	require.NoError(t, err)

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "createNode", resp.Data.Function)
	require.Len(t, resp.Data.Statements, 1)

	stmt := resp.Data.Statements[0]
	assert.Equal(t, createTopicCypher, stmt.Cypher)
	assert.Equal(t, []int64{41, 42}, stmt.Numbers)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", stmt.Params["item"])
	assert.Equal(t, testCaller, stmt.Params["user"])
	assert.Equal(t, "Go", stmt.Params["p3"])
	assert.EqualValues(t, 41, stmt.Params["p0"])
}

func TestCompile_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "create.json", createTopicJSON)

	out, err := runCLI(t, "compile", path, "--deterministic")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ createNode: 1 statement(s)")
	assert.Contains(t, out, "[1] change log 1, 2")
	assert.Contains(t, out, createTopicCypher)
	assert.Contains(t, out, `"p3":"Go"`)
}

func TestCompile_CallerOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "meta.json", `{"function":"getMetaData","query":"myTrash"}`)

	out, err := runCLI(t, "compile", path, "--caller", "99999999-0000-0000-0000-000000000000", "--format", "json")
	require.NoError(t, err)

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Statements, 1)
	assert.Equal(t, "99999999-0000-0000-0000-000000000000", resp.Data.Statements[0].Params["user"])
	assert.Empty(t, resp.Data.Statements[0].Numbers)
}

func TestCompile_MergeTakesCreateBranch(t *testing.T) {
	path := writeFile(t, t.TempDir(), "merge.json", `{
  "function": "changeNode",
  "query": {
    "node": {"type": "topic", "merge": true, "properties": {"name": "Go"}},
    "changes": [{"property": "desc", "value": "language"}]
  },
  "GUID": "11111111-2222-3333-4444-555555555555"
}`)

	out, err := runCLI(t, "compile", path, "--deterministic", "--format", "json")
	require.NoError(t, err)

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Statements, 2, "probe, then create")
	assert.Equal(t, "MATCH (node:topic {name: $p0}) RETURN node", resp.Data.Statements[0].Cypher)
	assert.Empty(t, resp.Data.Statements[0].Numbers)
	assert.Contains(t, resp.Data.Statements[1].Cypher, "CREATE (node:topic")
	assert.Equal(t, []int64{1, 2, 3}, resp.Data.Statements[1].Numbers)
}

func TestCompile_EngineError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "search.json", `{
  "function": "tableNodeSearch",
  "query": {"type": "topic", "where": {"created": {"fieldType": "date", "searchType": "<", "value": "2020"}}}
}`)

	out, err := runCLI(t, "compile", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MALFORMED_SEARCH_PREDICATE", resp.Error.Code)
}

func TestCompile_LoadError(t *testing.T) {
	out, err := runCLI(t, "compile", "/nonexistent/request.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestCompile_NegativeStart(t *testing.T) {
	path := writeFile(t, t.TempDir(), "create.json", createTopicJSON)

	_, err := runCLI(t, "compile", path, "--start", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompile_RowsNumbersEachCountedRow(t *testing.T) {
	path := writeFile(t, t.TempDir(), "delete.json",
		`{"function":"deleteNode","query":{"type":"topic"},"GUID":"11111111-2222-3333-4444-555555555555"}`)

	out, err := runCLI(t, "compile", path, "--rows", "2", "--start", "10", "--format", "json")
	require.NoError(t, err)

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Statements, 2)
	assert.Equal(t, "MATCH (node:topic) RETURN count(*) AS count", resp.Data.Statements[0].Cypher)
	assert.Empty(t, resp.Data.Statements[0].Numbers)
	assert.Contains(t, resp.Data.Statements[1].Cypher, "DETACH DELETE node")
	assert.Equal(t, []int64{11, 12}, resp.Data.Statements[1].Numbers)
}

func TestCompile_ZeroRowsSkipsMutation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "delete.json",
		`{"function":"deleteNode","query":{"id":3},"GUID":"11111111-2222-3333-4444-555555555555"}`)

	out, err := runCLI(t, "compile", path, "--rows", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ deleteNode: 1 statement(s)")
	assert.NotContains(t, out, "DETACH DELETE")
}

func TestCompile_NegativeRows(t *testing.T) {
	path := writeFile(t, t.TempDir(), "create.json", createTopicJSON)

	out, err := runCLI(t, "compile", path, "--rows", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E102]")
}
