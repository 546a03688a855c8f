package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: create_topic
description: Create one topic
steps:
  - function: createNode
    query:
      type: topic
      properties:
        name: Go
    store:
      - rows:
          - node: { identity: 1, labels: [topic], properties: { name: Go } }
    expect:
      rows: 1
assertions:
  - type: changelog_numbers
    step: 0
    numbers: [1, 2]
`

const failingScenario = `name: wrong_numbers
description: Expects a number the delete never takes
steps:
  - function: deleteNode
    query: { id: 4 }
assertions:
  - type: changelog_numbers
    step: 0
    numbers: [7]
`

type testResponse struct {
	Status string     `json:"status"`
	Data   TestResult `json:"data"`
	Error  *CLIError  `json:"error"`
}

func TestTestCommand_MissingArgs(t *testing.T) {
	_, err := runCLI(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommand_NonExistentDir(t *testing.T) {
	_, err := runCLI(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommand_EmptyDir(t *testing.T) {
	out, err := runCLI(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_Passing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "create_topic.yaml", passingScenario)

	out, err := runCLI(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ create_topic")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommand_FailingJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "create_topic.yaml", passingScenario)
	writeFile(t, dir, "wrong_numbers.yml", failingScenario)

	out, err := runCLI(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.Equal(t, 2, resp.Data.Total)

	var failed ScenarioResult
	for _, s := range resp.Data.Scenarios {
		if !s.Pass {
			failed = s
		}
	}
	assert.Equal(t, "wrong_numbers", failed.Name)
	assert.NotEmpty(t, failed.Errors)
}

func TestTestCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\nstepz: []\n")

	out, err := runCLI(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "create_topic.yaml", passingScenario)
	writeFile(t, dir, "wrong_numbers.yaml", failingScenario)

	out, err := runCLI(t, "test", dir, "--filter", "create_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommand_GoldenLifecycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "create_topic.yaml", passingScenario)
	goldenPath := filepath.Join(dir, "golden", "create_topic.golden")

	out, err := runCLI(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ create_topic (golden updated)")

	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name": "create_topic"`)
	assert.Contains(t, string(data), "CREATE (node:topic {name: $p3})")

	_, err = runCLI(t, "test", dir)
	require.NoError(t, err, "trace matches the golden file it just wrote")

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0o644))
	out, err = runCLI(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "merge.golden"),
		goldenFilePath(filepath.Join("scenarios", "merge.yaml")))
}
