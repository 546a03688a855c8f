package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
	require.NoError(t, err)
	return s
}

func TestRun_MergeRelation(t *testing.T) {
	result, err := Run(loadScenario(t, "merge_relation"))
	require.NoError(t, err)

	assert.True(t, result.Pass, result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Len(t, result.Trace[0].Statements, 5)
	assert.Len(t, result.Trace[1].Statements, 3)
	assert.Equal(t, 1, result.Trace[0].Rows)
}

func TestRun_Errors(t *testing.T) {
	result, err := Run(loadScenario(t, "errors"))
	require.NoError(t, err)

	assert.True(t, result.Pass, result.Errors)
	require.Len(t, result.Trace, 4)
	assert.Equal(t, "UNKNOWN_OPERATION", result.Trace[0].ErrorCode)
	assert.Equal(t, "MALFORMED_SEARCH_PREDICATE", result.Trace[1].ErrorCode)
	assert.Equal(t, "STORE_EXECUTION_FAILURE", result.Trace[2].ErrorCode)
	assert.Empty(t, result.Trace[3].ErrorCode)
	assert.Len(t, result.Trace[3].Statements, 1, "no rows counted, no delete sent")
}

func TestRun_GoldenTrace(t *testing.T) {
	result, err := RunWithGolden(t, loadScenario(t, "create_then_trash"))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	s := loadScenario(t, "merge_relation")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalSnapshot(s, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(s, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ExpectationFailures(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: failing
description: every expectation is wrong
steps:
  - function: deleteNode
    query: { id: 1 }
    expect:
      rows: 2
  - function: deleteNode
    query: { id: 1 }
    expect:
      error: STORE_EXECUTION_FAILURE
  - function: changeNode
    query: { changes: [ { item: rel, property: a, value: "1" } ] }
  - function: getMetaData
    query: nodes
    store:
      - rows: []
      - rows: []
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "expected 2 row(s), got 0")
	assert.Contains(t, result.Errors[1], "expected error STORE_EXECUTION_FAILURE")
	assert.Contains(t, result.Errors[2], "unexpected error")
	assert.Contains(t, result.Errors[3], "1 scripted store result(s) were not used")
}

func TestRun_SequenceStart(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: start
description: numbering resumes from the start mark
sequence_start: 99
steps:
  - function: changeNode
    query: { node: { id: 1 }, changes: [ { property: a, value: "1" } ] }
    store:
      - rows: [ { count: 1 } ]
assertions:
  - type: changelog_numbers
    step: 0
    numbers: [100]
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}
