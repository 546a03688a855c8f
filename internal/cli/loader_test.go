package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequest_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "create.json", createTopicJSON)

	req, err := LoadRequest(path)
	require.NoError(t, err)
	assert.Equal(t, "createNode", req.Function)
	assert.Equal(t, testCaller, req.GUID)
	assert.JSONEq(t, `{"type":"topic","properties":{"name":"Go"}}`, string(req.Query))
}

func TestLoadRequest_CUE(t *testing.T) {
	path := writeFile(t, t.TempDir(), "create.cue", `
// A topic owned by the caller.
let topic = "Go"

function: "createNode"
GUID:     "11111111-2222-3333-4444-555555555555"
query: {
	type: "topic"
	properties: {
		name:  topic
		level: 3
	}
}
`)

	req, err := LoadRequest(path)
	require.NoError(t, err)
	assert.Equal(t, "createNode", req.Function)
	assert.JSONEq(t, `{"type":"topic","properties":{"name":"Go","level":3}}`, string(req.Query))
}

func TestLoadRequest_MetaQueryIsAString(t *testing.T) {
	path := writeFile(t, t.TempDir(), "meta.json", `{"function":"getMetaData","query":"nodes"}`)

	req, err := LoadRequest(path)
	require.NoError(t, err)
	assert.Equal(t, `"nodes"`, string(req.Query))
	assert.Empty(t, req.GUID)
}

func TestLoadRequest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		body     string
		wantCode string
	}{
		{"unknown top-level field", "typo.json", `{"function":"createNode","qeury":{}}`, ErrCodeInvalidRequest},
		{"missing function", "nofunc.json", `{"query":{}}`, ErrCodeInvalidRequest},
		{"empty function", "empty.json", `{"function":""}`, ErrCodeInvalidRequest},
		{"incomplete cue", "open.cue", "function: string\n", ErrCodeInvalidRequest},
		{"syntax error", "broken.json", `{"function": }`, ErrCodeLoadFailed},
		{"unsupported extension", "request.yaml", "function: createNode\n", ErrCodeUnsupportedFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.body)

			_, err := LoadRequest(path)
			require.Error(t, err)
			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tt.wantCode, loadErr.Code, err.Error())
		})
	}
}

func TestLoadRequest_NotFound(t *testing.T) {
	_, err := LoadRequest("/nonexistent/request.json")
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadError_Position(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.cue", "function: \"createNode\"\nquery: {\n")

	_, err := LoadRequest(path)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.True(t, loadErr.Pos.IsValid())
	assert.Contains(t, err.Error(), "broken.cue:")
}
