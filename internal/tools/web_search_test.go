package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearchTool_Parameters(t *testing.T) {
	tool := NewWebSearchTool("test-api-key", "")
	assert.Equal(t, "web_search", tool.Name())

	var schema map[string]any
	require.NoError(t, json.Unmarshal(tool.Parameters(), &schema))
	assert.Equal(t, "object", schema["type"])

	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "topic")
	assert.Contains(t, props, "max_results")
	assert.Contains(t, schema["required"].([]any), "query")
}

func TestWebSearchTool_SchemaRejectsBadArguments(t *testing.T) {
	tool := NewWebSearchTool("test-api-key", "")
	d := Descriptor{Name: tool.Name(), InputSchema: tool.Parameters()}

	assert.NoError(t, ValidateArguments(d, json.RawMessage(`{"query":"go release","topic":"news","max_results":3}`)))
	assert.Error(t, ValidateArguments(d, json.RawMessage(`{"topic":"news"}`)))
	assert.Error(t, ValidateArguments(d, json.RawMessage(`{"query":"x","topic":"sports"}`)))
	assert.Error(t, ValidateArguments(d, json.RawMessage(`{"query":"x","max_results":50}`)))
}

func TestWebSearchTool_Execute(t *testing.T) {
	var got tavilyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tavilyResponse{
			Query:  got.Query,
			Answer: "Go 1.24 shipped in February 2025.",
			Results: []tavilyResult{
				{Title: "Go 1.24 Release Notes", URL: "https://go.dev/doc/go1.24", Content: strings.Repeat("a", 600)},
			},
		})
	}))
	defer server.Close()

	tool := NewWebSearchTool("test-api-key", server.URL)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"go 1.24 release","topic":"news"}`))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	assert.Equal(t, "test-api-key", got.APIKey)
	assert.Equal(t, "go 1.24 release", got.Query)
	assert.Equal(t, "news", got.Topic)
	assert.Equal(t, defaultSearchResults, got.MaxResults)

	assert.Contains(t, result.Content, "Summary: Go 1.24 shipped in February 2025.")
	assert.Contains(t, result.Content, "1. Go 1.24 Release Notes")
	assert.Contains(t, result.Content, "URL: https://go.dev/doc/go1.24")
	assert.Contains(t, result.Content, strings.Repeat("a", maxResultContent)+"...")
}

func TestWebSearchTool_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"query":"nothing","results":[]}`))
	}))
	defer server.Close()

	result, err := NewWebSearchTool("k", server.URL).Execute(context.Background(), json.RawMessage(`{"query":"nothing"}`))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content, "No results found.")
}

func TestWebSearchTool_Failures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()
	tool := NewWebSearchTool("bad-key", server.URL)

	tests := []struct {
		name    string
		args    string
		wantErr string
	}{
		{"api error", `{"query":"x"}`, "API error (status 401)"},
		{"bad arguments", `[1,2]`, "Failed to parse search arguments"},
		{"blank query", `{"query":"  "}`, "query is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Execute(context.Background(), json.RawMessage(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, result.Content, tt.wantErr)
		})
	}
}

func TestWebSearchTool_ThroughDispatcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"query":"x","answer":"yes","results":[]}`))
	}))
	defer server.Close()

	p := newLocal(t, NewWebSearchTool("k", server.URL))
	caps, err := p.ListTools(context.Background())
	require.NoError(t, err)
	d := NewDispatcher(p, caps)

	ok := d.Invoke(context.Background(), InvocationRequest{ID: "1", Name: "web_search", Arguments: json.RawMessage(`{"query":"x"}`)})
	assert.True(t, ok.Success)
	assert.Contains(t, ok.Output, "Summary: yes")

	rejected := d.Invoke(context.Background(), InvocationRequest{ID: "2", Name: "web_search", Arguments: json.RawMessage(`{"query":"x","topic":"sports"}`)})
	assert.False(t, rejected.Success)
	assert.Contains(t, rejected.Error, `invalid arguments for "web_search"`)
}
