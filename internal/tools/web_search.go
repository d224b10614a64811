package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultSearchURL = "https://api.tavily.com/search"

	defaultSearchResults = 5
	maxResultContent     = 500
)

// WebSearchTool searches the web through the Tavily API
type WebSearchTool struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// WebSearchArgs represents the arguments for web search
type WebSearchArgs struct {
	Query      string `json:"query"`
	Topic      string `json:"topic,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	Topic         string `json:"topic,omitempty"`
	SearchDepth   string `json:"search_depth,omitempty"`
	IncludeAnswer bool   `json:"include_answer,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
}

type tavilyResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// NewWebSearchTool creates a new web search tool
func NewWebSearchTool(apiKey, apiURL string) *WebSearchTool {
	if apiURL == "" {
		apiURL = DefaultSearchURL
	}
	return &WebSearchTool{
		apiKey: apiKey,
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *WebSearchTool) Name() string {
	return "web_search"
}

func (t *WebSearchTool) Description() string {
	return `Search the web and return a short answer with the top matching pages.
Use it for facts that are not available from the other tools.`
}

func (t *WebSearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"minLength": 1,
				"description": "What to search for"
			},
			"topic": {
				"type": "string",
				"enum": ["general", "news"],
				"description": "Search category (default: general)"
			},
			"max_results": {
				"type": "integer",
				"minimum": 1,
				"maximum": 10,
				"description": "Number of pages to return (default: 5)"
			}
		},
		"required": ["query"]
	}`)
}

// Execute reports search failures as error results so the engine can adapt.
func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var searchArgs WebSearchArgs
	if err := jsonAPI.Unmarshal(args, &searchArgs); err != nil {
		return ToolResult{
			Content: fmt.Sprintf("Failed to parse search arguments: %v", err),
			IsError: true,
		}, nil
	}
	if strings.TrimSpace(searchArgs.Query) == "" {
		return ToolResult{Content: "query is required", IsError: true}, nil
	}

	results, err := t.search(ctx, searchArgs)
	if err != nil {
		return ToolResult{
			Content: fmt.Sprintf("Search failed: %v", err),
			IsError: true,
		}, nil
	}

	return ToolResult{Content: formatResults(results)}, nil
}

func (t *WebSearchTool) search(ctx context.Context, args WebSearchArgs) (*tavilyResponse, error) {
	maxResults := args.MaxResults
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}

	payload, err := jsonAPI.Marshal(tavilyRequest{
		APIKey:        t.apiKey,
		Query:         args.Query,
		Topic:         args.Topic,
		SearchDepth:   "basic",
		IncludeAnswer: true,
		MaxResults:    maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out tavilyResponse
	if err := jsonAPI.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &out, nil
}

func formatResults(resp *tavilyResponse) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Search Query: %s\n\n", resp.Query)
	if resp.Answer != "" {
		fmt.Fprintf(&b, "Summary: %s\n\n", resp.Answer)
	}

	if len(resp.Results) == 0 {
		b.WriteString("No results found.\n")
		return b.String()
	}

	b.WriteString("Search Results:\n")
	for i, r := range resp.Results {
		content := r.Content
		if len(content) > maxResultContent {
			content = content[:maxResultContent] + "..."
		}
		fmt.Fprintf(&b, "\n%d. %s\n   URL: %s\n   Content: %s\n", i+1, r.Title, r.URL, content)
	}
	return b.String()
}
