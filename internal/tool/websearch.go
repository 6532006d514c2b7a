package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// WebSearchTool provides web search capability using DuckDuckGo HTML.
type WebSearchTool struct{}

func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Search the web for information. Returns raw result markup with titles and URLs."
}

func (t *WebSearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "The search query"
			}
		},
		"required": ["query"]
	}`)
}

func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return Errorf("invalid arguments: %v", err), nil
	}
	if params.Query == "" {
		return Errorf("query is required"), nil
	}

	searchURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s", url.QueryEscape(params.Query))

	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return Errorf("failed to create request: %v", err), nil
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Taskforge/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return Errorf("search request failed: %v", err), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 100000))
	if err != nil {
		return Errorf("failed to read response: %v", err), nil
	}

	// Return raw HTML for the LLM to parse — simple and effective
	output := string(body)
	if len(output) > 10000 {
		output = output[:10000] + "\n... (truncated)"
	}
	return Text(output), nil
}
