package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
)

// SSEClient talks to an HTTP tool provider. Every operation is one POST
// carrying a single JSON-RPC request; the response arrives in the HTTP
// body, either as a bare JSON object or as an SSE event stream whose
// first data payload is the response. No pending-id bookkeeping is
// needed since each call is a synchronous round trip.
type SSEClient struct {
	name   string
	url    string
	client *http.Client
	nextID atomic.Int64
}

// NewSSEClient prepares a client for the given endpoint URL.
func NewSSEClient(name, url string) *SSEClient {
	return &SSEClient{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: defaultCallTimeout},
	}
}

// Connect performs the initialize round trip to verify the endpoint.
func (c *SSEClient) Connect(ctx context.Context) error {
	params := InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo:      PeerInfo{Name: "taskforge", Version: "1.0"},
	}
	if _, err := c.post(ctx, "initialize", params); err != nil {
		return fmt.Errorf("provider %s: handshake: %w", c.name, err)
	}
	return nil
}

// ListTools fetches the provider's tool catalog.
func (c *SSEClient) ListTools(ctx context.Context) ([]ToolSpec, error) {
	raw, err := c.post(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	var out ListToolsResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("provider %s: bad tools/list result: %w", c.name, err)
	}
	return out.Tools, nil
}

// CallTool invokes one remote tool.
func (c *SSEClient) CallTool(ctx context.Context, name string, args json.RawMessage) (*CallResult, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	raw, err := c.post(ctx, "tools/call", CallParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	var out CallResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("provider %s: bad tools/call result: %w", c.name, err)
	}
	return &out, nil
}

// Disconnect is a no-op; there is no persistent connection to close.
func (c *SSEClient) Disconnect() error { return nil }

func (c *SSEClient) post(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	req := &Request{JSONRPC: Version, ID: &id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal %s params: %w", method, err)
		}
		req.Params = raw
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %s: %w", c.name, method, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxLineBytes))
	if err != nil {
		return nil, fmt.Errorf("provider %s: %s: read body: %w", c.name, method, err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider %s: %s: HTTP %d", c.name, method, httpResp.StatusCode)
	}

	resp, err := parseResponseBody(data)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %s: %w", c.name, method, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("provider %s: %s: %w", c.name, method, resp.Error)
	}
	return resp.Result, nil
}

// parseResponseBody accepts either a bare JSON response or an SSE stream
// whose first data: payload parses as one.
func parseResponseBody(data []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var resp Response
		if err := json.Unmarshal(trimmed, &resp); err != nil {
			return nil, fmt.Errorf("bad response body: %w", err)
		}
		return &resp, nil
	}
	for _, line := range strings.Split(string(trimmed), "\n") {
		line = strings.TrimSpace(line)
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		var resp Response
		if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &resp); err == nil {
			return &resp, nil
		}
	}
	return nil, fmt.Errorf("no JSON-RPC response in body (%d bytes)", len(data))
}
