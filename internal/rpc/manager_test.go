package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskforge/internal/config"
	"taskforge/internal/tool"
)

type fakeClient struct {
	tools      []ToolSpec
	connectErr error
	calls      map[string]json.RawMessage
	result     *CallResult
	callErr    error
	closed     bool
}

func (f *fakeClient) Connect(ctx context.Context) error { return f.connectErr }

func (f *fakeClient) ListTools(ctx context.Context) ([]ToolSpec, error) { return f.tools, nil }

func (f *fakeClient) CallTool(ctx context.Context, name string, args json.RawMessage) (*CallResult, error) {
	if f.calls == nil {
		f.calls = make(map[string]json.RawMessage)
	}
	f.calls[name] = args
	if f.callErr != nil {
		return nil, f.callErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return TextResult("remote says hi", false), nil
}

func (f *fakeClient) Disconnect() error {
	f.closed = true
	return nil
}

func weatherSpec() ToolSpec {
	return ToolSpec{
		Name:        "weather",
		Description: "current weather",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`),
	}
}

func TestManagerImportsNamespacedTools(t *testing.T) {
	reg := tool.NewRegistry()
	m := NewManager(reg, nil)
	fc := &fakeClient{tools: []ToolSpec{weatherSpec()}}

	n, err := m.connectOne(context.Background(), "acme", fc)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 imported tool, got %d", n)
	}
	if !reg.Has("rpc_acme_weather") {
		t.Fatalf("expected namespaced registration, registry has %v", reg.Names())
	}
	if reg.Has("weather") {
		t.Fatal("the bare remote name must not be registered")
	}

	res, err := reg.Execute(context.Background(), "rpc_acme_weather", json.RawMessage(`{"city":"Oslo"}`))
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "remote says hi" {
		t.Fatalf("unexpected result %+v", res)
	}
	// The remote side is called with the original, un-namespaced name.
	if _, ok := fc.calls["weather"]; !ok {
		t.Fatalf("expected delegation to remote tool 'weather', got calls %v", fc.calls)
	}
}

func TestManagerConnectFailureYieldsZeroTools(t *testing.T) {
	reg := tool.NewRegistry()
	m := NewManager(reg, nil)
	fc := &fakeClient{connectErr: errors.New("spawn failed")}

	if _, err := m.connectOne(context.Background(), "broken", fc); err == nil {
		t.Fatal("expected a connect error")
	}
	if len(reg.Names()) != 0 {
		t.Fatalf("no tools must be registered on failure, got %v", reg.Names())
	}
}

func TestManagerImportedErrorResultStaysSoft(t *testing.T) {
	reg := tool.NewRegistry()
	m := NewManager(reg, nil)
	fc := &fakeClient{
		tools:  []ToolSpec{weatherSpec()},
		result: TextResult("city not found", true),
	}
	if _, err := m.connectOne(context.Background(), "acme", fc); err != nil {
		t.Fatal(err)
	}

	res, err := reg.Execute(context.Background(), "rpc_acme_weather", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("a soft remote failure must not become a Go error: %v", err)
	}
	if !res.IsError || !strings.Contains(res.Error, "city not found") {
		t.Fatalf("expected an error-flagged result, got %+v", res)
	}
}

func TestManagerImportedTransportErrorPropagates(t *testing.T) {
	reg := tool.NewRegistry()
	m := NewManager(reg, nil)
	fc := &fakeClient{
		tools:   []ToolSpec{weatherSpec()},
		callErr: errors.New("request timed out"),
	}
	if _, err := m.connectOne(context.Background(), "acme", fc); err != nil {
		t.Fatal(err)
	}

	_, err := reg.Execute(context.Background(), "rpc_acme_weather", json.RawMessage(`{}`))
	if err == nil || !strings.Contains(err.Error(), "request timed out") {
		t.Fatalf("expected the transport error to surface, got %v", err)
	}
}

func TestManagerDisconnectAll(t *testing.T) {
	reg := tool.NewRegistry()
	m := NewManager(reg, nil)
	fc := &fakeClient{tools: []ToolSpec{weatherSpec()}}
	if _, err := m.connectOne(context.Background(), "acme", fc); err != nil {
		t.Fatal(err)
	}

	m.DisconnectAll()
	if !fc.closed {
		t.Fatal("expected the client to be disconnected")
	}
	// Idempotent.
	m.DisconnectAll()
}

func TestManagerConnectAllSkipsBadConfig(t *testing.T) {
	reg := tool.NewRegistry()
	m := NewManager(reg, nil)

	// Misconfigured providers must be skipped without aborting startup.
	total := m.ConnectAll(context.Background(), []config.ProviderConfig{
		{Name: "no-transport", Transport: "carrier-pigeon"},
		{Name: "no-command", Transport: "stdio"},
		{Name: "no-url", Transport: "sse"},
	})
	if total != 0 {
		t.Fatalf("expected 0 tools, got %d", total)
	}
	if len(reg.Names()) != 0 {
		t.Fatalf("registry must stay empty, got %v", reg.Names())
	}
}

func TestSSEClientRoundTrip(t *testing.T) {
	reg := tool.NewRegistry()
	reg.Register(tool.NewFunc("upper", "uppercases text", nil, func(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
		var in struct {
			Text string `json:"text"`
		}
		json.Unmarshal(args, &in)
		return tool.Text(strings.ToUpper(in.Text)), nil
	}))

	// A tiny HTTP endpoint speaking the same protocol, backed by the same
	// dispatch rules as the stdio server.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := &Response{JSONRPC: Version, ID: req.ID}
		switch req.Method {
		case "initialize":
			raw, _ := json.Marshal(InitializeResult{ProtocolVersion: ProtocolVersion, ServerInfo: PeerInfo{Name: "sse-test"}})
			resp.Result = raw
		case "tools/list":
			defs := reg.Definitions()
			specs := make([]ToolSpec, len(defs))
			for i, d := range defs {
				specs[i] = ToolSpec{Name: d.Name, Description: d.Description, InputSchema: d.Parameters}
			}
			raw, _ := json.Marshal(ListToolsResult{Tools: specs})
			resp.Result = raw
		case "tools/call":
			var params CallParams
			json.Unmarshal(req.Params, &params)
			res, err := reg.Execute(r.Context(), params.Name, params.Arguments)
			if err != nil {
				resp.Error = &Error{Code: CodeInternalError, Message: err.Error()}
			} else {
				raw, _ := json.Marshal(TextResult(res.Output, res.IsError))
				resp.Result = raw
			}
		default:
			resp.Error = &Error{Code: CodeMethodNotFound, Message: "method not found"}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewSSEClient("sse-test", srv.URL)
	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	tools, err := c.ListTools(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tools) != 1 || tools[0].Name != "upper" {
		t.Fatalf("unexpected tools %+v", tools)
	}
	res, err := c.CallTool(ctx, "upper", json.RawMessage(`{"text":"abc"}`))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text() != "ABC" {
		t.Fatalf("expected ABC, got %q", res.Text())
	}
	if err := c.Disconnect(); err != nil {
		t.Fatal(err)
	}
}

func TestParseResponseBodySSEFraming(t *testing.T) {
	body := "event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":1,\"result\":\"ok\"}\n\n"
	resp, err := parseResponseBody([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Result) != `"ok"` {
		t.Fatalf("unexpected result %s", resp.Result)
	}

	if _, err := parseResponseBody([]byte("event: noise\n\n")); err == nil {
		t.Fatal("expected an error for a body with no response")
	}
}
