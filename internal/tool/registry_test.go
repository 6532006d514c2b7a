package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// mockTool is a simple tool for testing.
type mockTool struct {
	name     string
	schema   string
	invoked  bool
	output   string
	execErr  error
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return "test tool" }
func (m *mockTool) Parameters() json.RawMessage {
	if m.schema != "" {
		return json.RawMessage(m.schema)
	}
	return json.RawMessage(`{"type":"object","properties":{}}`)
}
func (m *mockTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	m.invoked = true
	if m.execErr != nil {
		return nil, m.execErr
	}
	if m.output != "" {
		return Text(m.output), nil
	}
	return Text("executed " + m.name), nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "test1"})
	r.Register(&mockTool{name: "test2"})

	tl, err := r.Get("test1")
	if err != nil {
		t.Fatal(err)
	}
	if tl.Name() != "test1" {
		t.Fatalf("expected test1, got %s", tl.Name())
	}

	if _, err := r.Get("nonexistent"); err == nil {
		t.Fatal("expected error for nonexistent tool")
	}
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "missing", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "echo", output: "hello"})

	res, err := r.Execute(context.Background(), "echo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "hello" {
		t.Fatalf("expected 'hello', got %q", res.Output)
	}
}

func TestRegistryExecuteSurfacesHandlerError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	r.Register(&mockTool{name: "bad", execErr: boom})

	_, err := r.Execute(context.Background(), "bad", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error to surface, got %v", err)
	}
}

func TestRegistryValidatesInput(t *testing.T) {
	schema := `{
		"type": "object",
		"properties": {"query": {"type": "string"}},
		"required": ["query"]
	}`
	m := &mockTool{name: "search", schema: schema}
	r := NewRegistry()
	r.Register(m)

	_, err := r.Execute(context.Background(), "search", json.RawMessage(`{}`))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if m.invoked {
		t.Fatal("handler must not run on invalid input")
	}

	_, err = r.Execute(context.Background(), "search", json.RawMessage(`{"query": 42}`))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for wrong type, got %v", err)
	}

	res, err := r.Execute(context.Background(), "search", json.RawMessage(`{"query":"go"}`))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", res.Error)
	}
}

func TestRegistryDefinitionsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "c"})
	r.Register(&mockTool{name: "a"})
	r.Register(&mockTool{name: "b"})

	defs := r.Definitions()
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	for i, want := range []string{"c", "a", "b"} {
		if defs[i].Name != want {
			t.Fatalf("definitions[%d] = %s, want %s (registration order)", i, defs[i].Name, want)
		}
	}

	// Re-registering keeps the original position.
	r.Register(&mockTool{name: "c", output: "v2"})
	defs = r.Definitions()
	if defs[0].Name != "c" {
		t.Fatalf("re-registration moved 'c' to position of %s", defs[0].Name)
	}
	res, err := r.Execute(context.Background(), "c", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "v2" {
		t.Fatalf("expected overwritten tool to run, got %q", res.Output)
	}
}

func TestRegistryDefinitionsFilter(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "a"})
	r.Register(&mockTool{name: "b"})

	defs := r.Definitions("b", "ghost", "a")
	if len(defs) != 2 {
		t.Fatalf("expected unknown names dropped, got %d definitions", len(defs))
	}
	// Filter results stay in registration order.
	if defs[0].Name != "a" || defs[1].Name != "b" {
		t.Fatalf("expected [a b], got [%s %s]", defs[0].Name, defs[1].Name)
	}
}

func TestRegistryNamesAndHas(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "x"})
	r.Register(&mockTool{name: "y"})

	names := r.Names()
	if len(names) != 2 || names[0] != "x" || names[1] != "y" {
		t.Fatalf("unexpected names: %v", names)
	}
	if !r.Has("x") || r.Has("z") {
		t.Fatal("Has reported wrong membership")
	}

	r.Unregister("x")
	if r.Has("x") {
		t.Fatal("expected x gone after Unregister")
	}
	if len(r.Names()) != 1 {
		t.Fatalf("expected 1 name, got %v", r.Names())
	}
}
