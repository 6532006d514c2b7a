package subagent

import (
	"context"
	"errors"
	"testing"

	"taskforge/internal/agent"
	"taskforge/internal/config"
	"taskforge/internal/contextmgr"
	"taskforge/internal/llm"
	"taskforge/internal/tool"
)

func def(key, answer string) Definition {
	return Definition{
		Key: key,
		Handler: func(ctx context.Context, message string) (string, error) {
			return answer, nil
		},
	}
}

func TestCatalogOrderAndLookup(t *testing.T) {
	c := NewCatalog(def("a", "1"), def("b", "2"), def("c", "3"))

	keys := c.Keys()
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("unexpected key order %v", keys)
	}

	d, ok := c.Get("b")
	if !ok {
		t.Fatal("expected b to exist")
	}
	out, _ := d.Handler(context.Background(), "x")
	if out != "2" {
		t.Fatalf("wrong definition returned: %q", out)
	}

	if _, ok := c.Get("ghost"); ok {
		t.Fatal("unexpected hit for missing key")
	}
}

func TestCatalogDuplicateKeyKeepsPosition(t *testing.T) {
	c := NewCatalog(def("a", "old"), def("b", "2"), def("a", "new"))

	if c.Len() != 2 {
		t.Fatalf("expected 2 definitions, got %d", c.Len())
	}
	keys := c.Keys()
	if keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("duplicate must keep its original position, got %v", keys)
	}
	d, _ := c.Get("a")
	out, _ := d.Handler(context.Background(), "x")
	if out != "new" {
		t.Fatalf("last definition must win, got %q", out)
	}
}

type scriptedProvider struct {
	answer string
}

func (s *scriptedProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.LLMResponse, error) {
	return &llm.LLMResponse{Content: s.answer}, nil
}

func (s *scriptedProvider) StreamChat(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	return nil, errors.New("not implemented")
}

func (s *scriptedProvider) Name() string         { return "scripted" }
func (s *scriptedProvider) DefaultModel() string { return "scripted-model" }

func TestBuiltinsRunThroughEngine(t *testing.T) {
	engine := agent.NewEngine(&scriptedProvider{answer: "all set"}, tool.NewRegistry(), nil, 0)
	catalog := Builtins(contextmgr.NewManager(engine), config.AgentConfig{MaxIterations: 5})

	for _, key := range []string{"ticket", "docs", "code", "test", "research"} {
		if _, ok := catalog.Get(key); !ok {
			t.Fatalf("missing built-in agent %q", key)
		}
	}

	d, _ := catalog.Get("ticket")
	out, err := d.Handler(context.Background(), "create a ticket for the login bug")
	if err != nil {
		t.Fatal(err)
	}
	if out != "all set" {
		t.Fatalf("unexpected answer %q", out)
	}
}

func TestBuiltinsHaveTriggers(t *testing.T) {
	engine := agent.NewEngine(&scriptedProvider{}, tool.NewRegistry(), nil, 0)
	catalog := Builtins(contextmgr.NewManager(engine), config.AgentConfig{})

	for _, def := range catalog.All() {
		if len(def.Triggers) == 0 {
			t.Errorf("agent %q has no trigger phrases", def.Key)
		}
		if def.Description == "" {
			t.Errorf("agent %q has no description", def.Key)
		}
	}
}
