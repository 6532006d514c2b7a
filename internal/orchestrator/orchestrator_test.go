package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"taskforge/internal/config"
	"taskforge/internal/llm"
	"taskforge/internal/subagent"
)

type stubProvider struct {
	responses []*llm.LLMResponse
	calls     int
	err       error
}

func (s *stubProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.LLMResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

func (s *stubProvider) StreamChat(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	return nil, errors.New("not implemented")
}

func (s *stubProvider) Name() string         { return "stub" }
func (s *stubProvider) DefaultModel() string { return "stub-model" }

// echoAgent answers with a recognizable marker so tests can see which
// sub-agent actually ran.
func echoAgent(key string, triggers ...string) subagent.Definition {
	return subagent.Definition{
		Key:      key,
		Triggers: triggers,
		Handler: func(ctx context.Context, message string) (string, error) {
			return key + " handled: " + message, nil
		},
	}
}

func routingCatalog() *subagent.Catalog {
	return subagent.NewCatalog(
		echoAgent("ticket", "jira ticket", "create a ticket", "ticket", "issue"),
		echoAgent("docs", "wiki", "documentation page", "write docs"),
		echoAgent("code", "pull request", "code review", "branch"),
		echoAgent("test", "unit tests", "write tests", "test coverage"),
		echoAgent("research", "research", "look up", "search the web"),
	)
}

func TestQuickRouteMatchesTriggerPhrases(t *testing.T) {
	catalog := routingCatalog()

	cases := []struct {
		message string
		want    string
	}{
		{"create a jira ticket for the login bug", "ticket"},
		{"write unit tests for auth", "test"},
		{"please open a pull request with the fix", "code"},
		{"xyzzy frobnicate the quux", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := QuickRoute(catalog, tc.message); got != tc.want {
			t.Errorf("QuickRoute(%q) = %q, want %q", tc.message, got, tc.want)
		}
	}
}

func TestQuickRouteIsCaseInsensitive(t *testing.T) {
	catalog := routingCatalog()
	if got := QuickRoute(catalog, "CREATE A JIRA TICKET"); got != "ticket" {
		t.Fatalf("expected ticket, got %q", got)
	}
}

func TestQuickRoutePrefersHigherScore(t *testing.T) {
	// "deploy" (1 word) vs "deploy the docs" (3 words): the longer, more
	// specific phrase must win even though its agent is defined later.
	catalog := subagent.NewCatalog(
		echoAgent("ops", "deploy"),
		echoAgent("docs", "deploy the docs"),
	)
	if got := QuickRoute(catalog, "deploy the docs site"); got != "docs" {
		t.Fatalf("expected docs to outrank ops, got %q", got)
	}
}

func TestQuickRouteTieBreaksOnCatalogOrder(t *testing.T) {
	catalog := subagent.NewCatalog(
		echoAgent("first", "widget"),
		echoAgent("second", "gadget"),
	)
	// Both match with score 1; the earlier definition keeps the win.
	if got := QuickRoute(catalog, "a widget and a gadget"); got != "first" {
		t.Fatalf("expected first on tie, got %q", got)
	}
}

func TestHandleFastPathSkipsLLM(t *testing.T) {
	p := &stubProvider{err: errors.New("must not be called")}
	o := New(p, routingCatalog(), nil, config.AgentConfig{FastPathRouting: true})

	res, err := o.Handle(context.Background(), "create a jira ticket for me", HandleOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if p.calls != 0 {
		t.Fatalf("fast path must not touch the LLM, got %d calls", p.calls)
	}
	if len(res.Delegations) != 1 || res.Delegations[0].Agent != "ticket" {
		t.Fatalf("expected one delegation to ticket, got %+v", res.Delegations)
	}
	if !strings.Contains(res.Answer, "ticket handled") {
		t.Fatalf("expected sub-agent answer, got %q", res.Answer)
	}
}

func delegateCall(id, agent, message string) llm.ToolCall {
	args, _ := json.Marshal(map[string]string{"agent": agent, "message": message})
	return llm.ToolCall{ID: id, Name: delegateToolName, Arguments: args}
}

func TestHandleDelegatesThroughLLM(t *testing.T) {
	p := &stubProvider{responses: []*llm.LLMResponse{
		{ToolCalls: []llm.ToolCall{delegateCall("d1", "docs", "write the page")}},
		{Content: "all done"},
	}}
	o := New(p, routingCatalog(), nil, config.AgentConfig{FastPathRouting: false})

	res, err := o.Handle(context.Background(), "something no trigger matches", HandleOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Answer != "all done" {
		t.Fatalf("expected final answer, got %q", res.Answer)
	}
	if len(res.Delegations) != 1 || res.Delegations[0].Agent != "docs" {
		t.Fatalf("expected one delegation to docs, got %+v", res.Delegations)
	}
	if !strings.Contains(res.Delegations[0].Result, "docs handled") {
		t.Fatalf("delegation result not recorded: %+v", res.Delegations[0])
	}
}

func TestHandleUnknownAgentBecomesErrorResult(t *testing.T) {
	p := &stubProvider{responses: []*llm.LLMResponse{
		{ToolCalls: []llm.ToolCall{delegateCall("d1", "ghost", "do a thing")}},
		{Content: "recovered"},
	}}
	o := New(p, routingCatalog(), nil, config.AgentConfig{FastPathRouting: false})

	res, err := o.Handle(context.Background(), "hello", HandleOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Answer != "recovered" {
		t.Fatalf("loop must survive an unknown agent, got %q", res.Answer)
	}
	if len(res.Delegations) != 0 {
		t.Fatalf("failed delegation must not be recorded, got %+v", res.Delegations)
	}
	// The error is fed back to the LLM as a tool result.
	trMsg := res.Messages[2]
	if len(trMsg.ToolResults) != 1 || !trMsg.ToolResults[0].IsError {
		t.Fatalf("expected one error tool result, got %+v", trMsg.ToolResults)
	}
	if !strings.Contains(trMsg.ToolResults[0].Content, "unknown agent") {
		t.Fatalf("expected unknown-agent message, got %q", trMsg.ToolResults[0].Content)
	}
}

func TestHandleFailingAgentBecomesErrorResult(t *testing.T) {
	catalog := subagent.NewCatalog(subagent.Definition{
		Key: "flaky",
		Handler: func(ctx context.Context, message string) (string, error) {
			return "", errors.New("downstream timeout")
		},
	})
	p := &stubProvider{responses: []*llm.LLMResponse{
		{ToolCalls: []llm.ToolCall{delegateCall("d1", "flaky", "try")}},
		{Content: "noted the failure"},
	}}
	o := New(p, catalog, nil, config.AgentConfig{FastPathRouting: false})

	res, err := o.Handle(context.Background(), "hello", HandleOptions{})
	if err != nil {
		t.Fatal(err)
	}
	trMsg := res.Messages[2]
	if !trMsg.ToolResults[0].IsError || !strings.Contains(trMsg.ToolResults[0].Content, "downstream timeout") {
		t.Fatalf("expected agent failure folded into tool result, got %+v", trMsg.ToolResults[0])
	}
	if len(res.Delegations) != 0 {
		t.Fatalf("failed delegation must not be recorded, got %+v", res.Delegations)
	}
}

func TestHandleDelegationBudgetIsSoft(t *testing.T) {
	p := &stubProvider{responses: []*llm.LLMResponse{
		{Content: "still routing", ToolCalls: []llm.ToolCall{delegateCall("d", "research", "dig")}},
	}}
	o := New(p, routingCatalog(), nil, config.AgentConfig{
		FastPathRouting:     false,
		RouterMaxIterations: 3,
	})

	res, err := o.Handle(context.Background(), "hello", HandleOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if p.calls != 3 {
		t.Fatalf("expected exactly 3 oracle calls, got %d", p.calls)
	}
	if res.Answer != "still routing" {
		t.Fatalf("expected last candidate answer, got %q", res.Answer)
	}
	if len(res.Delegations) != 3 {
		t.Fatalf("expected 3 recorded delegations, got %d", len(res.Delegations))
	}
}

func TestHandleBatchedDelegationsKeepIDs(t *testing.T) {
	p := &stubProvider{responses: []*llm.LLMResponse{
		{ToolCalls: []llm.ToolCall{
			delegateCall("a", "docs", "write"),
			delegateCall("b", "research", "read"),
		}},
		{Content: "combined"},
	}}
	o := New(p, routingCatalog(), nil, config.AgentConfig{FastPathRouting: false})

	res, err := o.Handle(context.Background(), "hello", HandleOptions{})
	if err != nil {
		t.Fatal(err)
	}
	trMsg := res.Messages[2]
	if len(trMsg.ToolResults) != 2 {
		t.Fatalf("expected both results in one message, got %d", len(trMsg.ToolResults))
	}
	byID := map[string]string{}
	for _, tr := range trMsg.ToolResults {
		byID[tr.ToolCallID] = tr.Content
	}
	if !strings.Contains(byID["a"], "docs handled") || !strings.Contains(byID["b"], "research handled") {
		t.Fatalf("results not correlated by call ID: %v", byID)
	}
	if len(res.Delegations) != 2 {
		t.Fatalf("expected 2 delegations, got %d", len(res.Delegations))
	}
}

func TestRouterPromptListsAgents(t *testing.T) {
	prompt := routerPrompt(routingCatalog())
	for _, key := range []string{"ticket", "docs", "code", "test", "research"} {
		if !strings.Contains(prompt, fmt.Sprintf("- %s:", key)) {
			t.Fatalf("router prompt missing agent %s:\n%s", key, prompt)
		}
	}
}
