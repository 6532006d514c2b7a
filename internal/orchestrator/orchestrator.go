// Package orchestrator routes user requests to sub-agents: either through
// a cheap keyword fast path or by letting the LLM pick delegations via a
// single synthetic delegate_to_agent tool.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"taskforge/internal/config"
	"taskforge/internal/eventbus"
	"taskforge/internal/llm"
	"taskforge/internal/subagent"
)

const (
	delegateToolName       = "delegate_to_agent"
	defaultMaxDelegations  = 10
	defaultOrchestratorMax = 4096
)

// Delegation records one completed hand-off to a sub-agent.
type Delegation struct {
	Agent  string `json:"agent"`
	Result string `json:"result"`
}

// Result is the outcome of handling one user request.
type Result struct {
	Answer      string
	Delegations []Delegation
	Messages    []llm.Message
}

// HandleOptions tweaks a single Handle call.
type HandleOptions struct {
	Prior []llm.Message // optional conversation prefix (e.g. chat history)
}

// Orchestrator is a meta-agent: the same bounded loop as the engine, but
// the only tool the LLM ever sees is delegate_to_agent, and "executing" it
// means running a whole sub-agent underneath.
type Orchestrator struct {
	provider      llm.Provider
	catalog       *subagent.Catalog
	bus           *eventbus.Bus
	systemPrompt  string
	maxIterations int
	maxTokens     int
	fastPath      bool
}

// New creates an orchestrator over a sub-agent catalog.
func New(provider llm.Provider, catalog *subagent.Catalog, bus *eventbus.Bus, cfg config.AgentConfig) *Orchestrator {
	maxIter := cfg.RouterMaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxDelegations
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultOrchestratorMax
	}
	return &Orchestrator{
		provider:      provider,
		catalog:       catalog,
		bus:           bus,
		systemPrompt:  routerPrompt(catalog),
		maxIterations: maxIter,
		maxTokens:     maxTokens,
		fastPath:      cfg.FastPathRouting,
	}
}

// Handle routes one user request. With fast-path routing enabled, a
// keyword match skips the LLM entirely and invokes the matched sub-agent
// directly; otherwise the LLM decides which agents to delegate to.
func (o *Orchestrator) Handle(ctx context.Context, message string, opts HandleOptions) (*Result, error) {
	if o.fastPath {
		if key := o.QuickRoute(message); key != "" {
			log.Printf("[orchestrator] fast-path routed to %s", key)
			def, _ := o.catalog.Get(key)
			answer, err := def.Handler(ctx, message)
			if err != nil {
				return nil, fmt.Errorf("sub-agent %s: %w", key, err)
			}
			o.publish(eventbus.TopicDelegation, Delegation{Agent: key, Result: answer})
			return &Result{
				Answer:      answer,
				Delegations: []Delegation{{Agent: key, Result: answer}},
			}, nil
		}
	}
	return o.delegateLoop(ctx, message, opts)
}

// delegateLoop is the oracle-driven routing loop.
func (o *Orchestrator) delegateLoop(ctx context.Context, message string, opts HandleOptions) (*Result, error) {
	messages := make([]llm.Message, 0, len(opts.Prior)+1)
	messages = append(messages, opts.Prior...)
	messages = append(messages, llm.Message{Role: "user", Content: message})

	tools := []llm.ToolDefinition{o.delegateDefinition()}

	var final string
	var delegations []Delegation

	for i := 0; i < o.maxIterations; i++ {
		req := &llm.ChatRequest{
			Messages:     messages,
			Tools:        tools,
			MaxTokens:    o.maxTokens,
			SystemPrompt: o.systemPrompt,
		}

		o.publish(eventbus.TopicLLMRequest, req)
		resp, err := o.provider.Chat(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("LLM error: %w", err)
		}
		o.publish(eventbus.TopicLLMResponse, resp)

		if resp.Content != "" {
			final = resp.Content
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			return &Result{Answer: final, Delegations: delegations, Messages: messages}, nil
		}

		results := make([]llm.ToolResult, len(resp.ToolCalls))
		done := make([]Delegation, len(resp.ToolCalls))
		var wg sync.WaitGroup
		for idx, tc := range resp.ToolCalls {
			wg.Add(1)
			go func(idx int, tc llm.ToolCall) {
				defer wg.Done()
				d, tr := o.delegate(ctx, tc)
				done[idx] = d
				results[idx] = tr
			}(idx, tc)
		}
		wg.Wait()

		for _, d := range done {
			if d.Agent != "" {
				delegations = append(delegations, d)
				o.publish(eventbus.TopicDelegation, d)
			}
		}
		messages = append(messages, llm.NewToolResultMessage(results))
	}

	log.Printf("[orchestrator] delegation budget (%d) exhausted", o.maxIterations)
	return &Result{Answer: final, Delegations: delegations, Messages: messages}, nil
}

// delegate executes one delegate_to_agent call. Routing mistakes (wrong
// tool name, unknown agent) become inline error results so the loop is
// never aborted by a bad decision.
func (o *Orchestrator) delegate(ctx context.Context, tc llm.ToolCall) (Delegation, llm.ToolResult) {
	tr := llm.ToolResult{ToolCallID: tc.ID}

	if tc.Name != delegateToolName {
		tr.Content = fmt.Sprintf("unknown tool: %s (only %s is available)", tc.Name, delegateToolName)
		tr.IsError = true
		return Delegation{}, tr
	}

	var params struct {
		Agent   string `json:"agent"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(tc.Arguments, &params); err != nil {
		tr.Content = "invalid delegation arguments: " + err.Error()
		tr.IsError = true
		return Delegation{}, tr
	}

	def, ok := o.catalog.Get(params.Agent)
	if !ok {
		tr.Content = fmt.Sprintf("unknown agent: %q (available: %s)", params.Agent, strings.Join(o.catalog.Keys(), ", "))
		tr.IsError = true
		return Delegation{}, tr
	}

	answer, err := def.Handler(ctx, params.Message)
	if err != nil {
		tr.Content = fmt.Sprintf("agent %s failed: %v", params.Agent, err)
		tr.IsError = true
		return Delegation{}, tr
	}

	tr.Content = answer
	return Delegation{Agent: params.Agent, Result: answer}, tr
}

func (o *Orchestrator) delegateDefinition() llm.ToolDefinition {
	keys, err := json.Marshal(o.catalog.Keys())
	if err != nil {
		keys = []byte(`[]`)
	}
	schema := fmt.Sprintf(`{
		"type": "object",
		"properties": {
			"agent": {"type": "string", "enum": %s, "description": "The sub-agent to delegate to"},
			"message": {"type": "string", "description": "The task for the sub-agent, self-contained"}
		},
		"required": ["agent", "message"]
	}`, keys)
	return llm.ToolDefinition{
		Name:        delegateToolName,
		Description: "Delegate a task to a specialized sub-agent and receive its answer.",
		Parameters:  json.RawMessage(schema),
	}
}

func routerPrompt(catalog *subagent.Catalog) string {
	var sb strings.Builder
	sb.WriteString("You are the task router. Break the user's request into tasks and delegate each to the best sub-agent using delegate_to_agent. Available sub-agents:\n")
	for _, def := range catalog.All() {
		fmt.Fprintf(&sb, "- %s: %s\n", def.Key, def.Description)
	}
	sb.WriteString("When all delegations are done, reply with the final answer and no more tool calls.")
	return sb.String()
}

func (o *Orchestrator) publish(topic eventbus.Topic, payload any) {
	if o.bus != nil {
		o.bus.Publish(topic, payload)
	}
}
