package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"taskforge/internal/eventbus"
	"taskforge/internal/llm"
	"taskforge/internal/tool"
)

const defaultMaxIterations = 25

// ToolCallRecord is an audit entry for one tool invocation during a run.
// It is reporting-only; control flow never reads it back.
type ToolCallRecord struct {
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// RunOptions configures a single engine run.
type RunOptions struct {
	SystemPrompt  string
	MaxIterations int           // 0 means the engine default
	ToolNames     []string      // nil/empty means the full catalog
	Prior         []llm.Message // optional conversation prefix
	MaxTokens     int
	Temperature   float64
}

// RunResult is always produced, even when the iteration budget ran out —
// a budget exit is a soft, possibly incomplete result, not an error.
type RunResult struct {
	Result    string
	Messages  []llm.Message
	ToolCalls []ToolCallRecord
}

// Engine drives one bounded think→act→observe loop against the LLM:
// call the model, execute every tool call it issued, feed the results
// back, and stop when a reply arrives without tool calls.
type Engine struct {
	provider  llm.Provider
	registry  *tool.Registry
	bus       *eventbus.Bus
	maxTokens int
}

// NewEngine creates an engine bound to a provider and a tool registry.
// The registry is injected; the engine holds no global state.
func NewEngine(provider llm.Provider, registry *tool.Registry, bus *eventbus.Bus, maxTokens int) *Engine {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Engine{
		provider:  provider,
		registry:  registry,
		bus:       bus,
		maxTokens: maxTokens,
	}
}

// Registry exposes the injected registry for callers that wire tools late
// (RPC tool import happens after engine construction).
func (e *Engine) Registry() *tool.Registry { return e.registry }

// Run executes the loop for one user message. A provider failure aborts
// the run with an error; a tool failure is folded into the conversation
// and the loop continues.
func (e *Engine) Run(ctx context.Context, userMessage string, opts RunOptions) (*RunResult, error) {
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = e.maxTokens
	}

	messages := make([]llm.Message, 0, len(opts.Prior)+1)
	messages = append(messages, opts.Prior...)
	messages = append(messages, llm.Message{Role: "user", Content: userMessage})

	var final string
	var records []ToolCallRecord

	for i := 0; i < maxIter; i++ {
		req := &llm.ChatRequest{
			Messages:     messages,
			Tools:        e.registry.Definitions(opts.ToolNames...),
			MaxTokens:    maxTokens,
			Temperature:  opts.Temperature,
			SystemPrompt: opts.SystemPrompt,
		}

		e.publish(eventbus.TopicLLMRequest, req)
		resp, err := e.provider.Chat(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("LLM error: %w", err)
		}
		e.publish(eventbus.TopicLLMResponse, resp)

		if resp.Content != "" {
			final = resp.Content
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			return &RunResult{Result: final, Messages: messages, ToolCalls: records}, nil
		}

		for _, tc := range resp.ToolCalls {
			records = append(records, ToolCallRecord{Name: tc.Name, Input: tc.Arguments})
		}

		results := e.executeBatch(ctx, resp.ToolCalls)
		messages = append(messages, llm.NewToolResultMessage(results))
	}

	log.Printf("[agent] iteration budget (%d) exhausted, returning last answer", maxIter)
	return &RunResult{Result: final, Messages: messages, ToolCalls: records}, nil
}

// executeBatch runs all tool calls from one assistant turn as a concurrent
// batch and waits for every one of them. Order between sibling calls is
// not guaranteed; results are correlated by call ID, not position.
func (e *Engine) executeBatch(ctx context.Context, calls []llm.ToolCall) []llm.ToolResult {
	results := make([]llm.ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, tc := range calls {
		wg.Add(1)
		go func(i int, tc llm.ToolCall) {
			defer wg.Done()
			results[i] = e.executeOne(ctx, tc)
		}(i, tc)
	}
	wg.Wait()
	return results
}

// executeOne invokes a single tool and folds any failure into a
// structured error payload so the run never aborts on a bad tool call.
func (e *Engine) executeOne(ctx context.Context, tc llm.ToolCall) (result llm.ToolResult) {
	result = llm.ToolResult{ToolCallID: tc.ID}
	defer func() {
		if r := recover(); r != nil {
			result.Content = errorPayload(fmt.Sprintf("tool %s panicked: %v", tc.Name, r))
			result.IsError = true
		}
	}()

	e.publish(eventbus.TopicToolCall, tc)

	res, err := e.registry.Execute(ctx, tc.Name, tc.Arguments)
	switch {
	case err != nil:
		result.Content = errorPayload(err.Error())
		result.IsError = true
	case res.IsError:
		result.Content = errorPayload(res.Error)
		result.IsError = true
	default:
		result.Content = res.Output
	}

	e.publish(eventbus.TopicToolResult, result)
	return result
}

func (e *Engine) publish(topic eventbus.Topic, payload any) {
	if e.bus != nil {
		e.bus.Publish(topic, payload)
	}
}

func errorPayload(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}
