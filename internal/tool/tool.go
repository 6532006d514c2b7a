package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool is the interface for agent tools.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage // JSON Schema
	Execute(ctx context.Context, args json.RawMessage) (*Result, error)
}

// Result is the output of a tool execution. Failure is part of the value:
// a handler that fails in an expected way returns IsError=true rather than
// a Go error, so one bad tool call never aborts an agent run.
type Result struct {
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
	IsError bool   `json:"is_error"`
}

// Text wraps a plain string as a successful result.
func Text(s string) *Result {
	return &Result{Output: s}
}

// Errorf builds a failed result.
func Errorf(format string, a ...any) *Result {
	return &Result{Error: fmt.Sprintf(format, a...), IsError: true}
}

// Func adapts a plain handler function to the Tool interface. Used for
// RPC-imported tools and synthetic tools like the orchestrator's delegate.
type Func struct {
	name        string
	description string
	params      json.RawMessage
	fn          func(ctx context.Context, args json.RawMessage) (*Result, error)
}

// NewFunc creates a function-backed tool.
func NewFunc(name, description string, params json.RawMessage, fn func(ctx context.Context, args json.RawMessage) (*Result, error)) *Func {
	if len(params) == 0 {
		params = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return &Func{name: name, description: description, params: params, fn: fn}
}

func (f *Func) Name() string                { return f.name }
func (f *Func) Description() string         { return f.description }
func (f *Func) Parameters() json.RawMessage { return f.params }

func (f *Func) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	return f.fn(ctx, args)
}
