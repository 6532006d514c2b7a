package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"taskforge/internal/llm"
)

// ErrUnknownTool is returned by Execute for names that were never registered.
var ErrUnknownTool = errors.New("unknown tool")

// ErrInvalidInput is returned by Execute when the arguments do not satisfy
// the tool's declared JSON Schema. The handler is never invoked in that case.
var ErrInvalidInput = errors.New("invalid tool input")

type entry struct {
	tool   Tool
	schema *jsonschema.Schema // nil when the declared schema did not compile
}

// Registry is the in-memory tool catalog. It is an injected dependency of
// the agent engine and the RPC server, never package-level state.
//
// Registration order is the canonical catalog order: Definitions and Names
// report tools in the order they were first registered, and re-registering
// a name keeps its original position.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// Register adds a tool under its name. Last write wins on collision; callers
// importing foreign tools must pre-qualify names to avoid collisions.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	schema, err := compileSchema(t.Parameters())
	if err != nil {
		// A broken schema disables validation for this tool only.
		log.Printf("[registry] tool %s: schema does not compile, skipping validation: %v", name, err)
		schema = nil
	}
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = entry{tool: t, schema: schema}
}

// Unregister removes a tool.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return e.tool, nil
}

// Execute validates args against the tool's declared schema and runs its
// handler. Handler errors are surfaced to the caller untouched; it is the
// caller's job (agent engine, RPC server) to fold them into its own error
// shape.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (*Result, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if e.schema != nil {
		v, err := jsonschema.UnmarshalJSON(bytes.NewReader(args))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, name, err)
		}
		if err := e.schema.Validate(v); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, name, err)
		}
	}

	return e.tool.Execute(ctx, args)
}

// Definitions returns tool definitions for LLM requests, in registration
// order. With a filter, only the named tools are returned (still in
// registration order); unknown names are silently dropped.
func (r *Registry) Definitions(names ...string) []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var want map[string]bool
	if len(names) > 0 {
		want = make(map[string]bool, len(names))
		for _, n := range names {
			want[n] = true
		}
	}

	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		if want != nil && !want[name] {
			continue
		}
		t := r.tools[name].tool
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

func compileSchema(raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty schema")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("tool.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("tool.json")
}
