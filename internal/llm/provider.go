package llm

import "context"

// Provider is one oracle backend. Implementations classify their
// failures as *LLMError so the fallback chain can tell a transient
// outage from a fatal misconfiguration.
type Provider interface {
	// Chat performs one completion round trip.
	Chat(ctx context.Context, req *ChatRequest) (*LLMResponse, error)

	// StreamChat performs one completion with incremental delivery.
	StreamChat(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error)

	// Name identifies the backend ("anthropic", "openai", ...).
	Name() string

	// DefaultModel is used when a request names no model.
	DefaultModel() string
}

// LLMError carries an ErrorType classification alongside the raw error.
type LLMError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *LLMError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *LLMError) Unwrap() error { return e.Err }
