package llm

import (
	"context"
	"errors"
	"log"
)

// FallbackProvider chains oracle providers. Every request starts at the
// head of the chain; a later provider is consulted only when the current
// one fails with an error that a different backend could plausibly
// survive (rate limit, outage, network). Fatal classifications (bad key,
// rejected input) stop the chain immediately.
type FallbackProvider struct {
	chain []Provider
}

// NewFallbackProvider builds a chain; the first provider is primary.
func NewFallbackProvider(chain ...Provider) *FallbackProvider {
	return &FallbackProvider{chain: chain}
}

func (f *FallbackProvider) Name() string {
	if len(f.chain) == 0 {
		return "fallback"
	}
	return f.chain[0].Name() + "+fallback"
}

func (f *FallbackProvider) DefaultModel() string {
	if len(f.chain) == 0 {
		return ""
	}
	return f.chain[0].DefaultModel()
}

func (f *FallbackProvider) Chat(ctx context.Context, req *ChatRequest) (*LLMResponse, error) {
	return failover(f.chain, "chat", func(p Provider) (*LLMResponse, error) {
		return p.Chat(ctx, req)
	})
}

func (f *FallbackProvider) StreamChat(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	return failover(f.chain, "stream", func(p Provider) (<-chan StreamEvent, error) {
		return p.StreamChat(ctx, req)
	})
}

// failover walks the chain until a call succeeds or a fatal error stops
// it; with every provider down, the last error is returned.
func failover[T any](chain []Provider, op string, call func(Provider) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i, p := range chain {
		out, err := call(p)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if isFatal(err) {
			return zero, err
		}
		if i < len(chain)-1 {
			log.Printf("[fallback] %s on %s failed: %v, trying next provider", op, p.Name(), err)
		}
	}
	return zero, lastErr
}

// isFatal reports whether the error would repeat identically on any
// provider, making failover pointless.
func isFatal(err error) bool {
	var llmErr *LLMError
	if !errors.As(err, &llmErr) {
		return false
	}
	switch llmErr.Type {
	case ErrorAuth, ErrorInvalidInput:
		return true
	}
	return false
}
