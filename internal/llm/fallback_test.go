package llm

import (
	"context"
	"errors"
	"testing"
)

type cannedProvider struct {
	name  string
	resp  *LLMResponse
	err   error
	calls int
}

func (c *cannedProvider) Chat(ctx context.Context, req *ChatRequest) (*LLMResponse, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.resp, nil
}

func (c *cannedProvider) StreamChat(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	return nil, errors.New("not implemented")
}

func (c *cannedProvider) Name() string         { return c.name }
func (c *cannedProvider) DefaultModel() string { return c.name + "-model" }

func TestFallbackUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &cannedProvider{name: "primary", resp: &LLMResponse{Content: "from primary"}}
	backup := &cannedProvider{name: "backup", resp: &LLMResponse{Content: "from backup"}}
	f := NewFallbackProvider(primary, backup)

	resp, err := f.Chat(context.Background(), &ChatRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "from primary" {
		t.Fatalf("expected primary, got %q", resp.Content)
	}
	if backup.calls != 0 {
		t.Fatalf("backup must not be called, got %d calls", backup.calls)
	}
}

func TestFallbackOnRetryableError(t *testing.T) {
	primary := &cannedProvider{name: "primary", err: &LLMError{Type: ErrorRateLimit, Message: "rate limited"}}
	backup := &cannedProvider{name: "backup", resp: &LLMResponse{Content: "from backup"}}
	f := NewFallbackProvider(primary, backup)

	resp, err := f.Chat(context.Background(), &ChatRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "from backup" {
		t.Fatalf("expected fallback answer, got %q", resp.Content)
	}
}

func TestFallbackStopsOnNonRetryableError(t *testing.T) {
	primary := &cannedProvider{name: "primary", err: &LLMError{Type: ErrorAuth, Message: "bad key"}}
	backup := &cannedProvider{name: "backup", resp: &LLMResponse{Content: "from backup"}}
	f := NewFallbackProvider(primary, backup)

	_, err := f.Chat(context.Background(), &ChatRequest{})
	if err == nil {
		t.Fatal("expected the auth error to surface")
	}
	if backup.calls != 0 {
		t.Fatalf("auth failures must not fall through, backup got %d calls", backup.calls)
	}
}

func TestFallbackExhaustedReturnsLastError(t *testing.T) {
	a := &cannedProvider{name: "a", err: &LLMError{Type: ErrorServerError, Message: "a down"}}
	b := &cannedProvider{name: "b", err: &LLMError{Type: ErrorServerError, Message: "b down"}}
	f := NewFallbackProvider(a, b)

	_, err := f.Chat(context.Background(), &ChatRequest{})
	if err == nil || err.Error() != "b down" {
		t.Fatalf("expected the last provider's error, got %v", err)
	}
}
