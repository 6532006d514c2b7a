// Package memory persists conversation history and a tool-call audit log.
package memory

import (
	"context"

	"taskforge/internal/llm"
)

// Store is the interface for persistent conversation storage.
type Store interface {
	SaveMessage(ctx context.Context, chatID string, msg llm.Message) error
	GetHistory(ctx context.Context, chatID string, limit int) ([]llm.Message, error)
	RecordToolCall(ctx context.Context, chatID, toolName string, input []byte) error
	ToolCallCount(ctx context.Context, chatID string) (int, error)
	Close() error
}
