// Package contextmgr runs tasks in fresh conversation contexts: each
// execution starts from an empty message history so unrelated work never
// leaks tokens or state between tasks.
package contextmgr

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"taskforge/internal/agent"
)

// Manager executes tasks through the shared engine, one fresh context
// per task.
type Manager struct {
	engine *agent.Engine
}

// NewManager creates a context manager over an engine.
func NewManager(engine *agent.Engine) *Manager {
	return &Manager{engine: engine}
}

// ExecuteFreshContext runs a single task in a brand-new conversation.
// Any Prior messages in opts are discarded. The run is attempted once;
// retrying is the caller's decision, not the manager's.
func (m *Manager) ExecuteFreshContext(ctx context.Context, task string, opts agent.RunOptions) (*agent.RunResult, error) {
	runID := uuid.NewString()
	opts.Prior = nil

	log.Printf("[contextmgr] run %s starting", runID)
	res, err := m.engine.Run(ctx, task, opts)
	if err != nil {
		log.Printf("[contextmgr] run %s failed: %v", runID, err)
		return nil, fmt.Errorf("fresh context run %s: %w", runID, err)
	}
	log.Printf("[contextmgr] run %s done (%d tool calls)", runID, len(res.ToolCalls))
	return res, nil
}

// ExecuteParallelContexts runs every task concurrently, each in its own
// fresh context. Results are positionally aligned with tasks. The first
// failure cancels the remaining runs and is returned.
func (m *Manager) ExecuteParallelContexts(ctx context.Context, tasks []string, opts agent.RunOptions) ([]*agent.RunResult, error) {
	results := make([]*agent.RunResult, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		g.Go(func() error {
			res, err := m.ExecuteFreshContext(gctx, task, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
