package channel

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Manager owns channel lifecycle. Channels register under their Name;
// re-registering a name replaces the previous channel.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

func NewManager() *Manager {
	return &Manager{channels: make(map[string]Channel)}
}

func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// StartAll starts every registered channel and stops at the first
// failure; channels already started stay running for StopAll to reap.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("start channel %s: %w", name, err)
		}
		log.Printf("[channel] %s started", name)
	}
	return nil
}

// StopAll stops every running channel; stop failures are logged, not
// returned, so one stuck channel cannot block shutdown.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, ch := range m.channels {
		if !ch.IsRunning() {
			continue
		}
		if err := ch.Stop(ctx); err != nil {
			log.Printf("[channel] stopping %s: %v", name, err)
			continue
		}
		log.Printf("[channel] %s stopped", name)
	}
}

// Get returns a registered channel by name.
func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// List reports every registered channel and whether it is running.
func (m *Manager) List() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state := make(map[string]bool, len(m.channels))
	for name, ch := range m.channels {
		state[name] = ch.IsRunning()
	}
	return state
}
