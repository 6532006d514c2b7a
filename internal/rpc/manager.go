package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"taskforge/internal/config"
	"taskforge/internal/eventbus"
	"taskforge/internal/tool"
)

// importPrefix qualifies imported tool names so foreign tools can never
// collide with built-ins or with each other across providers.
const importPrefix = "rpc"

// Manager onboards configured tool providers and imports their tools into
// the shared registry. One provider failing to connect never blocks the
// others; it just contributes zero tools.
type Manager struct {
	registry *tool.Registry
	bus      *eventbus.Bus

	mu      sync.Mutex
	clients map[string]Client
}

// NewManager creates a manager over a registry.
func NewManager(registry *tool.Registry, bus *eventbus.Bus) *Manager {
	return &Manager{
		registry: registry,
		bus:      bus,
		clients:  make(map[string]Client),
	}
}

// ConnectAll connects every configured provider and returns the total
// number of imported tools. Failures are logged per provider.
func (m *Manager) ConnectAll(ctx context.Context, providers []config.ProviderConfig) int {
	total := 0
	for _, p := range providers {
		client, err := newClient(p)
		if err != nil {
			log.Printf("[rpc] provider %s: %v, skipping", p.Name, err)
			continue
		}
		n, err := m.connectOne(ctx, p.Name, client)
		if err != nil {
			log.Printf("[rpc] provider %s: %v (0 tools discovered)", p.Name, err)
			client.Disconnect()
			continue
		}
		total += n
	}
	return total
}

func (m *Manager) connectOne(ctx context.Context, provider string, client Client) (int, error) {
	if err := client.Connect(ctx); err != nil {
		return 0, err
	}
	m.publish(eventbus.TopicRPCConnected, provider)

	specs, err := client.ListTools(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tools: %w", err)
	}

	for _, spec := range specs {
		m.registry.Register(importedTool(client, provider, spec))
		m.publish(eventbus.TopicRPCToolImport, importedName(provider, spec.Name))
	}

	m.mu.Lock()
	m.clients[provider] = client
	m.mu.Unlock()

	log.Printf("[rpc] provider %s: imported %d tools", provider, len(specs))
	return len(specs), nil
}

// DisconnectAll tears down every live provider connection.
func (m *Manager) DisconnectAll() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]Client)
	m.mu.Unlock()

	for name, client := range clients {
		if err := client.Disconnect(); err != nil {
			log.Printf("[rpc] provider %s: disconnect: %v", name, err)
		}
	}
}

func newClient(p config.ProviderConfig) (Client, error) {
	switch p.Transport {
	case "stdio":
		if p.Command == "" {
			return nil, fmt.Errorf("stdio transport needs a command")
		}
		return NewStdioClient(p.Name, p.Command, p.Args, p.Env), nil
	case "sse":
		if p.URL == "" {
			return nil, fmt.Errorf("sse transport needs a url")
		}
		return NewSSEClient(p.Name, p.URL), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", p.Transport)
	}
}

func importedName(provider, toolName string) string {
	return fmt.Sprintf("%s_%s_%s", importPrefix, provider, toolName)
}

// importedTool wraps a remote tool as a registry entry. To the agent
// engine it is indistinguishable from a built-in.
func importedTool(client Client, provider string, spec ToolSpec) tool.Tool {
	remote := spec.Name
	return tool.NewFunc(
		importedName(provider, remote),
		spec.Description,
		spec.InputSchema,
		func(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
			res, err := client.CallTool(ctx, remote, args)
			if err != nil {
				return nil, fmt.Errorf("provider %s tool %s: %w", provider, remote, err)
			}
			if res.IsError {
				return tool.Errorf("%s", res.Text()), nil
			}
			return tool.Text(res.Text()), nil
		},
	)
}

func (m *Manager) publish(topic eventbus.Topic, payload any) {
	if m.bus != nil {
		m.bus.Publish(topic, payload)
	}
}
