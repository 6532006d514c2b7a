// Package app binds the channels, the conversation store and the
// orchestrator into the running assistant.
package app

import (
	"context"
	"encoding/json"
	"log"

	"taskforge/internal/channel"
	"taskforge/internal/config"
	"taskforge/internal/eventbus"
	"taskforge/internal/llm"
	"taskforge/internal/memory"
	"taskforge/internal/orchestrator"
	"taskforge/internal/security"
)

const defaultHistoryLimit = 50

// Router routes one user request to sub-agents. Satisfied by the
// orchestrator.
type Router interface {
	Handle(ctx context.Context, message string, opts orchestrator.HandleOptions) (*orchestrator.Result, error)
}

// App processes inbound messages from all channels through the router
// and relays answers back, persisting the exchange.
type App struct {
	cfg     config.AgentConfig
	router  Router
	store   memory.Store
	bus     *eventbus.Bus
	chanMgr *channel.Manager
	auth    *security.Authorizer
}

// New creates the application core.
func New(
	cfg config.AgentConfig,
	router Router,
	store memory.Store,
	bus *eventbus.Bus,
	chanMgr *channel.Manager,
	auth *security.Authorizer,
) *App {
	return &App{
		cfg:     cfg,
		router:  router,
		store:   store,
		bus:     bus,
		chanMgr: chanMgr,
		auth:    auth,
	}
}

// Start wires every running channel to the message handler.
func (a *App) Start(ctx context.Context) {
	for name, running := range a.chanMgr.List() {
		if !running {
			continue
		}
		ch, ok := a.chanMgr.Get(name)
		if !ok {
			continue
		}
		ch.OnMessage(func(msg channel.InboundMessage) {
			a.bus.Publish(eventbus.TopicInboundMessage, msg)
			a.handleMessage(ctx, msg)
		})
	}
	log.Println("[app] started and listening for messages")
}

func (a *App) handleMessage(ctx context.Context, msg channel.InboundMessage) {
	if a.auth != nil && !a.auth.IsAllowed(msg.SenderID) {
		log.Printf("[app] unauthorized sender %s on %s, ignoring", msg.SenderID, msg.ChannelName)
		return
	}

	log.Printf("[app] processing message from %s (%s): %s", msg.SenderName, msg.ChannelName, truncate(msg.Text, 100))

	response, err := a.Process(ctx, msg.ChatID, msg.Text)
	if err != nil {
		log.Printf("[app] error processing message: %v", err)
		response = "Sorry, I ran into an error handling that. Please try again."
		a.bus.Publish(eventbus.TopicError, err)
	}

	ch, ok := a.chanMgr.Get(msg.ChannelName)
	if !ok {
		log.Printf("[app] channel %s not found", msg.ChannelName)
		return
	}

	outMsg := channel.OutboundMessage{ChatID: msg.ChatID, Text: response}
	a.bus.Publish(eventbus.TopicOutboundMessage, outMsg)

	if err := ch.Send(ctx, outMsg); err != nil {
		log.Printf("[app] error sending response: %v", err)
	}
}

// Process runs one request through the router, seeding it with the chat's
// stored history and persisting the exchange afterwards. Used by the
// channel handler and the one-shot CLI mode alike.
func (a *App) Process(ctx context.Context, chatID, text string) (string, error) {
	limit := a.cfg.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var prior []llm.Message
	if a.store != nil {
		history, err := a.store.GetHistory(ctx, chatID, limit)
		if err != nil {
			log.Printf("[app] failed to load history: %v", err)
		} else {
			prior = history
		}
	}

	res, err := a.router.Handle(ctx, text, orchestrator.HandleOptions{Prior: prior})
	if err != nil {
		return "", err
	}

	if a.store != nil {
		a.persist(ctx, chatID, text, res)
	}
	return res.Answer, nil
}

func (a *App) persist(ctx context.Context, chatID, text string, res *orchestrator.Result) {
	if err := a.store.SaveMessage(ctx, chatID, llm.Message{Role: "user", Content: text}); err != nil {
		log.Printf("[app] failed to save user message: %v", err)
	}
	if err := a.store.SaveMessage(ctx, chatID, llm.Message{Role: "assistant", Content: res.Answer}); err != nil {
		log.Printf("[app] failed to save assistant message: %v", err)
	}
	for _, d := range res.Delegations {
		input, _ := json.Marshal(d)
		if err := a.store.RecordToolCall(ctx, chatID, "delegate_to_agent", input); err != nil {
			log.Printf("[app] failed to audit delegation: %v", err)
		}
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
