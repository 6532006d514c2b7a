package eventbus

import (
	"log"
	"sync"
	"time"
)

// Bus is a simple in-process pub/sub event bus. Agent loops, the RPC layer
// and the channels publish into it; subscribers (logging, reporting) are
// optional observers and must never be able to break a run.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[Topic][]Handler),
	}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic Topic, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish sends an event to all subscribers of the topic.
// Handlers are called synchronously in the order they were registered.
// A panicking handler is logged and skipped.
func (b *Bus) Publish(topic Topic, payload any) {
	event := Event{
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	for _, h := range b.snapshot(topic) {
		b.dispatch(h, event)
	}
}

// PublishAsync sends an event to all subscribers asynchronously.
func (b *Bus) PublishAsync(topic Topic, payload any) {
	event := Event{
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	for _, h := range b.snapshot(topic) {
		go b.dispatch(h, event)
	}
}

func (b *Bus) snapshot(topic Topic) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	return handlers
}

func (b *Bus) dispatch(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[eventbus] handler panic on %s: %v", e.Topic, r)
		}
	}()
	h(e)
}
