package eventbus

import "time"

// Topic represents an event topic.
type Topic string

const (
	TopicInboundMessage  Topic = "inbound_message"
	TopicOutboundMessage Topic = "outbound_message"
	TopicLLMRequest      Topic = "llm_request"
	TopicLLMResponse     Topic = "llm_response"
	TopicToolCall        Topic = "tool_call"
	TopicToolResult      Topic = "tool_result"
	TopicDelegation      Topic = "delegation"
	TopicRPCConnected    Topic = "rpc_connected"
	TopicRPCToolImport   Topic = "rpc_tool_import"
	TopicError           Topic = "error"
)

// Event is a message passed through the event bus.
type Event struct {
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// Handler processes an event.
type Handler func(Event)
