// Package rpc implements the tool-server protocol: newline-delimited
// JSON-RPC 2.0 messages carrying initialize/tools/list/tools/call/ping.
// The server role exposes the local tool registry over stdio; the client
// role onboards foreign tool providers (subprocess stdio or HTTP/SSE) and
// imports their tools into the registry under namespaced names.
package rpc

import (
	"encoding/json"
	"fmt"
)

const (
	// Version is the jsonrpc field value on every message.
	Version = "2.0"

	// ProtocolVersion is exchanged during the initialize handshake.
	ProtocolVersion = "2025-03-26"
)

// Error codes. InvalidParams doubles as "tool not found" on tools/call.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is one incoming or outgoing call. A nil ID marks a notification:
// no response is expected or sent.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool { return r.ID == nil }

// Response answers exactly one request, correlated by id. Exactly one of
// Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the JSON-RPC error object. It doubles as a Go error on the
// client side so callers can inspect the code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ToolSpec is the wire shape of one tool in tools/list.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// PeerInfo identifies one side of the handshake.
type PeerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities declares what the server offers. Only tools for now.
type Capabilities struct {
	Tools bool `json:"tools"`
}

// InitializeParams is sent by the client in the initialize request.
type InitializeParams struct {
	ProtocolVersion string   `json:"protocolVersion"`
	ClientInfo      PeerInfo `json:"clientInfo"`
}

// InitializeResult is the server's handshake reply.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      PeerInfo     `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

// ListToolsResult is the tools/list reply.
type ListToolsResult struct {
	Tools []ToolSpec `json:"tools"`
}

// CallParams is the tools/call request payload.
type CallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ContentBlock is one element of a tools/call result. Only text blocks
// are produced; non-string tool outputs are serialized to JSON text.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the tools/call reply.
type CallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// TextResult wraps a string as a single-block call result.
func TextResult(text string, isError bool) *CallResult {
	return &CallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: isError,
	}
}

// Text concatenates the text blocks of a call result.
func (r *CallResult) Text() string {
	switch len(r.Content) {
	case 0:
		return ""
	case 1:
		return r.Content[0].Text
	}
	out := ""
	for i, b := range r.Content {
		if i > 0 {
			out += "\n"
		}
		out += b.Text
	}
	return out
}
