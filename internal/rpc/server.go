package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"taskforge/internal/tool"
)

// maxLineBytes bounds a single protocol line. Oversized lines abort the
// read loop rather than silently truncating a request.
const maxLineBytes = 4 * 1024 * 1024

// Server exposes a tool registry over newline-delimited JSON-RPC. Each
// parsed request is dispatched on its own goroutine, so responses may be
// written out of request order; correlation is by id only.
type Server struct {
	registry *tool.Registry
	in       io.Reader

	wmu sync.Mutex
	out io.Writer

	info PeerInfo
}

// NewServer creates a server over the given streams. The registry is
// injected, never global.
func NewServer(registry *tool.Registry, in io.Reader, out io.Writer, name, version string) *Server {
	return &Server{
		registry: registry,
		in:       in,
		out:      out,
		info:     PeerInfo{Name: name, Version: version},
	}
}

// Run reads requests until the input stream closes or ctx is cancelled,
// then waits for all in-flight handlers to finish. Both stream close and
// cancellation (e.g. SIGINT) are normal shutdowns, not errors.
func (s *Server) Run(ctx context.Context) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go s.readLines(ctx, lines, readErr)

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			// The reader may stay blocked on its stream; process exit
			// reclaims it. In-flight handlers still get to finish.
			wg.Wait()
			log.Printf("[rpc] server: shutdown requested, exiting")
			return nil
		case buf, ok := <-lines:
			if !ok {
				wg.Wait()
				if err := <-readErr; err != nil {
					return fmt.Errorf("rpc server read: %w", err)
				}
				log.Printf("[rpc] server: input closed, shutting down")
				return nil
			}

			var req Request
			if err := json.Unmarshal(buf, &req); err != nil {
				// No id can be recovered from an unparseable line.
				s.write(&Response{
					JSONRPC: Version,
					Error:   &Error{Code: CodeParseError, Message: "parse error", Data: err.Error()},
				})
				continue
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				s.dispatch(ctx, &req)
			}()
		}
	}
}

// readLines feeds copied input lines to Run. The copy matters: the
// scanner reuses its buffer, and a request's raw params must not alias
// it once dispatch runs concurrently.
func (s *Server) readLines(ctx context.Context, lines chan<- []byte, readErr chan<- error) {
	defer close(lines)
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		buf := append([]byte(nil), line...)
		select {
		case lines <- buf:
		case <-ctx.Done():
			readErr <- nil
			return
		}
	}
	readErr <- scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) {
	switch req.Method {
	case "initialize":
		s.reply(req, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      s.info,
			Capabilities:    Capabilities{Tools: true},
		})
	case "initialized", "notifications/initialized":
		// Usually a notification; a peer that attaches an id still gets
		// its one response.
		s.reply(req, struct{}{})
	case "ping":
		s.reply(req, map[string]string{"status": "ok"})
	case "tools/list":
		s.reply(req, ListToolsResult{Tools: s.listTools()})
	case "tools/call":
		s.handleCall(ctx, req)
	default:
		if req.IsNotification() {
			return
		}
		s.replyError(req, CodeMethodNotFound, "method not found: "+req.Method, nil)
	}
}

func (s *Server) listTools() []ToolSpec {
	defs := s.registry.Definitions()
	specs := make([]ToolSpec, len(defs))
	for i, d := range defs {
		specs[i] = ToolSpec{Name: d.Name, Description: d.Description, InputSchema: d.Parameters}
	}
	return specs
}

func (s *Server) handleCall(ctx context.Context, req *Request) {
	var params CallParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		s.replyError(req, CodeInvalidParams, "invalid tools/call params", nil)
		return
	}

	res, err := s.registry.Execute(ctx, params.Name, params.Arguments)
	switch {
	case errors.Is(err, tool.ErrUnknownTool), errors.Is(err, tool.ErrInvalidInput):
		s.replyError(req, CodeInvalidParams, err.Error(), nil)
	case err != nil:
		s.replyError(req, CodeInternalError, "tool execution failed", err.Error())
	case res.IsError:
		s.reply(req, TextResult(res.Error, true))
	default:
		s.reply(req, TextResult(res.Output, false))
	}
}

func (s *Server) reply(req *Request, result any) {
	if req.IsNotification() {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		s.replyError(req, CodeInternalError, "result serialization failed", err.Error())
		return
	}
	s.write(&Response{JSONRPC: Version, ID: req.ID, Result: raw})
}

func (s *Server) replyError(req *Request, code int, message string, data any) {
	if req.IsNotification() {
		return
	}
	s.write(&Response{JSONRPC: Version, ID: req.ID, Error: &Error{Code: code, Message: message, Data: data}})
}

// write appends one response line. The mutex keeps concurrent handlers
// from interleaving bytes within a line.
func (s *Server) write(resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[rpc] server: dropping unserializable response: %v", err)
		return
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		log.Printf("[rpc] server: write failed: %v", err)
	}
}
