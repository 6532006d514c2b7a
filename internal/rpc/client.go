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
	"sync/atomic"
	"time"
)

// defaultCallTimeout guards every outbound request. It is a per-call
// limit; a timed-out call does not tear down the connection.
const defaultCallTimeout = 30 * time.Second

// ErrTimeout marks a call that exceeded the per-call timeout. The
// connection itself stays usable.
var ErrTimeout = errors.New("rpc: call timed out")

// Client is one foreign tool provider, regardless of transport.
type Client interface {
	Connect(ctx context.Context) error
	ListTools(ctx context.Context) ([]ToolSpec, error)
	CallTool(ctx context.Context, name string, args json.RawMessage) (*CallResult, error)
	Disconnect() error
}

// State is the stdio client's connection lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateReady
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// conn correlates requests and responses over a line-delimited duplex
// stream. Ids are monotonically increasing; each outstanding id has
// exactly one pending entry, retired the instant its response or timeout
// arrives.
type conn struct {
	label   string
	timeout time.Duration

	wmu sync.Mutex
	w   io.Writer

	nextID atomic.Int64

	pmu     sync.Mutex
	pending map[int64]chan *Response

	done      chan struct{}
	closeOnce sync.Once
}

func newConn(label string, w io.Writer, timeout time.Duration) *conn {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &conn{
		label:   label,
		timeout: timeout,
		w:       w,
		pending: make(map[int64]chan *Response),
		done:    make(chan struct{}),
	}
}

// readLoop consumes the peer's output until EOF. Lines that are not
// parseable responses, or whose id matches no pending request (e.g. a
// response arriving after its call already timed out), are logged and
// dropped; the peer may interleave diagnostics with protocol traffic.
func (c *conn) readLoop(r io.Reader) {
	defer c.closeOnce.Do(func() { close(c.done) })

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		buf := append([]byte(nil), line...)

		var resp Response
		if err := json.Unmarshal(buf, &resp); err != nil || resp.ID == nil {
			log.Printf("[rpc] %s: ignoring non-response line: %.120s", c.label, buf)
			continue
		}

		c.pmu.Lock()
		ch, ok := c.pending[*resp.ID]
		if ok {
			delete(c.pending, *resp.ID)
		}
		c.pmu.Unlock()
		if !ok {
			log.Printf("[rpc] %s: ignoring response with unmatched id %d", c.label, *resp.ID)
			continue
		}
		ch <- &resp
	}
	if err := scanner.Err(); err != nil {
		log.Printf("[rpc] %s: read loop ended: %v", c.label, err)
	}
}

// closed is signaled when the peer's output stream ends.
func (c *conn) closed() <-chan struct{} { return c.done }

// call sends one request and waits for its response, the per-call
// timeout, context cancellation, or connection close, whichever first.
func (c *conn) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	req := &Request{JSONRPC: Version, ID: &id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal %s params: %w", c.label, method, err)
		}
		req.Params = raw
	}

	ch := make(chan *Response, 1)
	c.pmu.Lock()
	c.pending[id] = ch
	c.pmu.Unlock()

	if err := c.writeLine(req); err != nil {
		c.retire(id)
		return nil, fmt.Errorf("%s: send %s: %w", c.label, method, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("%s: %s: %w", c.label, method, resp.Error)
		}
		return resp.Result, nil
	case <-timer.C:
		c.retire(id)
		return nil, fmt.Errorf("%s: %s request %d after %s: %w", c.label, method, id, c.timeout, ErrTimeout)
	case <-ctx.Done():
		c.retire(id)
		return nil, ctx.Err()
	case <-c.done:
		c.retire(id)
		return nil, fmt.Errorf("%s: connection closed while awaiting %s", c.label, method)
	}
}

// notify sends a request without an id; no response is awaited.
func (c *conn) notify(method string, params any) error {
	req := &Request{JSONRPC: Version, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("%s: marshal %s params: %w", c.label, method, err)
		}
		req.Params = raw
	}
	return c.writeLine(req)
}

func (c *conn) retire(id int64) {
	c.pmu.Lock()
	delete(c.pending, id)
	c.pmu.Unlock()
}

func (c *conn) writeLine(req *Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err = c.w.Write(append(data, '\n'))
	return err
}
