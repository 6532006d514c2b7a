package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// StdioClient talks to a tool provider running as a child process, over
// its stdin/stdout. Lifecycle: Disconnected, Connecting (spawn), then
// Handshaking (initialize/initialized), then Ready; Disconnect or child
// exit returns it to Disconnected.
type StdioClient struct {
	name    string
	command string
	args    []string
	env     map[string]string
	timeout time.Duration

	state atomic.Int32

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	conn  *conn
}

// NewStdioClient prepares a client; nothing is spawned until Connect.
func NewStdioClient(name, command string, args []string, env map[string]string) *StdioClient {
	return &StdioClient{
		name:    name,
		command: command,
		args:    args,
		env:     env,
		timeout: defaultCallTimeout,
	}
}

// State returns the current lifecycle state.
func (c *StdioClient) State() State { return State(c.state.Load()) }

// Connect spawns the child process and performs the handshake. On any
// failure the child is torn down and the client returns to Disconnected.
func (c *StdioClient) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return fmt.Errorf("provider %s: connect in state %s", c.name, c.State())
	}

	cmd := exec.Command(c.command, c.args...)
	cmd.Env = os.Environ()
	for k, v := range c.env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("provider %s: stdin pipe: %w", c.name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("provider %s: stdout pipe: %w", c.name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("provider %s: stderr pipe: %w", c.name, err)
	}

	if err := cmd.Start(); err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("provider %s: spawn %s: %w", c.name, c.command, err)
	}

	cn := newConn(c.name, stdin, c.timeout)
	go cn.readLoop(stdout)
	go logStderr(c.name, stderr)

	c.mu.Lock()
	c.cmd, c.stdin, c.conn = cmd, stdin, cn
	c.mu.Unlock()

	c.state.Store(int32(StateHandshaking))
	if err := c.handshake(ctx, cn); err != nil {
		c.Disconnect()
		return fmt.Errorf("provider %s: handshake: %w", c.name, err)
	}

	c.state.Store(int32(StateReady))
	log.Printf("[rpc] provider %s: connected (pid %d)", c.name, cmd.Process.Pid)
	return nil
}

func (c *StdioClient) handshake(ctx context.Context, cn *conn) error {
	params := InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo:      PeerInfo{Name: "taskforge", Version: "1.0"},
	}
	raw, err := cn.call(ctx, "initialize", params)
	if err != nil {
		return err
	}
	var init InitializeResult
	if err := json.Unmarshal(raw, &init); err != nil {
		return fmt.Errorf("bad initialize result: %w", err)
	}
	if init.ProtocolVersion != "" && init.ProtocolVersion != ProtocolVersion {
		log.Printf("[rpc] provider %s: protocol version %q, continuing anyway", c.name, init.ProtocolVersion)
	}
	return cn.notify("initialized", nil)
}

// ListTools fetches the provider's tool catalog.
func (c *StdioClient) ListTools(ctx context.Context) ([]ToolSpec, error) {
	cn, err := c.ready()
	if err != nil {
		return nil, err
	}
	raw, err := cn.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	var out ListToolsResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("provider %s: bad tools/list result: %w", c.name, err)
	}
	return out.Tools, nil
}

// CallTool invokes one remote tool. A timeout fails this call only; the
// connection stays usable.
func (c *StdioClient) CallTool(ctx context.Context, name string, args json.RawMessage) (*CallResult, error) {
	cn, err := c.ready()
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	raw, err := cn.call(ctx, "tools/call", CallParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	var out CallResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("provider %s: bad tools/call result: %w", c.name, err)
	}
	return &out, nil
}

func (c *StdioClient) ready() (*conn, error) {
	if c.State() != StateReady {
		return nil, fmt.Errorf("provider %s: not ready (state %s)", c.name, c.State())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn, nil
}

// Disconnect closes the child's stdin and reaps the process, killing it
// if it does not exit promptly. Safe to call more than once.
func (c *StdioClient) Disconnect() error {
	prev := State(c.state.Swap(int32(StateDisconnected)))
	if prev == StateDisconnected {
		return nil
	}

	c.mu.Lock()
	cmd, stdin := c.cmd, c.stdin
	c.cmd, c.stdin, c.conn = nil, nil, nil
	c.mu.Unlock()

	if stdin != nil {
		stdin.Close()
	}
	if cmd == nil {
		return nil
	}

	waited := make(chan error, 1)
	go func() { waited <- cmd.Wait() }()
	select {
	case <-waited:
	case <-time.After(3 * time.Second):
		log.Printf("[rpc] provider %s: did not exit, killing", c.name)
		cmd.Process.Kill()
		<-waited
	}
	log.Printf("[rpc] provider %s: disconnected", c.name)
	return nil
}

// logStderr relays the child's diagnostics; its stderr is never protocol.
func logStderr(name string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Printf("[rpc] provider %s stderr: %s", name, scanner.Text())
	}
}
