package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// DefaultStopTimeout is how long Close waits for the subprocess to exit
// after its stdin is closed before killing it.
const DefaultStopTimeout = 5 * time.Second

// ErrTransportClosed is returned by a transport that has been closed or
// whose subprocess has gone away. Errors wrapping it mean the current
// subprocess can carry no further requests.
var ErrTransportClosed = errors.New("tool provider transport closed")

// StdioConfig configures a stdio transport that talks to a subprocess
// over stdin/stdout using newline-delimited JSON-RPC.
type StdioConfig struct {
	// Command is the executable to run.
	Command string

	// Args are command-line arguments passed to the executable.
	Args []string

	// Env holds extra KEY=VALUE entries appended to the current
	// process environment.
	Env []string

	// StopTimeout overrides DefaultStopTimeout.
	StopTimeout time.Duration

	Logger *slog.Logger
}

// StdioTransport owns one tool provider subprocess at a time. The process
// is launched on the first Send or Notify. After a protocol failure kills
// it, the next Send or Notify launches a fresh one; after Close every
// call fails with ErrTransportClosed.
type StdioTransport struct {
	config StdioConfig
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *bufio.Reader
}

// NewStdioTransport creates a stdio transport for the given config.
func NewStdioTransport(cfg StdioConfig) *StdioTransport {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	return &StdioTransport{
		config: cfg,
		logger: logger,
	}
}

// start launches the subprocess if none is running. The process is not
// bound to any call context. Caller must hold t.mu.
func (t *StdioTransport) start() error {
	if t.closed {
		return ErrTransportClosed
	}
	if t.cmd != nil {
		return nil
	}

	t.logger.Info("starting tool provider",
		"command", t.config.Command,
		"args", t.config.Args,
	)

	cmd := exec.Command(t.config.Command, t.config.Args...)
	cmd.Env = append(os.Environ(), t.config.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stderr.Close()
		stdout.Close()
		stdin.Close()
		return fmt.Errorf("start %s: %w", t.config.Command, err)
	}

	t.cmd = cmd
	t.stdin = stdin
	t.reader = bufio.NewReaderSize(stdout, 1<<20)

	go t.drainStderr(stderr)

	t.logger.Info("tool provider started", "pid", cmd.Process.Pid)
	return nil
}

// drainStderr logs the provider's stderr. It is not part of the protocol.
func (t *StdioTransport) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		t.logger.Debug("tool provider stderr", "line", scanner.Text())
	}
}

type readResult struct {
	line []byte
	err  error
}

// Send writes req as one line and reads exactly one line back. If ctx
// ends while waiting, the subprocess is killed so the read unblocks.
func (t *StdioTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.start(); err != nil {
		return nil, err
	}
	if err := t.writeLine(ctx, req); err != nil {
		return nil, err
	}

	ch := make(chan readResult, 1)
	reader := t.reader
	go func() {
		line, err := reader.ReadBytes('\n')
		ch <- readResult{line: line, err: err}
	}()

	var res readResult
	select {
	case <-ctx.Done():
		t.kill()
		return nil, fmt.Errorf("%w: %w", ErrTransportClosed, ctx.Err())
	case res = <-ch:
	}

	line := bytes.TrimSpace(res.line)
	if res.err != nil && (len(line) == 0 || !errors.Is(res.err, io.EOF)) {
		t.kill()
		if errors.Is(res.err, io.EOF) {
			return nil, fmt.Errorf("tool provider closed its output: %w", ErrTransportClosed)
		}
		return nil, fmt.Errorf("read from tool provider: %w: %w", ErrTransportClosed, res.err)
	}
	if len(line) == 0 {
		return nil, fmt.Errorf("empty response line for %s", req.Method)
	}

	t.logger.Log(ctx, levelTrace, "jsonrpc recv", "line", string(line))

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response to %s: %w", req.Method, err)
	}
	if resp.ID != req.ID {
		// Every later line would answer the wrong request.
		t.kill()
		return nil, fmt.Errorf("response id %d does not match request id %d: %w", resp.ID, req.ID, ErrTransportClosed)
	}
	return &resp, nil
}

// Notify writes a notification line. No response is expected.
func (t *StdioTransport) Notify(ctx context.Context, notif *Notification) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.start(); err != nil {
		return err
	}
	return t.writeLine(ctx, notif)
}

// writeLine encodes msg followed by a newline. Caller must hold t.mu.
func (t *StdioTransport) writeLine(ctx context.Context, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	t.logger.Log(ctx, levelTrace, "jsonrpc send", "line", string(data))

	if _, err := t.stdin.Write(append(data, '\n')); err != nil {
		t.kill()
		return fmt.Errorf("write to tool provider: %w: %w", ErrTransportClosed, err)
	}
	return nil
}

// Close stops the subprocess: stdin is closed, then the process gets
// StopTimeout to exit before it is killed. Close is idempotent and safe
// on a transport that never started.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.cmd == nil {
		return nil
	}

	cmd := t.cmd
	pid := cmd.Process.Pid
	t.logger.Info("stopping tool provider", "pid", pid)

	t.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-time.After(t.config.StopTimeout):
		t.logger.Warn("tool provider did not exit, killing", "pid", pid)
		_ = cmd.Process.Kill()
		<-done
	}
	t.reset()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		t.logger.Debug("tool provider exited", "pid", pid, "status", exitErr.ExitCode())
		return nil
	}
	return err
}

// kill terminates the subprocess after a protocol failure. Caller must
// hold t.mu.
func (t *StdioTransport) kill() {
	if t.cmd == nil {
		return
	}
	t.logger.Warn("killing tool provider", "pid", t.cmd.Process.Pid)
	t.stdin.Close()
	_ = t.cmd.Process.Kill()
	_ = t.cmd.Wait()
	t.reset()
}

func (t *StdioTransport) reset() {
	t.cmd = nil
	t.stdin = nil
	t.reader = nil
}
