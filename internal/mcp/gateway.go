package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nugget/whatnext/internal/buildinfo"
)

// ErrChannelFailed means the handshake with the tool provider failed;
// the gateway makes no further calls.
var ErrChannelFailed = errors.New("tool channel failed")

// ErrGatewayClosed is reported for calls made after Close.
var ErrGatewayClosed = errors.New("tool gateway closed")

type channelState int

const (
	stateIdle channelState = iota
	stateReady
	stateFailed
	stateClosed
)

func (s channelState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	case stateClosed:
		return "closed"
	}
	return fmt.Sprintf("channelState(%d)", int(s))
}

// GatewayConfig describes the tool provider subprocess.
type GatewayConfig struct {
	Command     string
	Args        []string
	Env         map[string]string
	StopTimeout time.Duration
	Logger      *slog.Logger
}

// Gateway is the single point through which tools are invoked. It owns
// the provider subprocess, starts it on first use, and allows one
// request in flight at a time.
type Gateway struct {
	client *Client
	logger *slog.Logger

	mu      sync.Mutex
	state   channelState
	failure error
}

// NewGateway creates a gateway for a stdio tool provider. Nothing is
// launched until the first call.
func NewGateway(cfg GatewayConfig) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tool_gateway")

	transport := NewStdioTransport(StdioConfig{
		Command:     cfg.Command,
		Args:        cfg.Args,
		Env:         envList(cfg.Env),
		StopTimeout: cfg.StopTimeout,
		Logger:      logger,
	})
	return NewGatewayWithTransport(transport, logger)
}

// NewGatewayWithTransport creates a gateway over an existing transport.
func NewGatewayWithTransport(transport Transport, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	info := ClientInfo{Name: "whatnext", Version: buildinfo.Version}
	return &Gateway{
		client: NewClient(info, transport, logger),
		logger: logger,
	}
}

// Ready performs the handshake if the channel is not up and reports
// whether it is usable. A failed handshake is never retried.
func (g *Gateway) Ready(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ensureReady(ctx)
}

// ensureReady runs the handshake when the channel is idle. Caller must
// hold g.mu.
func (g *Gateway) ensureReady(ctx context.Context) error {
	switch g.state {
	case stateReady:
		return nil
	case stateFailed:
		return g.failure
	case stateClosed:
		return ErrGatewayClosed
	}

	if _, err := g.client.Initialize(ctx); err != nil {
		g.fail(err)
		return g.failure
	}
	g.state = stateReady
	return nil
}

// fail marks the channel unusable and releases the subprocess. Caller
// must hold g.mu.
func (g *Gateway) fail(cause error) {
	g.state = stateFailed
	g.failure = fmt.Errorf("%w: %w", ErrChannelFailed, cause)
	g.logger.Error("tool channel failed", "error", cause)
	if err := g.client.Close(); err != nil {
		g.logger.Debug("closing failed tool channel", "error", err)
	}
}

// CallTool invokes a tool and returns its JSON result. It never fails:
// any problem is returned as a {"error": "..."} document.
func (g *Gateway) CallTool(ctx context.Context, name string, args any) json.RawMessage {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureReady(ctx); err != nil {
		return ErrorResult(err)
	}

	start := time.Now()
	result, err := g.client.CallTool(ctx, name, args)
	if err != nil {
		if errors.Is(err, ErrTransportClosed) {
			// The transport has already dropped the subprocess. The next
			// call relaunches it and repeats the handshake.
			g.state = stateIdle
			g.logger.Warn("tool channel lost, restarting on next call", "tool", name, "error", err)
		}
		g.logger.Warn("tool call failed", "tool", name, "error", err, "elapsed", time.Since(start))
		return ErrorResult(err)
	}

	g.logger.Debug("tool call complete", "tool", name, "bytes", len(result), "elapsed", time.Since(start))
	return result
}

// Close terminates the provider subprocess. It is idempotent and safe
// on a gateway that never started.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == stateClosed {
		return nil
	}
	prev := g.state
	g.state = stateClosed
	if prev == stateFailed {
		return nil
	}
	return g.client.Close()
}

// ErrorResult encodes err as a tool result document.
func ErrorResult(err error) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return data
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
