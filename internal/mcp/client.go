package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// protocolVersion is the MCP protocol version we advertise during initialization.
const protocolVersion = "2024-11-05"

// levelTrace matches config.LevelTrace for JSON-RPC line logging.
const levelTrace = slog.Level(-8)

// ContentBlock is a single content item in a tools/call response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type callToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ServerInfo identifies the tool provider.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the result of the initialize request.
type InitializeResult struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ServerInfo      ServerInfo `json:"serverInfo"`
}

// ClientInfo identifies this side of the connection during initialize.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Client speaks the MCP request/response protocol over a Transport.
type Client struct {
	info      ClientInfo
	transport Transport
	logger    *slog.Logger
	nextID    atomic.Int64
}

// NewClient creates a client that identifies itself as info.
func NewClient(info ClientInfo, transport Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		info:      info,
		transport: transport,
		logger:    logger,
	}
}

// Initialize sends the initialize request. Only a response carrying a
// result counts as success, after which notifications/initialized is
// sent to complete the handshake.
func (c *Client) Initialize(ctx context.Context) (*InitializeResult, error) {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      c.info,
	}

	resp, err := c.send(ctx, "initialize", params)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	var result InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("unmarshal initialize result: %w", err)
	}

	if err := c.transport.Notify(ctx, NewNotification("notifications/initialized", nil)); err != nil {
		return nil, fmt.Errorf("send initialized notification: %w", err)
	}

	c.logger.Info("tool provider initialized",
		"server_name", result.ServerInfo.Name,
		"server_version", result.ServerInfo.Version,
		"protocol_version", result.ProtocolVersion,
	)
	return &result, nil
}

// CallTool invokes a tool and returns the JSON document carried in the
// first content block's text.
func (c *Client) CallTool(ctx context.Context, name string, args any) (json.RawMessage, error) {
	params := map[string]any{
		"name":      name,
		"arguments": args,
	}

	resp, err := c.send(ctx, "tools/call", params)
	if err != nil {
		return nil, fmt.Errorf("tools/call %s: %w", name, err)
	}

	var result callToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("unmarshal tools/call result: %w", err)
	}
	if len(result.Content) == 0 || result.Content[0].Type != "text" {
		return nil, fmt.Errorf("tool %s returned no text content", name)
	}

	text := result.Content[0].Text
	if result.IsError {
		return nil, fmt.Errorf("tool %s failed: %s", name, text)
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("tool %s returned non-JSON text", name)
	}
	return json.RawMessage(text), nil
}

// Close closes the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

// errNoResult marks a response that had neither error nor result.
var errNoResult = errors.New("response has no result")

// send issues a request and insists on a result member.
func (c *Client) send(ctx context.Context, method string, params any) (*Response, error) {
	req := NewRequest(c.nextID.Add(1), method, params)

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if !resp.HasResult() {
		return nil, errNoResult
	}
	return resp, nil
}
