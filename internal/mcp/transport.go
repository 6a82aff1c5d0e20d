package mcp

import "context"

// Transport carries JSON-RPC messages to a tool provider.
type Transport interface {
	// Send writes req and returns the single response line that follows.
	Send(ctx context.Context, req *Request) (*Response, error)

	// Notify writes a notification. No response is read.
	Notify(ctx context.Context, notif *Notification) error

	// Close releases the transport. It is safe to call more than once.
	Close() error
}
