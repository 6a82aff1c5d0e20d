// Package llm provides the chat model clients used for intent
// extraction, decisions and response writing.
package llm

import "context"

// Client is the interface that all LLM providers must implement.
type Client interface {
	// Chat sends a single non-streaming chat request and returns the
	// complete reply.
	Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error)
}
