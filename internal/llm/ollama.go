package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nugget/whatnext/internal/httpkit"
)

// OllamaClient is a client for a local Ollama server.
type OllamaClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(baseURL string, logger *slog.Logger) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Cold model loads can take minutes.
		httpClient: httpkit.NewClient(httpkit.WithTimeout(5*time.Minute), httpkit.WithRetry(2, 500*time.Millisecond)),
		logger:     logger.With("provider", "ollama"),
	}
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
	TotalDuration   int64   `json:"total_duration"`
}

// Chat sends a chat completion request to Ollama.
func (c *OllamaClient) Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error) {
	req := ollamaRequest{
		Model:    model,
		Messages: messages,
		Options:  map[string]any{"temperature": 0.3},
	}
	httpReq, err := httpkit.NewJSONRequest(ctx, http.MethodPost, c.baseURL+"/api/chat", req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("sending chat request", "model", model, "messages", len(messages))

	var resp ollamaResponse
	if err := httpkit.DoJSON(c.httpClient, httpReq, &resp); err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	c.logger.Log(ctx, LevelTrace, "chat response", "content", resp.Message.Content)

	return &ChatResponse{
		Model:        resp.Model,
		Provider:     "ollama",
		Message:      Message{Role: RoleAssistant, Content: resp.Message.Content},
		InputTokens:  resp.PromptEvalCount,
		OutputTokens: resp.EvalCount,
		Duration:     time.Duration(resp.TotalDuration),
	}, nil
}
