package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nugget/whatnext/internal/llm"
	"github.com/nugget/whatnext/internal/prompts"
	"github.com/nugget/whatnext/internal/turn"
	"github.com/nugget/whatnext/internal/usage"
)

// Synthesizer writes the final answer from the response view.
type Synthesizer interface {
	Synthesize(ctx context.Context, view turn.ResponseView) (string, error)
}

var errEmptyResponse = errors.New("model returned an empty response")

// LLMSynthesizer asks a model to write the answer.
type LLMSynthesizer struct {
	client llm.Client
	model  string
	usage  UsageRecorder
	logger *slog.Logger
}

// NewLLMSynthesizer returns a synthesizer using model on client.
func NewLLMSynthesizer(client llm.Client, model string, usage UsageRecorder, logger *slog.Logger) *LLMSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMSynthesizer{client: client, model: model, usage: usage, logger: logger}
}

// Synthesize implements Synthesizer.
func (s *LLMSynthesizer) Synthesize(ctx context.Context, view turn.ResponseView) (string, error) {
	viewJSON, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode response context: %w", err)
	}

	msgs := []llm.Message{
		llm.System(prompts.ResponsePrompt()),
		llm.User(prompts.ResponseContext(view.OriginalQuery, string(viewJSON))),
	}
	resp, err := s.client.Chat(ctx, s.model, msgs)
	if err != nil {
		return "", fmt.Errorf("response model: %w", err)
	}
	if s.usage != nil {
		s.usage.RecordUsage(ctx, TurnIDFromContext(ctx), usage.StageResponse, resp)
	}

	text := resp.Text()
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}
