package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nugget/whatnext/internal/llm"
	"github.com/nugget/whatnext/internal/prompts"
	"github.com/nugget/whatnext/internal/turn"
	"github.com/nugget/whatnext/internal/usage"
)

// IntentExtractor turns a query into a structured intent.
type IntentExtractor interface {
	Extract(ctx context.Context, query string) (turn.Intent, error)
}

// UsageRecorder receives the token usage of every model call.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, turnID, stage string, resp *llm.ChatResponse)
}

// LLMIntentExtractor asks a model to analyze the query.
type LLMIntentExtractor struct {
	client llm.Client
	model  string
	usage  UsageRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewLLMIntentExtractor returns an extractor using model on client.
// usage may be nil.
func NewLLMIntentExtractor(client llm.Client, model string, usage UsageRecorder, logger *slog.Logger) *LLMIntentExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMIntentExtractor{
		client: client,
		model:  model,
		usage:  usage,
		logger: logger,
		now:    time.Now,
	}
}

// Extract implements IntentExtractor.
func (e *LLMIntentExtractor) Extract(ctx context.Context, query string) (turn.Intent, error) {
	msgs := []llm.Message{
		llm.System(prompts.IntentPrompt(e.now())),
		llm.User(query),
	}
	resp, err := e.client.Chat(ctx, e.model, msgs)
	if err != nil {
		return turn.Intent{}, fmt.Errorf("intent model: %w", err)
	}
	if e.usage != nil {
		e.usage.RecordUsage(ctx, TurnIDFromContext(ctx), usage.StageIntent, resp)
	}

	var intent turn.Intent
	if err := decodeReply(resp.Text(), &intent); err != nil {
		e.logger.Debug("unparseable intent reply", "turn_id", TurnIDFromContext(ctx), "reply", resp.Text())
		return turn.Intent{}, err
	}
	return intent, nil
}
