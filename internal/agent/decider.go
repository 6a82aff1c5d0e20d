package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nugget/whatnext/internal/llm"
	"github.com/nugget/whatnext/internal/prompts"
	"github.com/nugget/whatnext/internal/tools"
	"github.com/nugget/whatnext/internal/turn"
	"github.com/nugget/whatnext/internal/usage"
)

// Decider picks the next action from the decision view. It never
// fails: problems become a RespondToUser decision with Err set.
type Decider interface {
	Decide(ctx context.Context, view turn.DecisionView) Decision
}

// LLMDecider asks a model for the next action.
type LLMDecider struct {
	client llm.Client
	model  string
	usage  UsageRecorder
	logger *slog.Logger
	system string
}

// NewLLMDecider returns a decider using model on client. maxLoops is
// quoted in the prompt so the model can budget its steps.
func NewLLMDecider(client llm.Client, model string, maxLoops int, usage UsageRecorder, logger *slog.Logger) *LLMDecider {
	if logger == nil {
		logger = slog.Default()
	}
	if maxLoops < 1 {
		maxLoops = turn.DefaultMaxLoops
	}
	return &LLMDecider{
		client: client,
		model:  model,
		usage:  usage,
		logger: logger,
		system: prompts.DecisionPrompt(prompts.DecisionPromptParams{
			WeatherTool:  tools.WeatherTool,
			ActivityTool: tools.ActivityTool,
			ForecastDays: tools.DefaultForecastDays,
			Categories:   tools.Categories,
			MaxLoops:     maxLoops,
		}),
	}
}

type decisionReply struct {
	Action    string         `json:"action"`
	Params    map[string]any `json:"params"`
	Reasoning string         `json:"reasoning"`
}

// Decide implements Decider.
func (d *LLMDecider) Decide(ctx context.Context, view turn.DecisionView) Decision {
	viewJSON, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return respondAfterFailure("Decision failed", fmt.Errorf("encode context: %w", err))
	}

	msgs := []llm.Message{
		llm.System(d.system),
		llm.User(prompts.DecisionContext(string(viewJSON))),
	}
	resp, err := d.client.Chat(ctx, d.model, msgs)
	if err != nil {
		return respondAfterFailure("Decision failed", err)
	}
	if d.usage != nil {
		d.usage.RecordUsage(ctx, TurnIDFromContext(ctx), usage.StageDecision, resp)
	}

	var reply decisionReply
	if err := decodeReply(resp.Text(), &reply); err != nil {
		d.logger.Debug("unparseable decision reply", "turn_id", TurnIDFromContext(ctx), "reply", resp.Text())
		return respondAfterFailure("Decision failed", err)
	}

	return Decision{
		Action:    ParseAction(reply.Action),
		Params:    tools.Params(reply.Params),
		Reasoning: reply.Reasoning,
		Raw:       reply.Action,
	}
}
