package usage

import (
	"context"
	"log/slog"

	"github.com/nugget/whatnext/internal/config"
	"github.com/nugget/whatnext/internal/llm"
)

// Recorder turns chat responses into priced usage records. Write
// failures are logged and never reach the caller.
type Recorder struct {
	store   *Store
	pricing map[string]config.PricingEntry
	logger  *slog.Logger
}

// NewRecorder returns a Recorder writing to store.
func NewRecorder(store *Store, pricing map[string]config.PricingEntry, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, pricing: pricing, logger: logger.With("component", "usage")}
}

// RecordUsage stores one record for resp under turnID and stage.
func (r *Recorder) RecordUsage(ctx context.Context, turnID, stage string, resp *llm.ChatResponse) {
	if r == nil || r.store == nil || resp == nil {
		return
	}
	rec := Record{
		TurnID:       turnID,
		Stage:        stage,
		Model:        resp.Model,
		Provider:     resp.Provider,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CostUSD:      ComputeCost(resp.Model, resp.InputTokens, resp.OutputTokens, r.pricing),
	}
	if err := r.store.Record(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.Warn("failed to record usage", "turn_id", turnID, "stage", stage, "error", err)
	}
}
