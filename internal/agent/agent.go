// Package agent runs one conversation turn: it extracts the intent of a
// query, loops over decisions and tool calls while gathering weather
// and activity data, then writes the answer. A turn never fails with a
// Go error; every failure becomes user-facing text.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/nugget/whatnext/internal/tools"
	"github.com/nugget/whatnext/internal/turn"
)

// Fixed user-facing replies.
const (
	extractionFailedPrefix = "ERROR: Failed to analyze query: "
	MissingLocationReply   = "ERROR: I couldn't determine which location you're asking about. Please specify a city."
	SynthesisFallbackReply = "Sorry, I had trouble putting together a recommendation just now. Please try again in a moment."
)

// Outcome says how a turn ended.
type Outcome string

const (
	OutcomeAnswered        Outcome = "answered"
	OutcomeExtractionError Outcome = "extraction_error"
	OutcomeMissingLocation Outcome = "missing_location"
	OutcomeFallback        Outcome = "fallback"
)

// ToolCaller calls a named tool. It never fails: transport and tool
// errors come back as an {"error": ...} document.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args any) json.RawMessage
}

// Config wires the components of an Agent.
type Config struct {
	Intent      IntentExtractor
	Decider     Decider
	Synthesizer Synthesizer
	Tools       ToolCaller

	// MaxLoops caps the decide-and-act iterations of a turn.
	MaxLoops int

	// Timeout bounds a whole turn. Zero means no limit.
	Timeout time.Duration

	Logger *slog.Logger
}

// Result is the full record of one turn.
type Result struct {
	TurnID      string        `json:"turn_id"`
	Query       string        `json:"query"`
	Text        string        `json:"text"`
	Outcome     Outcome       `json:"outcome"`
	Intent      *turn.Intent  `json:"intent,omitempty"`
	ToolsCalled []string      `json:"tools_called"`
	Loops       int           `json:"loops"`
	Duration    time.Duration `json:"duration_ns"`
}

// Agent answers queries one at a time. It owns its tool caller: Close
// releases it, and concurrent Ask calls are serialized.
type Agent struct {
	mu sync.Mutex

	intent   IntentExtractor
	decider  Decider
	synth    Synthesizer
	tools    ToolCaller
	maxLoops int
	timeout  time.Duration
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// ErrMissingComponent is returned by New when a required component of
// Config is nil.
var ErrMissingComponent = errors.New("agent component missing")

// New returns an Agent. Intent, Decider and Tools are required; a nil
// Synthesizer uses TemplateSynthesizer.
func New(cfg Config) (*Agent, error) {
	switch {
	case cfg.Intent == nil:
		return nil, fmt.Errorf("%w: intent extractor", ErrMissingComponent)
	case cfg.Decider == nil:
		return nil, fmt.Errorf("%w: decider", ErrMissingComponent)
	case cfg.Tools == nil:
		return nil, fmt.Errorf("%w: tool caller", ErrMissingComponent)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	synth := cfg.Synthesizer
	if synth == nil {
		synth = TemplateSynthesizer{}
	}
	maxLoops := cfg.MaxLoops
	if maxLoops < 1 {
		maxLoops = turn.DefaultMaxLoops
	}
	return &Agent{
		intent:   cfg.Intent,
		decider:  cfg.Decider,
		synth:    synth,
		tools:    cfg.Tools,
		maxLoops: maxLoops,
		timeout:  cfg.Timeout,
		logger:   logger.With("component", "agent"),
	}, nil
}

// Ask answers query and returns the reply text.
func (a *Agent) Ask(ctx context.Context, query string) string {
	return a.Run(ctx, query).Text
}

// Run answers query and returns the full turn record.
func (a *Agent) Run(ctx context.Context, query string) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	res := Result{
		TurnID: uuid.NewString(),
		Query:  query,
	}
	ctx = WithTurnID(ctx, res.TurnID)
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	ctx, span := startSpan(ctx, spanTurn, attrTurnID.String(res.TurnID))
	defer span.End()

	log := a.logger.With("turn_id", res.TurnID)
	log.Info("turn started", "query", query)

	a.runTurn(ctx, log, query, &res)

	res.Duration = time.Since(start)
	if res.ToolsCalled == nil {
		res.ToolsCalled = []string{}
	}
	span.SetAttributes(
		attrOutcome.String(string(res.Outcome)),
		attrLoop.Int(res.Loops),
		attrToolCalls.Int(len(res.ToolsCalled)),
	)
	log.Info("turn finished",
		"outcome", res.Outcome,
		"loops", res.Loops,
		"tools", res.ToolsCalled,
		"elapsed", res.Duration.Round(time.Millisecond),
	)
	return res
}

func (a *Agent) runTurn(ctx context.Context, log *slog.Logger, query string, res *Result) {
	intent, err := a.intent.Extract(ctx, query)
	if err != nil {
		log.Error("intent extraction failed", "error", err)
		markFailed(trace.SpanFromContext(ctx), err)
		res.Outcome = OutcomeExtractionError
		res.Text = extractionFailedPrefix + err.Error()
		return
	}
	res.Intent = &intent
	log.Debug("intent extracted",
		"location", intent.Location,
		"time_context", intent.TimeContext,
		"activity_type", intent.ActivityType,
	)

	if intent.Location == "" {
		res.Outcome = OutcomeMissingLocation
		res.Text = MissingLocationReply
		return
	}
	trace.SpanFromContext(ctx).SetAttributes(attrLocation.String(intent.Location))

	st := turn.New(query, intent, a.maxLoops)
	for st.ShouldContinue() {
		if ctx.Err() != nil {
			log.Warn("turn context done, leaving loop", "error", ctx.Err())
			break
		}
		st.IncrementLoop()
		if !a.step(ctx, log, st) {
			break
		}
	}
	res.Loops = st.LoopCount()
	res.ToolsCalled = st.ToolsCalled()

	text, err := a.synth.Synthesize(ctx, st.ResponseView())
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyResponse
	}
	if err != nil {
		log.Error("response synthesis failed", "error", err)
		markFailed(trace.SpanFromContext(ctx), err)
		res.Outcome = OutcomeFallback
		res.Text = SynthesisFallbackReply
		return
	}
	res.Outcome = OutcomeAnswered
	res.Text = text
}

// step runs one iteration and reports whether the loop should go on.
func (a *Agent) step(ctx context.Context, log *slog.Logger, st *turn.State) bool {
	decideCtx, span := startSpan(ctx, spanDecide, attrLoop.Int(st.LoopCount()))
	d := a.decider.Decide(decideCtx, st.DecisionView())
	span.SetAttributes(attrAction.String(d.Action.String()))
	if d.Err != "" {
		markFailed(span, errors.New(d.Err))
	}
	span.End()

	log = log.With("loop", st.LoopCount(), "action", d.Action)
	if d.Err != "" {
		log.Warn("decision failed, responding with what we have", "error", d.Err)
	} else {
		log.Debug("decision", "reasoning", d.Reasoning, "params", d.Params)
	}

	switch d.Action {
	case CallWeather:
		st.RecordWeather(a.callWeather(ctx, log, st.Intent(), d.Params))
		return true
	case CallActivity:
		st.RecordActivity(a.callActivity(ctx, log, st.Intent(), d.Params))
		return true
	case RespondToUser:
		return false
	}
	log.Warn("unrecognized action, responding with what we have", "raw", d.Raw)
	return false
}

func (a *Agent) callWeather(ctx context.Context, log *slog.Logger, intent turn.Intent, params tools.Params) tools.WeatherResult {
	p := withDefault(params, "location", intent.Location)
	target := intent.TimeContext
	if target == "" {
		target = tools.DefaultTargetDate
	}
	p = withDefault(p, "target_date", target)

	args, err := tools.WeatherArgsFromParams(p)
	if err != nil {
		log.Warn("invalid weather arguments", "error", err)
		return tools.WeatherFailure("%v", err)
	}

	r := tools.DecodeWeather(a.callTool(ctx, tools.WeatherTool, args))
	if r.Failed() {
		log.Warn("weather tool failed", "error", r.Error)
	} else {
		log.Info("weather retrieved", "location", args.Location, "days", len(r.Forecast))
	}
	return r
}

func (a *Agent) callActivity(ctx context.Context, log *slog.Logger, intent turn.Intent, params tools.Params) tools.ActivityResult {
	p := withDefault(params, "location", intent.Location)

	args, err := tools.ActivityArgsFromParams(p)
	if err != nil {
		log.Warn("invalid activity arguments", "error", err)
		return tools.ActivityFailure("%v", err)
	}

	r := tools.DecodeActivity(a.callTool(ctx, tools.ActivityTool, args))
	if r.Failed() {
		log.Warn("activity tool failed", "error", r.Error)
	} else {
		log.Info("activities retrieved", "count", r.TotalResults, "source", r.DataSource)
	}
	return r
}

func (a *Agent) callTool(ctx context.Context, name string, args any) json.RawMessage {
	ctx, span := startSpan(ctx, spanTool, attrTool.String(name))
	defer span.End()

	raw := a.tools.CallTool(ctx, name, args)
	var doc struct {
		Error string `json:"error"`
	}
	ok := json.Unmarshal(raw, &doc) == nil && doc.Error == ""
	span.SetAttributes(attrSuccess.Bool(ok))
	if !ok && doc.Error != "" {
		markFailed(span, errors.New(doc.Error))
	}
	return raw
}

// withDefault returns a copy of p with key set to value when p lacks a
// usable value for key.
func withDefault(p tools.Params, key, value string) tools.Params {
	out := make(tools.Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	if _, ok := out.String(key); !ok && value != "" {
		out[key] = value
	}
	return out
}

// Close releases the tool caller if it holds resources. It is safe to
// call more than once.
func (a *Agent) Close() error {
	a.closeOnce.Do(func() {
		if c, ok := a.tools.(io.Closer); ok {
			if err := c.Close(); err != nil {
				a.closeErr = fmt.Errorf("close tools: %w", err)
			}
		}
	})
	return a.closeErr
}
