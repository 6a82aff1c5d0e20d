package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nugget/whatnext/internal/tools"
	"github.com/nugget/whatnext/internal/turn"
)

func mustNew(t *testing.T, cfg Config) *Agent {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNew_RequiresComponents(t *testing.T) {
	full := Config{Intent: &stubIntent{}, Decider: &repeatDecider{}, Tools: &fakeTools{}}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no intent extractor", func(c *Config) { c.Intent = nil }, "intent extractor"},
		{"no decider", func(c *Config) { c.Decider = nil }, "decider"},
		{"no tool caller", func(c *Config) { c.Tools = nil }, "tool caller"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := full
			tt.mutate(&cfg)
			a, err := New(cfg)
			if !errors.Is(err, ErrMissingComponent) {
				t.Fatalf("New = %v, want ErrMissingComponent", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to name %q", err, tt.wantErr)
			}
			if a != nil {
				t.Error("New returned an agent alongside the error")
			}
		})
	}

	if _, err := New(full); err != nil {
		t.Errorf("New with all components: %v", err)
	}
}

func TestAsk_LoopBound(t *testing.T) {
	dec := &repeatDecider{decision: Decision{
		Action: CallActivity,
		Params: tools.Params{"location": "Sydney", "activity_type": "both"},
	}}
	ft := &fakeTools{replies: map[string][]json.RawMessage{
		tools.ActivityTool: {mustJSON(sydneyActivities())},
	}}
	a := mustNew(t, Config{
		Intent:  &stubIntent{intent: turn.Intent{Location: "Sydney"}},
		Decider: dec,
		Tools:   ft,
	})

	res := a.Run(context.Background(), "What can I do in Sydney?")

	if dec.calls != 5 {
		t.Errorf("decider calls = %d, want 5", dec.calls)
	}
	if len(ft.calls) != 5 {
		t.Errorf("tool calls = %d, want 5", len(ft.calls))
	}
	if res.Loops != 5 {
		t.Errorf("Loops = %d, want 5", res.Loops)
	}
	if len(res.ToolsCalled) != 5 {
		t.Errorf("ToolsCalled = %v, want 5 entries", res.ToolsCalled)
	}
	if res.Outcome != OutcomeAnswered {
		t.Errorf("Outcome = %q, want %q", res.Outcome, OutcomeAnswered)
	}
}

func TestAsk_ConfiguredLoopBound(t *testing.T) {
	dec := &repeatDecider{decision: Decision{Action: CallWeather}}
	ft := &fakeTools{replies: map[string][]json.RawMessage{
		tools.WeatherTool: {mustJSON(sydneyForecast())},
	}}
	a := mustNew(t, Config{
		Intent:   &stubIntent{intent: turn.Intent{Location: "Sydney"}},
		Decider:  dec,
		Tools:    ft,
		MaxLoops: 2,
	})

	res := a.Run(context.Background(), "weather?")
	if dec.calls != 2 || res.Loops != 2 {
		t.Errorf("decider calls = %d, loops = %d, want 2 and 2", dec.calls, res.Loops)
	}
	if diff := cmp.Diff([]string{tools.WeatherTool}, res.ToolsCalled); diff != "" {
		t.Errorf("ToolsCalled mismatch (-want +got):\n%s", diff)
	}
}

func TestAsk_ScenarioWeatherThenActivities(t *testing.T) {
	intent := &stubIntent{intent: turn.Intent{Location: "Sydney", TimeContext: "tomorrow"}}
	dec := &scriptedDecider{decisions: []Decision{
		{Action: CallWeather, Params: tools.Params{"location": "Sydney", "forecast_days": float64(3)}},
		{Action: CallActivity, Params: tools.Params{"location": "Sydney", "weather_condition": "Sunny", "activity_type": "both"}},
		{Action: RespondToUser},
	}}
	ft := &fakeTools{replies: map[string][]json.RawMessage{
		tools.WeatherTool:  {mustJSON(sydneyForecast())},
		tools.ActivityTool: {mustJSON(sydneyActivities())},
	}}
	a := mustNew(t, Config{Intent: intent, Decider: dec, Tools: ft, Synthesizer: TemplateSynthesizer{}})

	res := a.Run(context.Background(), "What can I do tomorrow in Sydney?")

	if res.Outcome != OutcomeAnswered {
		t.Fatalf("Outcome = %q, text = %q", res.Outcome, res.Text)
	}
	for _, want := range []string{"Sydney", "tomorrow", "Sunny", "Bondi to Coogee Coastal Walk"} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("reply missing %q:\n%s", want, res.Text)
		}
	}
	if diff := cmp.Diff([]string{tools.WeatherTool, tools.ActivityTool}, res.ToolsCalled); diff != "" {
		t.Errorf("ToolsCalled mismatch (-want +got):\n%s", diff)
	}
	if res.Loops != 3 {
		t.Errorf("Loops = %d, want 3", res.Loops)
	}

	wantWeather := tools.WeatherArgs{Location: "Sydney", ForecastDays: 3, TargetDate: "tomorrow"}.WithDefaults()
	if diff := cmp.Diff(wantWeather, ft.calls[0].args); diff != "" {
		t.Errorf("weather args mismatch (-want +got):\n%s", diff)
	}
	wantActivity := tools.ActivityArgs{Location: "Sydney", WeatherCondition: "Sunny", ActivityType: tools.Both}
	if diff := cmp.Diff(wantActivity, ft.calls[1].args); diff != "" {
		t.Errorf("activity args mismatch (-want +got):\n%s", diff)
	}

	// The second decision sees the weather summary.
	if w := dec.views[1].DataCollected.Weather; w == nil || w.NextDayCondition != "Clear" {
		t.Errorf("second decision view weather = %+v", w)
	}
}

func TestAsk_ScenarioMissingLocation(t *testing.T) {
	dec := &repeatDecider{decision: Decision{Action: CallActivity}}
	ft := &fakeTools{}
	synth := &stubSynth{text: "unused"}
	a := mustNew(t, Config{
		Intent:      &stubIntent{intent: turn.Intent{ActivityPreferences: "indoor activities", TimeContext: "today", ActivityType: tools.Indoor}},
		Decider:     dec,
		Tools:       ft,
		Synthesizer: synth,
	})

	res := a.Run(context.Background(), "Indoor activities today")

	if res.Text != MissingLocationReply {
		t.Errorf("Text = %q, want %q", res.Text, MissingLocationReply)
	}
	if res.Outcome != OutcomeMissingLocation {
		t.Errorf("Outcome = %q", res.Outcome)
	}
	if dec.calls != 0 || len(ft.calls) != 0 || len(synth.views) != 0 {
		t.Errorf("loop ran: decisions=%d tools=%d synth=%d", dec.calls, len(ft.calls), len(synth.views))
	}
	if res.Loops != 0 {
		t.Errorf("Loops = %d, want 0", res.Loops)
	}
}

func TestAsk_ScenarioWeatherFailure(t *testing.T) {
	dec := &scriptedDecider{decisions: []Decision{
		{Action: CallWeather, Params: tools.Params{"location": "Sydney"}},
		{Action: CallActivity, Params: tools.Params{"location": "Sydney"}},
		{Action: RespondToUser},
	}}
	ft := &fakeTools{replies: map[string][]json.RawMessage{
		tools.WeatherTool:  {json.RawMessage(`{"success":false,"error":"timeout"}`)},
		tools.ActivityTool: {mustJSON(sydneyActivities())},
	}}
	a := mustNew(t, Config{
		Intent:      &stubIntent{intent: turn.Intent{Location: "Sydney"}},
		Decider:     dec,
		Tools:       ft,
		Synthesizer: TemplateSynthesizer{},
	})

	text := a.Ask(context.Background(), "What can I do in Sydney?")

	if len(dec.views) != 3 {
		t.Fatalf("decider calls = %d, want 3", len(dec.views))
	}
	if w := dec.views[1].DataCollected.Weather; w == nil || w.Error != "timeout" {
		t.Errorf("decision after failure saw weather = %+v", w)
	}
	if !strings.Contains(text, "Weather data unavailable: timeout") {
		t.Errorf("reply missing weather error note:\n%s", text)
	}
	if !strings.Contains(text, "Royal Botanic Garden") {
		t.Errorf("reply missing activities:\n%s", text)
	}
}

func TestAsk_ExtractionFailure(t *testing.T) {
	a := mustNew(t, Config{
		Intent:  &stubIntent{err: errors.New("model offline")},
		Decider: &repeatDecider{},
		Tools:   &fakeTools{},
	})
	res := a.Run(context.Background(), "anything")
	if res.Text != "ERROR: Failed to analyze query: model offline" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Outcome != OutcomeExtractionError {
		t.Errorf("Outcome = %q", res.Outcome)
	}
}

func TestAsk_UnrecognizedActionResponds(t *testing.T) {
	dec := &scriptedDecider{decisions: []Decision{
		{Action: ParseAction("book_flight"), Raw: "book_flight"},
		{Action: CallWeather},
	}}
	ft := &fakeTools{}
	synth := &stubSynth{text: "Here you go."}
	a := mustNew(t, Config{
		Intent:      &stubIntent{intent: turn.Intent{Location: "Perth"}},
		Decider:     dec,
		Tools:       ft,
		Synthesizer: synth,
	})

	res := a.Run(context.Background(), "Things to do in Perth")
	if len(dec.views) != 1 {
		t.Errorf("decider calls = %d, want 1", len(dec.views))
	}
	if len(ft.calls) != 0 {
		t.Errorf("tool calls = %d, want 0", len(ft.calls))
	}
	if res.Text != "Here you go." || len(synth.views) != 1 {
		t.Errorf("Text = %q, synth calls = %d", res.Text, len(synth.views))
	}
}

func TestAsk_DecisionFailureResponds(t *testing.T) {
	dec := &scriptedDecider{decisions: []Decision{
		{Action: RespondToUser, Err: "Decision failed: rate limited"},
	}}
	synth := &stubSynth{text: "ok"}
	a := mustNew(t, Config{
		Intent:      &stubIntent{intent: turn.Intent{Location: "Perth"}},
		Decider:     dec,
		Tools:       &fakeTools{},
		Synthesizer: synth,
	})
	if got := a.Ask(context.Background(), "q"); got != "ok" {
		t.Errorf("Ask = %q, want ok", got)
	}
	if len(dec.views) != 1 {
		t.Errorf("decider calls = %d, want 1", len(dec.views))
	}
}

func TestAsk_SynthesisFallback(t *testing.T) {
	tests := []struct {
		name  string
		synth *stubSynth
	}{
		{"error", &stubSynth{err: errors.New("boom")}},
		{"blank", &stubSynth{text: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustNew(t, Config{
				Intent:      &stubIntent{intent: turn.Intent{Location: "Perth"}},
				Decider:     &scriptedDecider{},
				Tools:       &fakeTools{},
				Synthesizer: tt.synth,
			})
			res := a.Run(context.Background(), "q")
			if res.Text != SynthesisFallbackReply {
				t.Errorf("Text = %q", res.Text)
			}
			if res.Outcome != OutcomeFallback {
				t.Errorf("Outcome = %q", res.Outcome)
			}
		})
	}
}

func TestAsk_WeatherParamDefaults(t *testing.T) {
	tests := []struct {
		name       string
		intent     turn.Intent
		params     tools.Params
		wantTarget string
		wantLoc    string
	}{
		{"from intent", turn.Intent{Location: "Sydney", TimeContext: "this weekend"}, nil, "this weekend", "Sydney"},
		{"tomorrow fallback", turn.Intent{Location: "Sydney"}, tools.Params{}, "tomorrow", "Sydney"},
		{"engine wins", turn.Intent{Location: "Sydney", TimeContext: "today"}, tools.Params{"location": "Melbourne", "target_date": "2025-07-09"}, "2025-07-09", "Melbourne"},
		{"null params", turn.Intent{Location: "Sydney"}, tools.Params{"location": nil, "target_date": "null"}, "tomorrow", "Sydney"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTools{replies: map[string][]json.RawMessage{tools.WeatherTool: {mustJSON(sydneyForecast())}}}
			a := mustNew(t, Config{
				Intent:  &stubIntent{intent: tt.intent},
				Decider: &scriptedDecider{decisions: []Decision{{Action: CallWeather, Params: tt.params}}},
				Tools:   ft,
			})
			a.Ask(context.Background(), "q")
			if len(ft.calls) != 1 {
				t.Fatalf("tool calls = %d, want 1", len(ft.calls))
			}
			args := ft.calls[0].args.(tools.WeatherArgs)
			if args.TargetDate != tt.wantTarget || args.Location != tt.wantLoc {
				t.Errorf("args = %+v, want target %q location %q", args, tt.wantTarget, tt.wantLoc)
			}
			if args.ForecastDays != tools.DefaultForecastDays || !args.Hourly() {
				t.Errorf("defaults not applied: %+v", args)
			}
		})
	}
}

func TestAsk_InvalidActivityArgsRecorded(t *testing.T) {
	ft := &fakeTools{}
	synth := &stubSynth{text: "ok"}
	a := mustNew(t, Config{
		Intent: &stubIntent{intent: turn.Intent{Location: "Sydney"}},
		Decider: &scriptedDecider{decisions: []Decision{
			{Action: CallActivity, Params: tools.Params{"activity_type": "underwater"}},
		}},
		Tools:       ft,
		Synthesizer: synth,
	})
	res := a.Run(context.Background(), "q")
	if len(ft.calls) != 0 {
		t.Errorf("tool called with invalid args: %+v", ft.calls)
	}
	if diff := cmp.Diff([]string{tools.ActivityTool}, res.ToolsCalled); diff != "" {
		t.Errorf("ToolsCalled mismatch (-want +got):\n%s", diff)
	}
	errs := synth.views[0].Errors
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "Activity data unavailable: ") {
		t.Errorf("Errors = %v", errs)
	}
}

func TestAsk_TurnIDs(t *testing.T) {
	a := mustNew(t, Config{
		Intent:  &stubIntent{intent: turn.Intent{Location: "Perth"}},
		Decider: &scriptedDecider{},
		Tools:   &fakeTools{},
	})
	first := a.Run(context.Background(), "q")
	second := a.Run(context.Background(), "q")
	if first.TurnID == "" || first.TurnID == second.TurnID {
		t.Errorf("turn IDs %q and %q should be distinct and non-empty", first.TurnID, second.TurnID)
	}
}

func TestAsk_Timeout(t *testing.T) {
	dec := &repeatDecider{decision: Decision{Action: CallActivity, Params: tools.Params{"location": "Sydney"}}}
	ft := &fakeTools{replies: map[string][]json.RawMessage{tools.ActivityTool: {mustJSON(sydneyActivities())}}}
	a := mustNew(t, Config{
		Intent:  &stubIntent{intent: turn.Intent{Location: "Sydney"}},
		Decider: dec,
		Tools:   ft,
		Timeout: time.Nanosecond,
	})
	res := a.Run(context.Background(), "q")
	if dec.calls != 0 {
		t.Errorf("decider calls = %d after deadline, want 0", dec.calls)
	}
	if res.Outcome != OutcomeAnswered {
		t.Errorf("Outcome = %q, want answered from template", res.Outcome)
	}
}

func TestAsk_SerializesCallers(t *testing.T) {
	a := mustNew(t, Config{
		Intent:  &stubIntent{intent: turn.Intent{Location: "Perth"}},
		Decider: &repeatDecider{decision: Decision{Action: RespondToUser}},
		Tools:   &fakeTools{},
	})
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Ask(context.Background(), "q")
		}()
	}
	wg.Wait()
	if got := a.decider.(*repeatDecider).calls; got != 8 {
		t.Errorf("decider calls = %d, want 8", got)
	}
}

func TestClose_Idempotent(t *testing.T) {
	ft := &fakeTools{}
	a := mustNew(t, Config{Intent: &stubIntent{}, Decider: &repeatDecider{}, Tools: ft})
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if ft.closed != 1 {
		t.Errorf("tools closed %d times, want 1", ft.closed)
	}
}

func TestWithDefault(t *testing.T) {
	orig := tools.Params{"location": ""}
	got := withDefault(orig, "location", "Sydney")
	if got["location"] != "Sydney" {
		t.Errorf("location = %v, want Sydney", got["location"])
	}
	if orig["location"] != "" {
		t.Error("withDefault modified its input")
	}
	if got := withDefault(tools.Params{"location": "Perth"}, "location", "Sydney"); got["location"] != "Perth" {
		t.Errorf("existing value replaced: %v", got["location"])
	}
}
