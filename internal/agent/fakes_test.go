package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/nugget/whatnext/internal/llm"
	"github.com/nugget/whatnext/internal/tools"
	"github.com/nugget/whatnext/internal/turn"
)

type stubIntent struct {
	intent turn.Intent
	err    error
	calls  int
}

func (s *stubIntent) Extract(_ context.Context, _ string) (turn.Intent, error) {
	s.calls++
	return s.intent, s.err
}

// scriptedDecider returns its decisions in order, then RespondToUser.
type scriptedDecider struct {
	decisions []Decision
	views     []turn.DecisionView
}

func (d *scriptedDecider) Decide(_ context.Context, view turn.DecisionView) Decision {
	d.views = append(d.views, view)
	i := len(d.views) - 1
	if i < len(d.decisions) {
		return d.decisions[i]
	}
	return Decision{Action: RespondToUser}
}

// repeatDecider returns the same decision forever.
type repeatDecider struct {
	decision Decision
	calls    int
}

func (d *repeatDecider) Decide(context.Context, turn.DecisionView) Decision {
	d.calls++
	return d.decision
}

type toolCall struct {
	name string
	args any
}

// fakeTools replays canned replies per tool name. The last reply for a
// tool repeats once the queue is drained.
type fakeTools struct {
	mu      sync.Mutex
	replies map[string][]json.RawMessage
	calls   []toolCall
	closed  int
}

func (f *fakeTools) CallTool(_ context.Context, name string, args any) json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, toolCall{name: name, args: args})
	q := f.replies[name]
	if len(q) == 0 {
		return json.RawMessage(`{"error":"no reply scripted"}`)
	}
	r := q[0]
	if len(q) > 1 {
		f.replies[name] = q[1:]
	}
	return r
}

func (f *fakeTools) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

type stubSynth struct {
	text  string
	err   error
	views []turn.ResponseView
}

func (s *stubSynth) Synthesize(_ context.Context, view turn.ResponseView) (string, error) {
	s.views = append(s.views, view)
	return s.text, s.err
}

// mockLLM replays responses in order and records every request.
type mockLLM struct {
	responses []*llm.ChatResponse
	err       error
	calls     []mockCall
}

type mockCall struct {
	Model    string
	Messages []llm.Message
}

func (m *mockLLM) Chat(_ context.Context, model string, messages []llm.Message) (*llm.ChatResponse, error) {
	m.calls = append(m.calls, mockCall{Model: model, Messages: messages})
	if m.err != nil {
		return nil, m.err
	}
	if len(m.calls) > len(m.responses) {
		return nil, errors.New("mockLLM: no more responses")
	}
	return m.responses[len(m.calls)-1], nil
}

func reply(text string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Model:        "test-model",
		Provider:     "test",
		Message:      llm.Message{Role: llm.RoleAssistant, Content: text},
		InputTokens:  100,
		OutputTokens: 20,
	}
}

type usageCall struct {
	turnID string
	stage  string
	model  string
}

type recordingUsage struct {
	calls []usageCall
}

func (r *recordingUsage) RecordUsage(_ context.Context, turnID, stage string, resp *llm.ChatResponse) {
	r.calls = append(r.calls, usageCall{turnID: turnID, stage: stage, model: resp.Model})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func sydneyForecast() tools.WeatherResult {
	return tools.WeatherResult{
		Success:    true,
		Location:   &tools.PlaceInfo{Name: "Sydney", Country: "Australia"},
		Current:    &tools.CurrentWeather{Condition: "Clear", TemperatureC: 17},
		TargetDate: &tools.TargetDate{Requested: "tomorrow", Resolved: "2025-07-03", Description: "tomorrow"},
		Forecast: []tools.ForecastDay{
			{Date: "2025-07-02", Summary: tools.DaySummary{Condition: "Clear", MinTempC: 9, MaxTempC: 19}},
			{Date: "2025-07-03", Summary: tools.DaySummary{Condition: "Sunny", MinTempC: 11, MaxTempC: 21, ChanceOfRain: 5}},
		},
	}
}

func sydneyActivities() tools.ActivityResult {
	return tools.ActivityResult{
		Success:      true,
		Location:     "Sydney",
		DataSource:   tools.SourceCatalog,
		TotalResults: 2,
		Query:        &tools.ActivityQuery{RequestedActivityType: tools.Both, ResolvedActivityType: tools.Outdoor},
		Activities: []tools.Activity{
			{Name: "Bondi to Coogee Coastal Walk", Category: "nature", Description: "Clifftop walk between beaches"},
			{Name: "Royal Botanic Garden", Category: "nature", Description: "Harbourside gardens"},
		},
	}
}
