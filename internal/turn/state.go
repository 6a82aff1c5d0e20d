// Package turn holds the state of one conversation turn: the query, its
// intent, the tools called and every tool result, plus the two derived
// views handed to the decision and response stages.
package turn

import (
	"slices"

	"github.com/nugget/whatnext/internal/tools"
)

// DefaultMaxLoops is the iteration cap used when none is configured.
const DefaultMaxLoops = 5

// MaxResponseActivities caps the merged activity list in ResponseView.
const MaxResponseActivities = 8

// State is the mutable record of a single turn. It is owned by one
// agent invocation and must not be shared.
type State struct {
	query  string
	intent Intent

	toolsCalled []string
	loopCount   int
	maxLoops    int

	weather        *tools.WeatherResult
	activities     []tools.ActivityResult
	latestActivity *tools.ActivityResult
}

// New starts a turn. maxLoops below 1 uses DefaultMaxLoops.
func New(query string, intent Intent, maxLoops int) *State {
	if maxLoops < 1 {
		maxLoops = DefaultMaxLoops
	}
	return &State{
		query:    query,
		intent:   intent,
		maxLoops: maxLoops,
	}
}

// Query returns the original query text.
func (s *State) Query() string { return s.query }

// Intent returns the extracted intent.
func (s *State) Intent() Intent { return s.intent }

// LoopCount returns the number of iterations started so far.
func (s *State) LoopCount() int { return s.loopCount }

// MaxLoops returns the iteration cap.
func (s *State) MaxLoops() int { return s.maxLoops }

// ToolsCalled returns a copy of the tool names in call order.
func (s *State) ToolsCalled() []string { return slices.Clone(s.toolsCalled) }

// Weather returns the stored weather result, if any.
func (s *State) Weather() (tools.WeatherResult, bool) {
	if s.weather == nil {
		return tools.WeatherResult{}, false
	}
	return *s.weather, true
}

// ActivityResults returns a copy of every activity result in order.
func (s *State) ActivityResults() []tools.ActivityResult {
	return slices.Clone(s.activities)
}

// RecordWeather stores r, replacing any earlier weather result.
// "weather_api" is listed in ToolsCalled at most once.
func (s *State) RecordWeather(r tools.WeatherResult) {
	s.weather = &r
	if !slices.Contains(s.toolsCalled, tools.WeatherTool) {
		s.toolsCalled = append(s.toolsCalled, tools.WeatherTool)
	}
}

// RecordActivity appends r to the activity results and makes it the
// latest. Every call adds an "activity_api" entry to ToolsCalled.
func (s *State) RecordActivity(r tools.ActivityResult) {
	s.activities = append(s.activities, r)
	s.latestActivity = &s.activities[len(s.activities)-1]
	s.toolsCalled = append(s.toolsCalled, tools.ActivityTool)
}

// IncrementLoop starts a new iteration. The count never passes the cap.
func (s *State) IncrementLoop() {
	if s.loopCount < s.maxLoops {
		s.loopCount++
	}
}

// ShouldContinue reports whether another iteration is allowed.
func (s *State) ShouldContinue() bool {
	return s.loopCount < s.maxLoops
}
