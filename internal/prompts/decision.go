package prompts

import (
	"fmt"
	"strings"
)

// decisionTemplate is the system prompt for the decision engine. The
// format verbs are the weather tool name, the activity tool name, the
// default forecast length, the category vocabulary and the iteration cap.
const decisionTemplate = `You are the decision engine for a "What to do ..." agent.

Based on the current context, decide what to do next.

Available actions:
1. "call_weather_api" - Get weather information for a location
2. "call_activity_api" - Get activity recommendations
3. "respond_to_user" - Generate final response (when you have sufficient information)

Available tools:
- %[1]s: needs {"location": "city_name", "forecast_days": %[3]d, "target_date": "tomorrow/today/weekend/YYYY-MM-DD"}
- %[2]s: needs {"location": "city_name", "weather_condition": "optional", "activity_type": "indoor/outdoor/both", "category": "optional, one of: %[4]s"}

Decision logic:
1. If no location identified: respond_to_user with error asking for location
2. If user prefers indoor activities only: call %[2]s with "indoor" type, skip weather
3. If user prefers outdoor activities AND specifies a date: call %[1]s first, then %[2]s
4. If user prefers outdoor activities but weather is bad: get both indoor and outdoor activities
5. If no specific day mentioned (general query): call %[2]s with "both" type for mixed recommendations
6. If have sufficient data for user's request: respond_to_user

Key principles:
- Indoor preference = no weather needed
- Outdoor preference + date = check weather first
- No specific date = general recommendations (both indoor/outdoor)
- Bad weather for outdoor = provide both options with weather warning
- Never call a tool again with the same parameters; its result is already in the context
- You have at most %[5]d steps; loop_count in the context shows how many are used

Respond ONLY in valid JSON:
{"action": "call_weather_api|call_activity_api|respond_to_user", "tool": "%[1]s|%[2]s|null", "params": {...}, "reasoning": "brief_explanation"}`

// DecisionPromptParams carries the dynamic parts of the decision prompt.
type DecisionPromptParams struct {
	WeatherTool  string
	ActivityTool string
	ForecastDays int
	Categories   []string
	MaxLoops     int
}

// DecisionPrompt returns the decision-engine system prompt. The turn
// context is sent as the following user message, see DecisionContext.
func DecisionPrompt(p DecisionPromptParams) string {
	return fmt.Sprintf(decisionTemplate,
		p.WeatherTool, p.ActivityTool, p.ForecastDays,
		strings.Join(p.Categories, ", "), p.MaxLoops)
}

// DecisionContext wraps the serialized decision view for the user turn.
func DecisionContext(viewJSON string) string {
	return "Current context: " + viewJSON
}
