package prompts

import (
	"fmt"
	"time"
)

// intentTemplate is the system prompt for query analysis. The format
// verb is today's date.
const intentTemplate = `You are a query analyzer for a "What to do ..." agent.

Today is %s.

Extract information from the user's query:
1. location - the city/location they're asking about (null if not specified)
2. activity_preferences - specific activity types mentioned (indoor/outdoor/cultural/etc.)
3. time_context - when they want activities (tomorrow/today/weekend/null if general)
4. activity_type - preferred setting: "indoor", "outdoor", "both", or null

Respond ONLY in valid JSON format:
{"location": "city_name_or_null", "activity_preferences": "description_or_null", "time_context": "when_or_null", "activity_type": "indoor/outdoor/both/null"}

Examples:
"What can I do tomorrow in Sydney?" → {"location": "Sydney", "activity_preferences": null, "time_context": "tomorrow", "activity_type": null}
"Indoor activities in Melbourne today" → {"location": "Melbourne", "activity_preferences": "indoor activities", "time_context": "today", "activity_type": "indoor"}
"Outdoor things to do in Brisbane tomorrow" → {"location": "Brisbane", "activity_preferences": "outdoor activities", "time_context": "tomorrow", "activity_type": "outdoor"}
"What to do in Perth?" → {"location": "Perth", "activity_preferences": null, "time_context": null, "activity_type": null}
"Things to do in Adelaide" → {"location": "Adelaide", "activity_preferences": null, "time_context": null, "activity_type": null}`

// IntentPrompt returns the query-analyzer system prompt for the given
// day. The user's query is sent as the following user message.
func IntentPrompt(today time.Time) string {
	return fmt.Sprintf(intentTemplate, today.Format("Monday, 2 January 2006"))
}
