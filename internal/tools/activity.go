package tools

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Activity types.
const (
	Indoor  = "indoor"
	Outdoor = "outdoor"
	Both    = "both"
)

// Data sources reported by the activity tool.
const (
	SourceFoursquare = "foursquare"
	SourceCatalog    = "catalog"
	SourceNone       = "none"
)

// Categories is the fixed activity category vocabulary.
var Categories = []string{
	"culture", "shopping", "entertainment", "fitness", "learning", "relaxation",
	"nature", "water", "adventure", "sightseeing", "dining", "general",
}

// IsCategory reports whether c is in the category vocabulary.
func IsCategory(c string) bool {
	return slices.Contains(Categories, c)
}

// ActivityArgs are the arguments of the activity tool.
type ActivityArgs struct {
	Location         string `json:"location" jsonschema:"city or place to search, e.g. Melbourne"`
	WeatherCondition string `json:"weather_condition,omitempty" jsonschema:"forecast condition text used to pick indoor or outdoor when activity_type is both"`
	ActivityType     string `json:"activity_type,omitempty" jsonschema:"indoor, outdoor or both (default both)"`
	Category         string `json:"category,omitempty" jsonschema:"optional category filter: culture, shopping, entertainment, fitness, learning, relaxation, nature, water, adventure, sightseeing, dining or general"`
}

// WithDefaults normalizes case and fills the activity type.
func (a ActivityArgs) WithDefaults() ActivityArgs {
	a.ActivityType = strings.ToLower(strings.TrimSpace(a.ActivityType))
	if a.ActivityType == "" {
		a.ActivityType = Both
	}
	a.Category = strings.ToLower(strings.TrimSpace(a.Category))
	return a
}

// Validate checks required fields and enumerations.
func (a ActivityArgs) Validate() error {
	if a.Location == "" {
		return &ArgumentError{Tool: ActivityTool, Field: "location", Reason: "is required"}
	}
	switch a.ActivityType {
	case Indoor, Outdoor, Both:
	default:
		return &ArgumentError{Tool: ActivityTool, Field: "activity_type", Reason: fmt.Sprintf("%q is not indoor, outdoor or both", a.ActivityType)}
	}
	if a.Category != "" && !IsCategory(a.Category) {
		return &ArgumentError{Tool: ActivityTool, Field: "category", Reason: fmt.Sprintf("unknown category %q", a.Category)}
	}
	return nil
}

// ActivityArgsFromParams converts model-proposed parameters verbatim,
// applies defaults and validates.
func ActivityArgsFromParams(p Params) (ActivityArgs, error) {
	var a ActivityArgs
	a.Location, _ = p.String("location")
	a.WeatherCondition, _ = p.String("weather_condition")
	a.ActivityType, _ = p.String("activity_type")
	a.Category, _ = p.String("category")
	a = a.WithDefaults()
	return a, a.Validate()
}

var (
	badWeather  = []string{"rain", "storm", "snow", "drizzle", "shower"}
	goodWeather = []string{"sunny", "clear", "fair"}
)

// ResolveActivityType narrows "both" using the weather condition text:
// wet or stormy conditions mean indoor, fine conditions mean outdoor,
// and anything else stays both. Explicit indoor or outdoor requests are
// returned unchanged.
func ResolveActivityType(requested, condition string) string {
	if requested != Both {
		return requested
	}
	cond := strings.ToLower(condition)
	for _, w := range badWeather {
		if strings.Contains(cond, w) {
			return Indoor
		}
	}
	for _, w := range goodWeather {
		if strings.Contains(cond, w) {
			return Outdoor
		}
	}
	return Both
}

// ActivityResult is the activity tool's reply.
type ActivityResult struct {
	Success      bool           `json:"success"`
	Error        string         `json:"error,omitempty"`
	Location     string         `json:"location,omitempty"`
	Query        *ActivityQuery `json:"query_parameters,omitempty"`
	DataSource   string         `json:"data_source,omitempty"`
	TotalResults int            `json:"total_results"`
	Activities   []Activity     `json:"activities"`
}

// ActivityQuery echoes the parameters a search actually used.
type ActivityQuery struct {
	WeatherCondition      string `json:"weather_condition"`
	RequestedActivityType string `json:"requested_activity_type"`
	ResolvedActivityType  string `json:"resolved_activity_type"`
	CategoryFilter        string `json:"category_filter,omitempty"`
}

// Activity is a single recommendation. Name is its identity when
// results from several calls are merged.
type Activity struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Rating      *float64 `json:"rating"`
	Source      string   `json:"source"`
}

// ActivityFailure builds a failed activity result.
func ActivityFailure(format string, args ...any) ActivityResult {
	return ActivityResult{Error: fmt.Sprintf(format, args...)}
}

// DecodeActivity parses a raw tool reply the same way DecodeWeather does.
func DecodeActivity(raw json.RawMessage) ActivityResult {
	var r ActivityResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return ActivityFailure("malformed activity result: %v", err)
	}
	switch {
	case r.Error != "":
		return ActivityResult{Error: r.Error}
	case !r.Success:
		return ActivityFailure("activity tool reported failure without a message")
	}
	return r
}

// Failed reports whether the result is a failure.
func (r ActivityResult) Failed() bool {
	return !r.Success || r.Error != ""
}
