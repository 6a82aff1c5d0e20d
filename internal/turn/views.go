package turn

import (
	"fmt"

	"github.com/nugget/whatnext/internal/tools"
)

// DecisionView is the summary the decision stage sees.
type DecisionView struct {
	OriginalQuery string        `json:"original_query"`
	Intent        Intent        `json:"extracted_info"`
	ToolsUsed     []string      `json:"tools_used"`
	LoopCount     int           `json:"loop_count"`
	MaxLoops      int           `json:"max_loops"`
	DataCollected DataCollected `json:"data_collected"`
}

// DataCollected holds compact summaries of the tool results so far.
type DataCollected struct {
	Weather    *WeatherSummary  `json:"weather,omitempty"`
	Activities *ActivitySummary `json:"activities,omitempty"`
}

// WeatherSummary is the weather as the decision stage sees it: either
// the headline conditions or an error.
type WeatherSummary struct {
	Location         string `json:"location,omitempty"`
	CurrentCondition string `json:"current_condition,omitempty"`
	NextDayCondition string `json:"next_day_condition,omitempty"`
	Error            string `json:"error,omitempty"`
}

// ActivitySummary describes the latest activity result or its error.
type ActivitySummary struct {
	Count      int              `json:"count"`
	Type       string           `json:"type,omitempty"`
	DataSource string           `json:"data_source,omitempty"`
	Activities []tools.Activity `json:"activities,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// DecisionView derives the decision-stage summary.
func (s *State) DecisionView() DecisionView {
	v := DecisionView{
		OriginalQuery: s.query,
		Intent:        s.intent,
		ToolsUsed:     s.ToolsCalled(),
		LoopCount:     s.loopCount,
		MaxLoops:      s.maxLoops,
	}
	if v.ToolsUsed == nil {
		v.ToolsUsed = []string{}
	}

	if w := s.weather; w != nil {
		switch {
		case w.Failed():
			v.DataCollected.Weather = &WeatherSummary{Error: w.Error}
		case len(w.Forecast) == 0:
			v.DataCollected.Weather = &WeatherSummary{Error: "no_forecast"}
		default:
			sum := &WeatherSummary{NextDayCondition: w.Forecast[0].Summary.Condition}
			if w.Location != nil {
				sum.Location = w.Location.Name
			}
			if w.Current != nil {
				sum.CurrentCondition = w.Current.Condition
			}
			v.DataCollected.Weather = sum
		}
	}

	if a := s.latestActivity; a != nil {
		if a.Failed() {
			v.DataCollected.Activities = &ActivitySummary{Error: a.Error}
		} else {
			sum := &ActivitySummary{
				Count:      a.TotalResults,
				DataSource: a.DataSource,
				Activities: a.Activities,
			}
			if a.Query != nil {
				sum.Type = a.Query.ResolvedActivityType
			}
			v.DataCollected.Activities = sum
		}
	}
	return v
}

// ResponseView is everything the response stage needs.
type ResponseView struct {
	OriginalQuery string              `json:"original_query"`
	Intent        Intent              `json:"user_preferences"`
	Weather       *TargetDayWeather   `json:"weather_data"`
	Activities    []ActivityHighlight `json:"activities"`
	Errors        []string            `json:"errors"`
}

// TargetDayWeather is the forecast for the day the user asked about.
type TargetDayWeather struct {
	Location        string  `json:"location"`
	TargetDate      string  `json:"target_date"`
	ResolvedDate    string  `json:"resolved_date,omitempty"`
	DateDescription string  `json:"date_description,omitempty"`
	Condition       string  `json:"condition"`
	TempRange       string  `json:"temp_range"`
	MinTempC        float64 `json:"min_temp_c"`
	MaxTempC        float64 `json:"max_temp_c"`
	RainChance      int     `json:"rain_chance"`
	DateFound       bool    `json:"date_found"`
}

// ActivityHighlight is one merged, deduplicated activity.
type ActivityHighlight struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// ResponseView derives the response-stage view.
func (s *State) ResponseView() ResponseView {
	v := ResponseView{
		OriginalQuery: s.query,
		Intent:        s.intent,
		Activities:    UniqueActivities(s.activities, MaxResponseActivities),
		Errors:        []string{},
	}
	if w := s.weather; w != nil {
		if w.Failed() {
			v.Errors = append(v.Errors, fmt.Sprintf("Weather data unavailable: %s", w.Error))
		} else {
			v.Weather = targetDay(*w)
		}
	}
	if a := s.latestActivity; a != nil && a.Failed() {
		v.Errors = append(v.Errors, fmt.Sprintf("Activity data unavailable: %s", a.Error))
	}
	return v
}

// targetDay picks the forecast entry for the resolved target date. When
// the date is not in the forecast the first day is used and DateFound
// is false. Without target date metadata the first day counts as found.
func targetDay(w tools.WeatherResult) *TargetDayWeather {
	if len(w.Forecast) == 0 {
		return nil
	}

	day := w.Forecast[0]
	found := true
	out := &TargetDayWeather{TargetDate: "unknown"}
	if td := w.TargetDate; td != nil {
		out.TargetDate = td.Requested
		out.ResolvedDate = td.Resolved
		out.DateDescription = td.Description
		if td.Resolved != "" {
			found = false
			for _, d := range w.Forecast {
				if d.Date == td.Resolved {
					day = d
					found = true
					break
				}
			}
		}
	}
	if w.Location != nil {
		out.Location = w.Location.Name
	}

	sum := day.Summary
	out.Condition = sum.Condition
	out.MinTempC = sum.MinTempC
	out.MaxTempC = sum.MaxTempC
	out.TempRange = fmt.Sprintf("%s°C - %s°C", formatTemp(sum.MinTempC), formatTemp(sum.MaxTempC))
	out.RainChance = sum.ChanceOfRain
	out.DateFound = found
	return out
}

// formatTemp renders a temperature without trailing zeros.
func formatTemp(c float64) string {
	return fmt.Sprintf("%g", c)
}

// UniqueActivities merges activities from successful results in order,
// keeping the first occurrence of each name, up to limit entries.
func UniqueActivities(results []tools.ActivityResult, limit int) []ActivityHighlight {
	out := []ActivityHighlight{}
	seen := make(map[string]bool)
	for _, r := range results {
		if r.Failed() {
			continue
		}
		for _, a := range r.Activities {
			if seen[a.Name] {
				continue
			}
			seen[a.Name] = true
			out = append(out, ActivityHighlight{Name: a.Name, Category: a.Category, Description: a.Description})
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}
