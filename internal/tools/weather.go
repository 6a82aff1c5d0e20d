package tools

import (
	"encoding/json"
	"fmt"
)

// Weather argument bounds.
const (
	DefaultForecastDays = 7
	MaxForecastDays     = 10
	DefaultTargetDate   = "tomorrow"
)

// WeatherArgs are the arguments of the weather tool.
type WeatherArgs struct {
	Location      string `json:"location" jsonschema:"city or place to forecast, e.g. Sydney"`
	ForecastDays  int    `json:"forecast_days,omitempty" jsonschema:"number of forecast days from 1 to 10, default 7"`
	TargetDate    string `json:"target_date,omitempty" jsonschema:"day of interest: today, tomorrow, this weekend, next week or YYYY-MM-DD; default tomorrow"`
	IncludeHourly *bool  `json:"include_hourly,omitempty" jsonschema:"include hourly records in each forecast day, default true"`
}

// WithDefaults fills unset fields and clamps ForecastDays into range.
func (a WeatherArgs) WithDefaults() WeatherArgs {
	switch {
	case a.ForecastDays == 0:
		a.ForecastDays = DefaultForecastDays
	case a.ForecastDays < 1:
		a.ForecastDays = 1
	case a.ForecastDays > MaxForecastDays:
		a.ForecastDays = MaxForecastDays
	}
	if a.TargetDate == "" {
		a.TargetDate = DefaultTargetDate
	}
	if a.IncludeHourly == nil {
		hourly := true
		a.IncludeHourly = &hourly
	}
	return a
}

// Hourly reports whether hourly records were requested.
func (a WeatherArgs) Hourly() bool {
	return a.IncludeHourly == nil || *a.IncludeHourly
}

// Validate checks required fields.
func (a WeatherArgs) Validate() error {
	if a.Location == "" {
		return &ArgumentError{Tool: WeatherTool, Field: "location", Reason: "is required"}
	}
	return nil
}

// WeatherArgsFromParams converts model-proposed parameters, applies
// defaults and validates the result.
func WeatherArgsFromParams(p Params) (WeatherArgs, error) {
	var a WeatherArgs
	a.Location, _ = p.String("location")
	a.TargetDate, _ = p.String("target_date")

	days, ok, err := p.Int("forecast_days")
	if err != nil {
		return a, &ArgumentError{Tool: WeatherTool, Field: "forecast_days", Reason: err.Error()}
	}
	if ok {
		a.ForecastDays = days
		if days == 0 {
			a.ForecastDays = 1
		}
	}

	hourly, ok, err := p.Bool("include_hourly")
	if err != nil {
		return a, &ArgumentError{Tool: WeatherTool, Field: "include_hourly", Reason: err.Error()}
	}
	if ok {
		a.IncludeHourly = &hourly
	}

	a = a.WithDefaults()
	return a, a.Validate()
}

// WeatherResult is the weather tool's reply. Exactly one of a failure
// (Success false, Error set) or a forecast payload is present.
type WeatherResult struct {
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	Location   *PlaceInfo      `json:"location,omitempty"`
	Current    *CurrentWeather `json:"current,omitempty"`
	TargetDate *TargetDate     `json:"target_date,omitempty"`
	Forecast   []ForecastDay   `json:"forecast,omitempty"`
}

// PlaceInfo describes the location a forecast is for.
type PlaceInfo struct {
	Name        string      `json:"name"`
	Region      string      `json:"region,omitempty"`
	Country     string      `json:"country,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
	Timezone    string      `json:"timezone,omitempty"`
	LocalTime   string      `json:"local_time,omitempty"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CurrentWeather is the conditions snapshot at request time.
type CurrentWeather struct {
	TemperatureC  float64 `json:"temperature_c"`
	FeelsLikeC    float64 `json:"feels_like_c"`
	Condition     string  `json:"condition"`
	Humidity      int     `json:"humidity"`
	WindKPH       float64 `json:"wind_kph"`
	WindDirection string  `json:"wind_direction,omitempty"`
	PressureMB    float64 `json:"pressure_mb"`
	VisibilityKM  float64 `json:"visibility_km"`
	UVIndex       float64 `json:"uv_index"`
	IsDay         bool    `json:"is_day"`
	LastUpdated   string  `json:"last_updated,omitempty"`
}

// TargetDate records how the requested day was resolved.
type TargetDate struct {
	Requested   string `json:"requested"`
	Resolved    string `json:"resolved"`
	Description string `json:"description"`
}

// ForecastDay is one day of forecast.
type ForecastDay struct {
	Date    string       `json:"date"`
	Summary DaySummary   `json:"day_summary"`
	Hourly  []HourRecord `json:"hourly,omitempty"`
}

// DaySummary aggregates a forecast day.
type DaySummary struct {
	Condition    string  `json:"condition"`
	MaxTempC     float64 `json:"max_temp_c"`
	MinTempC     float64 `json:"min_temp_c"`
	AvgTempC     float64 `json:"avg_temp_c"`
	ChanceOfRain int     `json:"chance_of_rain"`
	ChanceOfSnow int     `json:"chance_of_snow"`
	MaxWindKPH   float64 `json:"max_wind_kph"`
	Humidity     float64 `json:"humidity"`
	UVIndex      float64 `json:"uv_index"`
}

// HourRecord is one hour of a forecast day.
type HourRecord struct {
	Time         string  `json:"time"`
	TempC        float64 `json:"temp_c"`
	Condition    string  `json:"condition"`
	ChanceOfRain int     `json:"chance_of_rain"`
	WindKPH      float64 `json:"wind_kph"`
	Humidity     int     `json:"humidity"`
	IsDay        bool    `json:"is_day"`
}

// WeatherFailure builds a failed weather result.
func WeatherFailure(format string, args ...any) WeatherResult {
	return WeatherResult{Error: fmt.Sprintf(format, args...)}
}

// DecodeWeather parses a raw tool reply. Malformed documents, bare
// {"error": ...} replies and replies without a success flag all become
// failed results.
func DecodeWeather(raw json.RawMessage) WeatherResult {
	var r WeatherResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return WeatherFailure("malformed weather result: %v", err)
	}
	return r.normalized()
}

func (r WeatherResult) normalized() WeatherResult {
	switch {
	case r.Error != "":
		return WeatherResult{Error: r.Error}
	case !r.Success:
		return WeatherFailure("weather tool reported failure without a message")
	}
	return r
}

// Failed reports whether the result is a failure.
func (r WeatherResult) Failed() bool {
	return !r.Success || r.Error != ""
}
