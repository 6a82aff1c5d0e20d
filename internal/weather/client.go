// Package weather fetches forecasts from WeatherAPI.com and converts
// them into the weather tool's result shape.
package weather

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nugget/whatnext/internal/dates"
	"github.com/nugget/whatnext/internal/httpkit"
	"github.com/nugget/whatnext/internal/tools"
)

// DefaultBaseURL is the WeatherAPI.com v1 endpoint.
const DefaultBaseURL = "https://api.weatherapi.com/v1"

// localTimeLayout is the format of WeatherAPI's location.localtime.
const localTimeLayout = "2006-01-02 15:04"

// Client is a WeatherAPI.com forecast client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a forecast client. An empty baseURL uses
// DefaultBaseURL. With an empty apiKey every call reports a
// configuration failure.
func NewClient(apiKey, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(20*time.Second),
			httpkit.WithRetry(2, time.Second),
			httpkit.WithLogger(logger),
		),
		logger: logger,
		now:    time.Now,
	}
}

// Forecast fetches the forecast described by args. Failures are
// returned as a failed result, never as an error.
func (c *Client) Forecast(ctx context.Context, args tools.WeatherArgs) tools.WeatherResult {
	if c.apiKey == "" {
		return tools.WeatherFailure("Weather API key not configured")
	}
	args = args.WithDefaults()
	if err := args.Validate(); err != nil {
		return tools.WeatherFailure("%v", err)
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", args.Location)
	q.Set("days", strconv.Itoa(min(args.ForecastDays, tools.MaxForecastDays)))
	q.Set("aqi", "no")
	q.Set("alerts", "no")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast.json?"+q.Encode(), nil)
	if err != nil {
		return tools.WeatherFailure("Weather API error: %v", err)
	}

	start := time.Now()
	var body forecastResponse
	if err := httpkit.DoJSON(c.httpClient, req, &body); err != nil {
		c.logger.Warn("forecast request failed", "location", args.Location, "error", err)
		return tools.WeatherFailure("Weather API error: %v", err)
	}
	c.logger.Debug("forecast fetched",
		"location", body.Location.Name,
		"days", len(body.Forecast.ForecastDay),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return c.convert(body, args)
}

func (c *Client) convert(body forecastResponse, args tools.WeatherArgs) tools.WeatherResult {
	res := tools.WeatherResult{
		Success: true,
		Location: &tools.PlaceInfo{
			Name:        body.Location.Name,
			Region:      body.Location.Region,
			Country:     body.Location.Country,
			Coordinates: tools.Coordinates{Lat: body.Location.Lat, Lon: body.Location.Lon},
			Timezone:    body.Location.TzID,
			LocalTime:   body.Location.LocalTime,
		},
		Current: &tools.CurrentWeather{
			TemperatureC:  body.Current.TempC,
			FeelsLikeC:    body.Current.FeelsLikeC,
			Condition:     body.Current.Condition.Text,
			Humidity:      body.Current.Humidity,
			WindKPH:       body.Current.WindKPH,
			WindDirection: body.Current.WindDir,
			PressureMB:    body.Current.PressureMB,
			VisibilityKM:  body.Current.VisKM,
			UVIndex:       body.Current.UV,
			IsDay:         body.Current.IsDay == 1,
			LastUpdated:   body.Current.LastUpdated,
		},
		Forecast: make([]tools.ForecastDay, 0, len(body.Forecast.ForecastDay)),
	}

	for _, fd := range body.Forecast.ForecastDay {
		day := tools.ForecastDay{
			Date: fd.Date,
			Summary: tools.DaySummary{
				Condition:    fd.Day.Condition.Text,
				MaxTempC:     fd.Day.MaxTempC,
				MinTempC:     fd.Day.MinTempC,
				AvgTempC:     fd.Day.AvgTempC,
				ChanceOfRain: fd.Day.DailyChanceOfRain,
				ChanceOfSnow: fd.Day.DailyChanceOfSnow,
				MaxWindKPH:   fd.Day.MaxWindKPH,
				Humidity:     fd.Day.AvgHumidity,
				UVIndex:      fd.Day.UV,
			},
		}
		if args.Hourly() {
			for _, h := range fd.Hour {
				day.Hourly = append(day.Hourly, tools.HourRecord{
					Time:         h.Time,
					TempC:        h.TempC,
					Condition:    h.Condition.Text,
					ChanceOfRain: h.ChanceOfRain,
					WindKPH:      h.WindKPH,
					Humidity:     h.Humidity,
					IsDay:        h.IsDay == 1,
				})
			}
		}
		res.Forecast = append(res.Forecast, day)
	}

	r := dates.Resolve(args.TargetDate, c.localToday(body.Location.LocalTime))
	res.TargetDate = &tools.TargetDate{
		Requested:   args.TargetDate,
		Resolved:    r.ISO(),
		Description: r.Description,
	}
	return res
}

// localToday returns the current date at the forecast location, falling
// back to the local clock when WeatherAPI's local time is unusable.
func (c *Client) localToday(localTime string) time.Time {
	if t, err := time.Parse(localTimeLayout, localTime); err == nil {
		return t
	}
	return c.now()
}
