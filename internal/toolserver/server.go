// Package toolserver exposes the weather and activity tools as an MCP
// server speaking newline-delimited JSON-RPC over stdio. It is the
// process the agent's tool gateway launches.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nugget/whatnext/internal/buildinfo"
	"github.com/nugget/whatnext/internal/tools"
)

// Name is the server name reported during the handshake.
const Name = "whatnext-tools"

// Forecaster answers weather tool calls.
type Forecaster interface {
	Forecast(ctx context.Context, args tools.WeatherArgs) tools.WeatherResult
}

// ActivityFinder answers activity tool calls.
type ActivityFinder interface {
	Find(ctx context.Context, args tools.ActivityArgs) tools.ActivityResult
}

const (
	weatherDescription = "Get the weather forecast for a location, including current conditions, " +
		"a daily summary for each forecast day and the resolved target date."
	activityDescription = "Get activity recommendations for a location. activity_type both is narrowed " +
		"to indoor or outdoor from weather_condition when it clearly suggests one."
)

// New builds the MCP server with both tools registered.
func New(weather Forecaster, activities ActivityFinder, logger *slog.Logger) *mcp.Server {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{weather: weather, activities: activities, logger: logger}

	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: buildinfo.Version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        tools.WeatherTool,
		Description: weatherDescription,
	}, h.weatherTool)
	mcp.AddTool(server, &mcp.Tool{
		Name:        tools.ActivityTool,
		Description: activityDescription,
	}, h.activityTool)
	return server
}

// Serve runs server on stdin and stdout until the client disconnects
// or ctx is done.
func Serve(ctx context.Context, server *mcp.Server) error {
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve stdio: %w", err)
	}
	return nil
}

type handlers struct {
	weather    Forecaster
	activities ActivityFinder
	logger     *slog.Logger
}

func (h *handlers) weatherTool(ctx context.Context, _ *mcp.CallToolRequest, args tools.WeatherArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	args = args.WithDefaults()
	var res tools.WeatherResult
	if err := args.Validate(); err != nil {
		res = tools.WeatherFailure("%v", err)
	} else {
		res = h.weather.Forecast(ctx, args)
	}
	h.logger.Info("tool call",
		"tool", tools.WeatherTool,
		"location", args.Location,
		"target_date", args.TargetDate,
		"success", res.Success,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return textResult(res)
}

func (h *handlers) activityTool(ctx context.Context, _ *mcp.CallToolRequest, args tools.ActivityArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	res := h.activities.Find(ctx, args)
	h.logger.Info("tool call",
		"tool", tools.ActivityTool,
		"location", args.Location,
		"activity_type", args.ActivityType,
		"success", res.Success,
		"count", res.TotalResults,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return textResult(res)
}

// textResult wraps v as the JSON text of a single content block.
func textResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
