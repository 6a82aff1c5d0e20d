package toolserver

import (
	"context"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nugget/whatnext/internal/tools"
)

type fakeForecaster struct {
	got []tools.WeatherArgs
}

func (f *fakeForecaster) Forecast(_ context.Context, args tools.WeatherArgs) tools.WeatherResult {
	f.got = append(f.got, args)
	return tools.WeatherResult{
		Success:  true,
		Location: &tools.PlaceInfo{Name: args.Location},
		Forecast: []tools.ForecastDay{{Date: "2025-07-03", Summary: tools.DaySummary{Condition: "Sunny", MaxTempC: 21}}},
	}
}

type fakeFinder struct {
	got []tools.ActivityArgs
}

func (f *fakeFinder) Find(_ context.Context, args tools.ActivityArgs) tools.ActivityResult {
	f.got = append(f.got, args)
	return tools.ActivityResult{
		Success:      true,
		Location:     args.Location,
		DataSource:   tools.SourceCatalog,
		TotalResults: 1,
		Activities:   []tools.Activity{{Name: "Museum or gallery visit", Category: "culture"}},
	}
}

// connect runs the server over in-memory transports and returns a
// client session.
func connect(t *testing.T, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callText(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if res.IsError {
		t.Fatalf("CallTool(%s) reported a tool error: %+v", name, res.Content)
	}
	if len(res.Content) != 1 {
		t.Fatalf("CallTool(%s) returned %d content blocks, want 1", name, len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *mcp.TextContent", res.Content[0])
	}
	return text.Text
}

func TestListTools(t *testing.T) {
	cs := connect(t, New(&fakeForecaster{}, &fakeFinder{}, nil))

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		if tool.InputSchema == nil {
			t.Errorf("tool %s has no input schema", tool.Name)
		}
	}
	slices.Sort(names)
	if diff := cmp.Diff([]string{tools.ActivityTool, tools.WeatherTool}, names); diff != "" {
		t.Errorf("tool names mismatch (-want +got):\n%s", diff)
	}
}

func TestWeatherTool(t *testing.T) {
	fc := &fakeForecaster{}
	cs := connect(t, New(fc, &fakeFinder{}, nil))

	text := callText(t, cs, tools.WeatherTool, map[string]any{"location": "Sydney", "forecast_days": 3})

	res := tools.DecodeWeather([]byte(text))
	if res.Failed() || res.Location.Name != "Sydney" || res.Forecast[0].Summary.Condition != "Sunny" {
		t.Errorf("decoded result = %+v", res)
	}
	if len(fc.got) != 1 {
		t.Fatalf("forecaster calls = %d, want 1", len(fc.got))
	}
	got := fc.got[0]
	if got.ForecastDays != 3 || got.TargetDate != tools.DefaultTargetDate || !got.Hourly() {
		t.Errorf("forecaster args = %+v, want defaults applied", got)
	}
}

func TestWeatherTool_BlankLocation(t *testing.T) {
	fc := &fakeForecaster{}
	cs := connect(t, New(fc, &fakeFinder{}, nil))

	text := callText(t, cs, tools.WeatherTool, map[string]any{"location": ""})
	res := tools.DecodeWeather([]byte(text))
	if !res.Failed() {
		t.Errorf("expected failure, got %+v", res)
	}
	if len(fc.got) != 0 {
		t.Error("forecaster called without a location")
	}
}

func TestActivityTool(t *testing.T) {
	ff := &fakeFinder{}
	cs := connect(t, New(&fakeForecaster{}, ff, nil))

	text := callText(t, cs, tools.ActivityTool, map[string]any{
		"location":          "Melbourne",
		"weather_condition": "Light rain",
		"activity_type":     "both",
	})

	res := tools.DecodeActivity([]byte(text))
	if res.Failed() || res.TotalResults != 1 || res.DataSource != tools.SourceCatalog {
		t.Errorf("decoded result = %+v", res)
	}
	want := tools.ActivityArgs{Location: "Melbourne", WeatherCondition: "Light rain", ActivityType: "both"}
	if diff := cmp.Diff([]tools.ActivityArgs{want}, ff.got); diff != "" {
		t.Errorf("finder args mismatch (-want +got):\n%s", diff)
	}
}
