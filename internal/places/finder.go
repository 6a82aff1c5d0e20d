package places

import (
	"context"
	"log/slog"

	"github.com/nugget/whatnext/internal/tools"
)

// perTypeLimit caps each half of a mixed indoor and outdoor result.
const perTypeLimit = 4

// Searcher finds places of one activity type.
type Searcher interface {
	Search(ctx context.Context, location, activityType, category string, variety bool) ([]tools.Activity, error)
}

// Finder answers activity tool calls.
type Finder struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewFinder returns a Finder. A nil searcher uses only the catalog.
func NewFinder(searcher Searcher, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{searcher: searcher, logger: logger}
}

// Find runs one activity search. "both" is narrowed by the weather
// condition first; a type that stays "both" gets up to four indoor and
// four outdoor activities. When the searcher has nothing the catalog is
// used instead.
func (f *Finder) Find(ctx context.Context, args tools.ActivityArgs) tools.ActivityResult {
	args = args.WithDefaults()
	if err := args.Validate(); err != nil {
		return tools.ActivityFailure("Activity API error: %v", err)
	}

	resolved := tools.ResolveActivityType(args.ActivityType, args.WeatherCondition)
	res := tools.ActivityResult{
		Success:  true,
		Location: args.Location,
		Query: &tools.ActivityQuery{
			WeatherCondition:      args.WeatherCondition,
			RequestedActivityType: args.ActivityType,
			ResolvedActivityType:  resolved,
			CategoryFilter:        args.Category,
		},
	}

	var activities []tools.Activity
	source := tools.SourceNone
	if f.searcher != nil {
		activities = collect(resolved, func(t string) []tools.Activity {
			found, err := f.searcher.Search(ctx, args.Location, t, args.Category, true)
			if err != nil {
				f.logger.Warn("place search failed", "location", args.Location, "type", t, "error", err)
			}
			return found
		})
		if len(activities) > 0 {
			source = tools.SourceFoursquare
		}
	}
	if len(activities) == 0 {
		activities = collect(resolved, func(t string) []tools.Activity {
			return catalogActivities(args.Location, t, args.Category)
		})
		if len(activities) > 0 {
			source = tools.SourceCatalog
		}
	}

	res.Activities = activities[:min(maxResults, len(activities))]
	if res.Activities == nil {
		res.Activities = []tools.Activity{}
	}
	res.TotalResults = len(res.Activities)
	res.DataSource = source
	f.logger.Debug("activities found", "location", args.Location, "type", resolved, "count", res.TotalResults, "source", source)
	return res
}

func collect(activityType string, search func(string) []tools.Activity) []tools.Activity {
	if activityType != tools.Both {
		return search(activityType)
	}
	indoor := search(tools.Indoor)
	outdoor := search(tools.Outdoor)
	out := append([]tools.Activity(nil), indoor[:min(perTypeLimit, len(indoor))]...)
	return append(out, outdoor[:min(perTypeLimit, len(outdoor))]...)
}
