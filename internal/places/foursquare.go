// Package places finds activities for a location, from the Foursquare
// Places API when a key is configured and from a built-in catalog of
// activity ideas otherwise.
package places

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nugget/whatnext/internal/httpkit"
	"github.com/nugget/whatnext/internal/tools"
)

// Foursquare API defaults.
const (
	DefaultBaseURL    = "https://places-api.foursquare.com"
	DefaultAPIVersion = "2025-06-17"

	searchLimit     = 15
	maxCategoryIDs  = 5
	maxResults      = 8
	topResults      = 5
	randomResults   = 3
	sampledTypes    = 3
	ratingScale     = 10.0
	defaultCategory = "general"
)

// FoursquareClient searches the Foursquare Places API.
type FoursquareClient struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewFoursquareClient creates a Places API client. Empty baseURL and
// apiVersion use the defaults.
func NewFoursquareClient(apiKey, baseURL, apiVersion string, logger *slog.Logger) *FoursquareClient {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &FoursquareClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: apiVersion,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(20*time.Second),
			httpkit.WithRetry(2, time.Second),
			httpkit.WithLogger(logger),
		),
		logger: logger,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
}

type searchResponse struct {
	Results []place `json:"results"`
}

type place struct {
	Name       string `json:"name"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
	Location struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"location"`
	Rating float64 `json:"rating"`
}

// Search returns up to eight places of activityType (indoor or outdoor)
// near location. With variety set, category sets, search areas and the
// chosen results are randomized between calls.
func (c *FoursquareClient) Search(ctx context.Context, location, activityType, category string, variety bool) ([]tools.Activity, error) {
	ids := c.categoryIDs(activityType, category, variety)
	if len(ids) == 0 {
		return nil, nil
	}

	q := c.searchParams(location, ids, variety)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Places-Api-Version", c.apiVersion)

	c.logger.Debug("foursquare search",
		"location", location,
		"type", activityType,
		"categories", q.Get("categories"),
		"radius", q.Get("radius"),
	)

	var body searchResponse
	if err := httpkit.DoJSON(c.httpClient, req, &body); err != nil {
		return nil, fmt.Errorf("foursquare search: %w", err)
	}

	selected := c.diversify(body.Results, variety)
	out := make([]tools.Activity, 0, len(selected))
	for _, p := range selected {
		out = append(out, toActivity(p, category))
	}
	return out, nil
}

// categoryIDs picks the Foursquare ids to search. A known category uses
// its own ids; otherwise variety samples three category sets.
func (c *FoursquareClient) categoryIDs(activityType, category string, variety bool) []string {
	sets := searchCategories[activityType]
	for _, s := range sets {
		if s.name == category {
			return s.ids
		}
	}

	if variety && len(sets) > 2 {
		c.mu.Lock()
		perm := c.rng.Perm(len(sets))
		c.mu.Unlock()
		var ids []string
		for _, i := range perm[:min(sampledTypes, len(sets))] {
			ids = append(ids, sets[i].ids...)
		}
		return ids
	}

	var ids []string
	for _, s := range sets {
		ids = append(ids, s.ids...)
	}
	return ids
}

func (c *FoursquareClient) searchParams(location string, ids []string, variety bool) url.Values {
	q := url.Values{}
	q.Set("categories", strings.Join(ids[:min(maxCategoryIDs, len(ids))], ","))
	q.Set("limit", strconv.Itoa(searchLimit))

	if variety {
		c.mu.Lock()
		useRadius := c.rng.IntN(2) == 0
		radius := radiusOptions[c.rng.IntN(len(radiusOptions))]
		c.mu.Unlock()
		if ll, ok := cityCoordinates[strings.ToLower(strings.TrimSpace(location))]; ok && useRadius {
			q.Set("ll", strconv.FormatFloat(ll.lat, 'f', -1, 64)+","+strconv.FormatFloat(ll.lng, 'f', -1, 64))
			q.Set("radius", strconv.Itoa(radius))
			return q
		}
	}
	q.Set("near", location)
	return q
}

// diversify keeps the first eight results, or with variety the top
// five plus three random others, shuffled.
func (c *FoursquareClient) diversify(results []place, variety bool) []place {
	if !variety || len(results) <= maxResults {
		return results[:min(maxResults, len(results))]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	selected := append([]place(nil), results[:topResults]...)
	rest := results[topResults:]
	for _, i := range c.rng.Perm(len(rest))[:min(randomResults, len(rest))] {
		selected = append(selected, rest[i])
	}
	c.rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	return selected
}

func toActivity(p place, category string) tools.Activity {
	a := tools.Activity{
		Name:        p.Name,
		Category:    classify(p, category),
		Description: p.Location.FormattedAddress,
		Source:      tools.SourceFoursquare,
	}
	if p.Rating > 0 {
		r := p.Rating / ratingScale
		a.Rating = &r
	}
	return a
}

// classify names the category of p from its first Foursquare category,
// falling back to the requested category and then "general".
func classify(p place, requested string) string {
	fallback := requested
	if fallback == "" {
		fallback = defaultCategory
	}
	if len(p.Categories) == 0 {
		return fallback
	}
	name := strings.ToLower(p.Categories[0].Name)
	for _, rule := range classifier {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.category
			}
		}
	}
	return fallback
}
