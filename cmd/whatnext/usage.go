package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/nugget/whatnext/internal/usage"
)

const defaultUsageDays = 30

// usageReport is the JSON shape of the usage command.
type usageReport struct {
	Start   time.Time                 `json:"start"`
	End     time.Time                 `json:"end"`
	Total   *usage.Summary            `json:"total"`
	ByModel map[string]*usage.Summary `json:"by_model"`
	ByStage map[string]*usage.Summary `json:"by_stage"`
}

// runUsage prints token usage and cost for the last N days.
func runUsage(ctx context.Context, stdout, stderr io.Writer, opts options, args []string) error {
	days := defaultUsageDays
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("usage: whatnext usage [days]; got %q", args[0])
		}
		days = n
	}

	cfg, _, err := configuredLogger(stderr, opts)
	if err != nil {
		return err
	}

	store, err := usage.NewStore(cfg.Usage.DBPath)
	if err != nil {
		return fmt.Errorf("open usage store: %w", err)
	}
	defer store.Close()

	end := time.Now()
	report, err := buildUsageReport(ctx, store, end.AddDate(0, 0, -days), end)
	if err != nil {
		return err
	}

	if opts.outputFmt == "json" {
		return writeJSON(stdout, report)
	}
	printUsageReport(stdout, report, days)
	return nil
}

func buildUsageReport(ctx context.Context, store *usage.Store, start, end time.Time) (*usageReport, error) {
	total, err := store.Summary(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("usage summary: %w", err)
	}
	byModel, err := store.SummaryByModel(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("usage by model: %w", err)
	}
	byStage, err := store.SummaryByStage(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("usage by stage: %w", err)
	}
	return &usageReport{
		Start:   start,
		End:     end,
		Total:   total,
		ByModel: byModel,
		ByStage: byStage,
	}, nil
}

func printUsageReport(w io.Writer, r *usageReport, days int) {
	fmt.Fprintf(w, "Usage for the last %d days\n", days)
	fmt.Fprintf(w, "  turns:   %d\n", r.Total.TotalTurns)
	fmt.Fprintf(w, "  calls:   %d\n", r.Total.TotalRecords)
	fmt.Fprintf(w, "  tokens:  %d in, %d out\n", r.Total.TotalInputTokens, r.Total.TotalOutputTokens)
	fmt.Fprintf(w, "  cost:    $%.4f\n", r.Total.TotalCostUSD)

	printBreakdown(w, "By model", r.ByModel)
	printBreakdown(w, "By stage", r.ByStage)
}

func printBreakdown(w io.Writer, title string, groups map[string]*usage.Summary) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		s := groups[k]
		fmt.Fprintf(w, "  %-28s %5d calls  %8d in  %8d out  $%.4f\n",
			k, s.TotalRecords, s.TotalInputTokens, s.TotalOutputTokens, s.TotalCostUSD)
	}
}
