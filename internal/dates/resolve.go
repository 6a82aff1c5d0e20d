// Package dates turns loose date expressions ("tomorrow", "this weekend",
// "2025-07-04") into calendar dates.
package dates

import (
	"strings"
	"time"
)

// isoLayout is the only literal date format accepted.
const isoLayout = "2006-01-02"

// FallbackDescription marks a resolution that could not parse its input
// and defaulted to tomorrow.
const FallbackDescription = "tomorrow (default)"

// Resolution is the outcome of resolving a date expression.
type Resolution struct {
	// Date is the resolved calendar day at midnight in today's location.
	Date time.Time

	// Description is a human-readable label: the original expression,
	// "tomorrow" for an empty one, or FallbackDescription.
	Description string

	// Fallback is true when the expression was not understood and the
	// result defaulted to tomorrow.
	Fallback bool
}

// ISO returns the resolved date formatted as YYYY-MM-DD.
func (r Resolution) ISO() string {
	return r.Date.Format(isoLayout)
}

// Resolve maps expr to a concrete date relative to today. It never
// fails: anything it cannot interpret resolves to tomorrow with
// Fallback set.
func Resolve(expr string, today time.Time) Resolution {
	day := truncate(today)
	key := strings.ToLower(strings.TrimSpace(expr))

	res := Resolution{Description: strings.TrimSpace(expr)}
	if res.Description == "" {
		res.Description = "tomorrow"
	}

	switch key {
	case "", "tomorrow", "tmrw":
		res.Date = day.AddDate(0, 0, 1)
	case "today":
		res.Date = day
	case "this weekend", "weekend":
		res.Date = day.AddDate(0, 0, daysUntil(day.Weekday(), time.Saturday, false))
	case "next week", "next monday":
		res.Date = day.AddDate(0, 0, daysUntil(day.Weekday(), time.Monday, true))
	default:
		parsed, err := time.ParseInLocation(isoLayout, key, day.Location())
		if err != nil {
			res.Date = day.AddDate(0, 0, 1)
			res.Description = FallbackDescription
			res.Fallback = true
			return res
		}
		res.Date = parsed
	}
	return res
}

// daysUntil counts days from one weekday to the next occurrence of
// target. When they coincide the result is 0, or 7 if strictlyAfter.
func daysUntil(from, target time.Weekday, strictlyAfter bool) int {
	n := (int(target) - int(from) + 7) % 7
	if n == 0 && strictlyAfter {
		return 7
	}
	return n
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
