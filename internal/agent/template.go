package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/nugget/whatnext/internal/turn"
)

// TemplateSynthesizer renders the answer as fixed markdown without a
// model call.
type TemplateSynthesizer struct{}

// Synthesize implements Synthesizer. It never fails.
func (TemplateSynthesizer) Synthesize(_ context.Context, view turn.ResponseView) (string, error) {
	var b strings.Builder

	location := view.Intent.Location
	if location == "" && view.Weather != nil {
		location = view.Weather.Location
	}
	if location == "" {
		b.WriteString("I'd love to help you find something to do! Which city are you interested in?")
		return b.String(), nil
	}

	when := whenText(view)
	fmt.Fprintf(&b, "Here's what you can do %s in %s!\n", when, location)

	if w := view.Weather; w != nil {
		fmt.Fprintf(&b, "\n**Weather %s:**\n", when)
		fmt.Fprintf(&b, "   - %s with temperatures %s\n", w.Condition, w.TempRange)
		fmt.Fprintf(&b, "   - Chance of rain: %d%%\n", w.RainChance)
		if !w.DateFound {
			b.WriteString("   - That day is beyond the forecast, so this is the nearest available day.\n")
		}
	}

	if len(view.Activities) > 0 {
		b.WriteString("\n**Recommended Activities:**\n")
		for i, a := range view.Activities {
			fmt.Fprintf(&b, "   %d. **%s** (%s)\n", i+1, a.Name, a.Category)
			if a.Description != "" {
				fmt.Fprintf(&b, "      %s\n", a.Description)
			}
		}
	} else if len(view.Errors) == 0 {
		b.WriteString("\nI couldn't find specific activities for this search. Try asking about a category like museums or parks.\n")
	}

	if w := view.Weather; w != nil {
		fmt.Fprintf(&b, "\n**Weather Tip:** %s\n", WeatherAdvice(w))
	}

	if len(view.Errors) > 0 {
		fmt.Fprintf(&b, "\n**Note:** %s\n", strings.Join(view.Errors, "; "))
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func whenText(view turn.ResponseView) string {
	if w := view.Weather; w != nil && w.DateDescription != "" {
		return w.DateDescription
	}
	if view.Intent.TimeContext != "" {
		return view.Intent.TimeContext
	}
	return "tomorrow"
}

// WeatherAdvice returns a one-line tip for the target day's weather.
// Rain above 70% wins, then sunny or clear skies, then heat above 30°C,
// then cold below 10°C.
func WeatherAdvice(w *turn.TargetDayWeather) string {
	cond := strings.ToLower(w.Condition)
	switch {
	case w.RainChance > 70:
		return fmt.Sprintf("High chance of rain (%d%%). Great day for indoor activities or bring an umbrella!", w.RainChance)
	case strings.Contains(cond, "sunny") || strings.Contains(cond, "clear"):
		return "Perfect sunny weather! Ideal for outdoor activities. Don't forget sunscreen."
	case w.MaxTempC > 30:
		return fmt.Sprintf("Hot day ahead (%g°C). Consider early morning or late afternoon outdoor activities.", w.MaxTempC)
	case w.MaxTempC < 10:
		return fmt.Sprintf("Chilly day (%g°C). Layer up and consider warm indoor venues.", w.MaxTempC)
	}
	return fmt.Sprintf("Pleasant weather (%g°C). Great for any type of activity!", w.MaxTempC)
}
