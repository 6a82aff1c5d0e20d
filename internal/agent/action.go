package agent

import (
	"strings"

	"github.com/nugget/whatnext/internal/tools"
)

// Action is the next step chosen by the decision engine.
type Action int

const (
	// Unrecognized is any action text the loop does not understand.
	Unrecognized Action = iota
	CallWeather
	CallActivity
	RespondToUser
)

// Wire names of the actions.
const (
	actionCallWeather   = "call_weather_api"
	actionCallActivity  = "call_activity_api"
	actionRespondToUser = "respond_to_user"
)

// ParseAction maps wire action text to an Action. Matching ignores case
// and surrounding space; anything unknown is Unrecognized.
func ParseAction(s string) Action {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case actionCallWeather:
		return CallWeather
	case actionCallActivity:
		return CallActivity
	case actionRespondToUser:
		return RespondToUser
	}
	return Unrecognized
}

func (a Action) String() string {
	switch a {
	case CallWeather:
		return actionCallWeather
	case CallActivity:
		return actionCallActivity
	case RespondToUser:
		return actionRespondToUser
	}
	return "unrecognized"
}

// Decision is one output of the decision engine.
type Decision struct {
	Action    Action
	Params    tools.Params
	Reasoning string

	// Err is set when the decision could not be obtained and the loop
	// was told to respond instead.
	Err string

	// Raw holds the action text as the model wrote it.
	Raw string
}

// respondAfterFailure is the decision returned when the engine fails.
func respondAfterFailure(format string, err error) Decision {
	return Decision{Action: RespondToUser, Err: strings.TrimSpace(format + ": " + err.Error())}
}
