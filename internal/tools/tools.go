// Package tools defines the contracts of the two tools the agent can
// call: typed arguments with their defaults and validation, typed
// results, and conversion from the loose parameter maps a model emits.
package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tool names as registered with the tool provider.
const (
	WeatherTool  = "weather_api"
	ActivityTool = "activity_api"
)

// Params is a free-form argument mapping proposed by the decision model.
type Params map[string]any

// String returns the named parameter as a trimmed string. A JSON null or
// the literal "null" counts as absent.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return "", false
	}
	return s, true
}

// Int returns the named parameter as an int. JSON numbers and numeric
// strings are accepted.
func (p Params) Int(key string) (int, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch x := v.(type) {
	case int:
		return x, true, nil
	case int64:
		return int(x), true, nil
	case float64:
		if x != math.Trunc(x) {
			return 0, true, fmt.Errorf("%v is not a whole number", x)
		}
		return int(x), true, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, true, fmt.Errorf("%q is not a number", x)
		}
		return n, true, nil
	}
	return 0, true, fmt.Errorf("unexpected type %T", v)
}

// Bool returns the named parameter as a bool. "true"/"false" strings are
// accepted.
func (p Params) Bool(key string) (bool, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return false, false, nil
	}
	switch x := v.(type) {
	case bool:
		return x, true, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, true, fmt.Errorf("%q is not a boolean", x)
		}
		return b, true, nil
	}
	return false, true, fmt.Errorf("unexpected type %T", v)
}
