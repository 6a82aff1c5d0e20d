package turn

import (
	"encoding/json"
	"strings"

	"github.com/nugget/whatnext/internal/tools"
)

// Intent is the structured reading of a query. Empty fields mean the
// query did not say; they serialize as JSON null.
type Intent struct {
	Location            string
	ActivityPreferences string
	TimeContext         string
	ActivityType        string // indoor, outdoor, both or empty
}

type intentJSON struct {
	Location            *string `json:"location"`
	ActivityPreferences *string `json:"activity_preferences"`
	TimeContext         *string `json:"time_context"`
	ActivityType        *string `json:"activity_type"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// MarshalJSON encodes empty fields as null.
func (i Intent) MarshalJSON() ([]byte, error) {
	return json.Marshal(intentJSON{
		Location:            nullable(i.Location),
		ActivityPreferences: nullable(i.ActivityPreferences),
		TimeContext:         nullable(i.TimeContext),
		ActivityType:        nullable(i.ActivityType),
	})
}

// UnmarshalJSON decodes an intent, treating null, blank and the literal
// string "null" as absent. Unknown activity types are dropped.
func (i *Intent) UnmarshalJSON(data []byte) error {
	var raw intentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = Intent{
		Location:            clean(raw.Location),
		ActivityPreferences: clean(raw.ActivityPreferences),
		TimeContext:         clean(raw.TimeContext),
		ActivityType:        strings.ToLower(clean(raw.ActivityType)),
	}
	switch i.ActivityType {
	case tools.Indoor, tools.Outdoor, tools.Both:
	default:
		i.ActivityType = ""
	}
	return nil
}

func clean(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	if strings.EqualFold(v, "null") || strings.EqualFold(v, "none") {
		return ""
	}
	return v
}
