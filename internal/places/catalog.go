package places

import (
	"fmt"

	"github.com/nugget/whatnext/internal/tools"
)

// idea is a generic activity that works in most cities. The description
// is a format string taking the location.
type idea struct {
	name         string
	category     string
	activityType string
	description  string
}

var catalog = []idea{
	{"Museum or gallery visit", "culture", tools.Indoor, "Browse the permanent collection and current exhibitions at a museum or gallery in %s."},
	{"Live theatre or comedy show", "entertainment", tools.Indoor, "Catch an evening performance at one of %s's theatres or comedy clubs."},
	{"Indoor market browse", "shopping", tools.Indoor, "Wander a covered market or arcade in %s for local makers and food stalls."},
	{"Climbing or bouldering gym", "fitness", tools.Indoor, "Book a casual session at an indoor climbing gym in %s; gear hire is usually available."},
	{"Public library or talk", "learning", tools.Indoor, "Check the events calendar at the main library in %s for free talks and workshops."},
	{"Day spa or bathhouse", "relaxation", tools.Indoor, "Unwind with a soak or massage at a day spa in %s."},
	{"Cinema session", "entertainment", tools.Indoor, "See a new release or a classic at an independent cinema in %s."},
	{"Food hall lunch", "dining", tools.Indoor, "Sample a few cuisines at a food hall in central %s."},
	{"Botanic garden walk", "nature", tools.Outdoor, "Stroll the botanic gardens in %s and look out for seasonal plantings."},
	{"Beach or riverside swim", "water", tools.Outdoor, "Head to a patrolled beach or river pool near %s for a swim."},
	{"Kayak or paddleboard hire", "water", tools.Outdoor, "Hire a kayak or stand-up paddleboard on the water around %s."},
	{"Bushwalk or hiking trail", "adventure", tools.Outdoor, "Take on a marked trail on the edge of %s; carry water and check conditions first."},
	{"Guided city walking tour", "sightseeing", tools.Outdoor, "Join a walking tour of %s's historic centre and landmarks."},
	{"Lookout at sunset", "sightseeing", tools.Outdoor, "Find a hilltop or tower lookout in %s to watch the sunset."},
	{"Outdoor fitness loop", "fitness", tools.Outdoor, "Run or cycle a popular waterfront loop in %s."},
	{"Picnic in the park", "general", tools.Outdoor, "Pack lunch and claim a shady spot in one of %s's big parks."},
}

// catalogActivities returns catalog ideas of activityType for location,
// filtered by category when one is given.
func catalogActivities(location, activityType, category string) []tools.Activity {
	var out []tools.Activity
	for _, i := range catalog {
		if i.activityType != activityType {
			continue
		}
		if category != "" && i.category != category {
			continue
		}
		out = append(out, tools.Activity{
			Name:        i.name,
			Category:    i.category,
			Description: fmt.Sprintf(i.description, location),
			Source:      tools.SourceCatalog,
		})
	}
	return out
}
