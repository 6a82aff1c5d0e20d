package places

import "github.com/nugget/whatnext/internal/tools"

// categoryIDs is one activity category and the Foursquare category ids
// searched for it.
type categoryIDs struct {
	name string
	ids  []string
}

// searchCategories lists, per activity type, the categories searched
// and their Foursquare ids. Order is fixed so seeded sampling repeats.
var searchCategories = map[string][]categoryIDs{
	tools.Indoor: {
		{"culture", []string{"10000", "10027", "10028", "10029"}},
		{"shopping", []string{"17000", "17001", "17069"}},
		{"entertainment", []string{"10000", "10032", "10041"}},
		{"fitness", []string{"18000", "18021", "18001"}},
		{"learning", []string{"12000", "12062"}},
		{"relaxation", []string{"18058", "12000"}},
	},
	tools.Outdoor: {
		{"nature", []string{"16000", "16032", "16014"}},
		{"water", []string{"16048", "16025"}},
		{"adventure", []string{"16000", "16034"}},
		{"sightseeing", []string{"15000", "15014"}},
		{"fitness", []string{"18000", "18042"}},
	},
}

// latLng is a coordinate pair.
type latLng struct {
	lat, lng float64
}

// cityCoordinates are the cities that may be searched by coordinates
// and radius instead of by name.
var cityCoordinates = map[string]latLng{
	"sydney":    {-33.8688, 151.2093},
	"melbourne": {-37.8136, 144.9631},
	"brisbane":  {-27.4698, 153.0251},
	"perth":     {-31.9505, 115.8605},
	"adelaide":  {-34.9285, 138.6007},
}

// radiusOptions are the search radii in meters used for variety.
var radiusOptions = []int{2000, 5000, 10000, 20000}

// classifier maps keywords in a Foursquare category name to one of our
// categories. The first matching rule wins.
var classifier = []struct {
	category string
	keywords []string
}{
	{"culture", []string{"museum", "gallery", "theater"}},
	{"shopping", []string{"shop", "mall", "market"}},
	{"dining", []string{"restaurant", "bar", "cafe"}},
	{"fitness", []string{"gym", "sport"}},
	{"nature", []string{"park", "garden"}},
}
