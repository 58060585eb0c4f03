package catalog

// ResetPhrase is the exact user text that wipes an in-progress conversation,
// regardless of its state.
const ResetPhrase = "Reset conversation"

// Search types known to the built-in catalog.
const (
	TypeRestaurant = "restaurant"
	TypeCafe       = "cafe"
)

var defaultTriggers = map[string]string{
	"Find restaurants nearby": TypeRestaurant,
	"Find cafes nearby":       TypeCafe,
}

var defaultSets = []QuestionSet{
	{
		Type:  TypeRestaurant,
		Order: []int{1, 2},
		Questions: map[int]Question{
			1: {
				ID:       1,
				Prompt:   "Which cuisine would you like?",
				Property: "keyword",
				Options: []Option{
					{Label: "Japanese", Value: "japanese"},
					{Label: "Italian", Value: "italian"},
					{Label: "Chinese", Value: "chinese"},
					{Label: "Korean", Value: "korean"},
					{Label: "Indian", Value: "indian"},
				},
			},
			2: {
				ID:       2,
				Prompt:   "How far from your current location (m)?",
				Property: "radius",
				Options: []Option{
					{Label: "500m", Value: "500"},
					{Label: "1000m", Value: "1000"},
					{Label: "1500m", Value: "1500"},
					{Label: "2000m", Value: "2000"},
					{Label: "2500m", Value: "2500"},
				},
			},
		},
	},
	{
		Type:  TypeCafe,
		Order: []int{1},
		Questions: map[int]Question{
			1: {
				ID:       1,
				Prompt:   "How far from your current location (m)?",
				Property: "radius",
				Options: []Option{
					{Label: "500m", Value: "500"},
					{Label: "1000m", Value: "1000"},
					{Label: "1500m", Value: "1500"},
					{Label: "2000m", Value: "2000"},
					{Label: "2500m", Value: "2500"},
				},
			},
		},
	},
}

// Default returns the built-in questionnaire catalog.
func Default() *Catalog {
	return MustNew(defaultSets, defaultTriggers)
}
