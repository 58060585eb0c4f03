package places

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the search provider could not be reached or
// rejected the request. It is distinct from an empty result set, which is a
// successful search that simply found nothing.
var ErrUnavailable = errors.New("places: search unavailable")

// Place is one nearby-place result, carrying what the carousel renderer needs.
type Place struct {
	ID          string
	Name        string
	Address     string
	Rating      float64
	RatingCount int
	PhotoURL    string
}

// SearchQuery is a nearby search request assembled from questionnaire answers
// and the user's shared location.
type SearchQuery struct {
	Type      string
	Keyword   string
	Radius    int
	Latitude  float64
	Longitude float64
}

// Fetcher performs the nearby-places search.
type Fetcher interface {
	Search(ctx context.Context, query SearchQuery) ([]Place, error)
}
