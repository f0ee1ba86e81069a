// Package places resolves the agent's place identifier and fetches its
// details and reviews from the places provider.
package places

import (
	"context"
	"errors"
	"fmt"

	"github.com/lijid/lijid-dotcom/internal/reviews"
)

var (
	// ErrNoResults is returned when a search finds no candidate place.
	ErrNoResults = errors.New("places: no results")
	// ErrStaleID is returned when the provider rejects an identifier as unknown or invalid.
	ErrStaleID = errors.New("places: identifier is stale")
	// ErrSearchUnavailable is returned when the text search capability is not enabled for the key.
	ErrSearchUnavailable = errors.New("places: text search unavailable")
)

// Details is the subset of place details the site renders.
type Details struct {
	Name        string
	Rating      float64
	RatingCount int
	URL         string
	Reviews     []reviews.RawReview
}

// Provider is the capability the resolver needs from a places backend.
type Provider interface {
	SearchByText(ctx context.Context, query string) (string, error)
	FetchDetails(ctx context.Context, id string) (Details, error)
}

// Autocompleter is implemented by providers that can resolve an identifier
// through query predictions when text search is unavailable.
type Autocompleter interface {
	Autocomplete(ctx context.Context, query string) (string, error)
}

// LocationBias narrows search results to a circle around the agent's area.
type LocationBias struct {
	Lat          float64
	Lng          float64
	RadiusMeters float64
}

func (b LocationBias) isZero() bool {
	return b.Lat == 0 && b.Lng == 0 && b.RadiusMeters == 0
}

// ProviderError carries an unclassified provider failure. Status is the
// gRPC code name or the legacy web service status when one is known.
type ProviderError struct {
	Op     string
	Status string
	Err    error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("places: %s failed: %s", e.Op, e.Status)
	}
	return fmt.Sprintf("places: %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
