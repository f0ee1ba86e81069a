// Package services holds the site's use cases. Handlers translate HTTP to
// commands and map the returned errors onto responses.
package services

import (
	"context"

	"github.com/lijid/lijid-dotcom/internal/places"
	"github.com/lijid/lijid-dotcom/internal/reviews"
)

// LeadService accepts contact requests and notifies the agent.
type LeadService interface {
	// Ready reports ErrLeadNotConfigured when mail settings are incomplete.
	Ready() error
	Submit(ctx context.Context, cmd SubmitLeadCommand) (LeadReceipt, error)
}

// ReviewFeedService produces the reviews section view model.
type ReviewFeedService interface {
	Feed(ctx context.Context) ReviewFeed
	ResetPlaceID(ctx context.Context) error
}

// SubmitLeadCommand carries one raw submission. Fields uses the JSON and
// form field names; SourceKey identifies the caller for rate limiting.
type SubmitLeadCommand struct {
	Fields    map[string]any
	SourceKey string
}

// LeadReceipt reports what happened to an accepted submission. Delivered is
// false for submissions dropped as spam.
type LeadReceipt struct {
	ID        string
	Delivered bool
}

// ReviewFeed is the reviews section as rendered by every surface.
type ReviewFeed struct {
	State       places.State     `json:"state"`
	Status      string           `json:"status"`
	Rating      float64          `json:"rating,omitempty"`
	RatingCount int              `json:"ratingCount,omitempty"`
	PlaceName   string           `json:"placeName,omitempty"`
	PlaceURL    string           `json:"placeUrl,omitempty"`
	ShareURL    string           `json:"shareUrl,omitempty"`
	Reviews     []reviews.Record `json:"reviews"`
	Debug       string           `json:"debug,omitempty"`
}

// HasReviews reports whether there are cards to render.
func (f ReviewFeed) HasReviews() bool { return len(f.Reviews) > 0 }
