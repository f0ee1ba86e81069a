package places

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"googlemaps.github.io/maps"

	"github.com/lijid/lijid-dotcom/internal/reviews"
)

// Legacy web service statuses the adapter classifies.
const (
	legacyNotFound       = "NOT_FOUND"
	legacyInvalidRequest = "INVALID_REQUEST"
	legacyRequestDenied  = "REQUEST_DENIED"
)

var legacyStatuses = []string{
	legacyNotFound, legacyInvalidRequest, legacyRequestDenied,
	"OVER_QUERY_LIMIT", "UNKNOWN_ERROR",
}

var legacyDetailsFields = []maps.PlaceDetailsFieldMask{
	maps.PlaceDetailsFieldMaskName,
	maps.PlaceDetailsFieldMaskRatings,
	maps.PlaceDetailsFieldMaskUserRatingsTotal,
	maps.PlaceDetailsFieldMaskReviews,
	maps.PlaceDetailsFieldMaskURL,
}

// LegacyClient talks to the legacy place web service.
type LegacyClient struct {
	apiKey string
	cfg    clientConfig

	once      sync.Once
	client    *maps.Client
	clientErr error
}

var (
	_ Provider      = (*LegacyClient)(nil)
	_ Autocompleter = (*LegacyClient)(nil)
)

// NewLegacyClient builds a legacy web service adapter.
func NewLegacyClient(apiKey string, opts ...ClientOption) *LegacyClient {
	return &LegacyClient{apiKey: strings.TrimSpace(apiKey), cfg: newClientConfig(opts)}
}

func (c *LegacyClient) webClient() (*maps.Client, error) {
	c.once.Do(func() {
		if c.apiKey == "" {
			c.clientErr = errNoAPIKey
			return
		}
		opts := []maps.ClientOption{maps.WithAPIKey(c.apiKey), maps.WithHTTPClient(c.cfg.httpClient)}
		if c.cfg.legacyBaseURL != "" {
			opts = append(opts, maps.WithBaseURL(c.cfg.legacyBaseURL))
		}
		c.client, c.clientErr = maps.NewClient(opts...)
	})
	return c.client, c.clientErr
}

func (c *LegacyClient) center() *maps.LatLng {
	return &maps.LatLng{Lat: c.cfg.bias.Lat, Lng: c.cfg.bias.Lng}
}

// SearchByText returns the first candidate matching query.
func (c *LegacyClient) SearchByText(ctx context.Context, query string) (string, error) {
	client, err := c.webClient()
	if err != nil {
		return "", err
	}
	req := &maps.FindPlaceFromTextRequest{
		Input:     query,
		InputType: maps.FindPlaceFromTextInputTypeTextQuery,
		Fields:    []maps.PlaceSearchFieldMask{maps.PlaceSearchFieldMaskPlaceID},
	}
	// The client rejects a circular bias without a radius.
	if radius := int(math.Round(c.cfg.bias.RadiusMeters)); !c.cfg.bias.isZero() && radius > 0 {
		req.LocationBias = maps.FindPlaceFromTextLocationBiasCircular
		req.LocationBiasCenter = c.center()
		req.LocationBiasRadius = radius
	}

	resp, err := client.FindPlaceFromText(ctx, req)
	if err != nil {
		if legacyStatus(err) == legacyRequestDenied {
			return "", ErrSearchUnavailable
		}
		return "", legacyFailure("findplacefromtext", err)
	}
	for _, cand := range resp.Candidates {
		if id := strings.TrimSpace(cand.PlaceID); id != "" {
			return id, nil
		}
	}
	return "", ErrNoResults
}

// Autocomplete returns the first prediction for query.
func (c *LegacyClient) Autocomplete(ctx context.Context, query string) (string, error) {
	client, err := c.webClient()
	if err != nil {
		return "", err
	}
	req := &maps.PlaceAutocompleteRequest{Input: query}
	if b := c.cfg.bias; !b.isZero() {
		req.Location = c.center()
		req.Radius = uint(math.Max(0, math.Round(b.RadiusMeters)))
	}

	resp, err := client.PlaceAutocomplete(ctx, req)
	if err != nil {
		return "", legacyFailure("autocomplete", err)
	}
	for _, p := range resp.Predictions {
		if id := strings.TrimSpace(p.PlaceID); id != "" {
			return id, nil
		}
	}
	return "", ErrNoResults
}

// FetchDetails loads rating, link and reviews for id.
func (c *LegacyClient) FetchDetails(ctx context.Context, id string) (Details, error) {
	if strings.TrimSpace(id) == "" {
		return Details{}, ErrStaleID
	}
	client, err := c.webClient()
	if err != nil {
		return Details{}, err
	}

	result, err := client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{PlaceID: id, Fields: legacyDetailsFields})
	if err != nil {
		switch legacyStatus(err) {
		case legacyNotFound, legacyInvalidRequest:
			return Details{}, ErrStaleID
		}
		return Details{}, legacyFailure("details", err)
	}

	details := Details{
		Name:        result.Name,
		Rating:      math.Round(float64(result.Rating)*10) / 10,
		RatingCount: result.UserRatingsTotal,
		URL:         result.URL,
	}
	for _, r := range result.Reviews {
		var published time.Time
		if r.Time > 0 {
			published = time.Unix(int64(r.Time), 0)
		}
		details.Reviews = append(details.Reviews,
			reviews.NewRawReview(r.AuthorName, r.Text, float64(r.Rating), r.RelativeTimeDescription, published))
	}
	return details, nil
}

// legacyStatus extracts the web service status from a client error of the
// form "maps: STATUS - message".
func legacyStatus(err error) string {
	msg := err.Error()
	for _, st := range legacyStatuses {
		if strings.HasPrefix(msg, "maps: "+st+" ") {
			return st
		}
	}
	return ""
}

func legacyFailure(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if st := legacyStatus(err); st != "" {
		return &ProviderError{Op: op, Status: st, Err: err}
	}
	return &ProviderError{Op: op, Err: fmt.Errorf("legacy request: %w", err)}
}
