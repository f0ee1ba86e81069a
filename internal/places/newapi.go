package places

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gplaces "cloud.google.com/go/maps/places/apiv1"
	"cloud.google.com/go/maps/places/apiv1/placespb"
	"github.com/googleapis/gax-go/v2"
	"github.com/googleapis/gax-go/v2/callctx"
	"google.golang.org/api/option"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lijid/lijid-dotcom/internal/reviews"
)

const (
	fieldMaskHeader   = "x-goog-fieldmask"
	searchFieldMask   = "places.id"
	suggestFieldMask  = "suggestions.placePrediction.placeId"
	detailsFieldMask  = "id,displayName,rating,userRatingCount,googleMapsUri,reviews"
	placeResourceName = "places/"
)

var newPlacesClient = func(ctx context.Context, opts ...option.ClientOption) (placesAPI, error) {
	return gplaces.NewClient(ctx, opts...)
}

type placesAPI interface {
	SearchText(ctx context.Context, req *placespb.SearchTextRequest, opts ...gax.CallOption) (*placespb.SearchTextResponse, error)
	AutocompletePlaces(ctx context.Context, req *placespb.AutocompletePlacesRequest, opts ...gax.CallOption) (*placespb.AutocompletePlacesResponse, error)
	GetPlace(ctx context.Context, req *placespb.GetPlaceRequest, opts ...gax.CallOption) (*placespb.Place, error)
	Close() error
}

// APIClient talks to Places API (New). The connection is opened on first use.
type APIClient struct {
	apiKey string
	cfg    clientConfig

	mu     sync.Mutex
	client placesAPI
	owned  bool
}

var (
	_ Provider      = (*APIClient)(nil)
	_ Autocompleter = (*APIClient)(nil)
)

// NewAPIClient builds a Places API (New) adapter.
func NewAPIClient(apiKey string, opts ...ClientOption) *APIClient {
	cfg := newClientConfig(opts)
	return &APIClient{apiKey: strings.TrimSpace(apiKey), cfg: cfg, client: cfg.api}
}

// Close releases a connection opened by the adapter.
func (c *APIClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.owned || c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client, c.owned = nil, false
	return err
}

func (c *APIClient) conn(ctx context.Context) (placesAPI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, errNoAPIKey
	}
	opts := append([]option.ClientOption{option.WithAPIKey(c.apiKey)}, c.cfg.clientOpts...)
	// The dial context outlives this request.
	client, err := newPlacesClient(context.WithoutCancel(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("places: connect: %w", err)
	}
	c.client, c.owned = client, true
	return client, nil
}

func (c *APIClient) circle() *placespb.Circle {
	if c.cfg.bias.isZero() {
		return nil
	}
	return &placespb.Circle{
		Center: &latlng.LatLng{Latitude: c.cfg.bias.Lat, Longitude: c.cfg.bias.Lng},
		Radius: c.cfg.bias.RadiusMeters,
	}
}

// SearchByText returns the first place matching query.
func (c *APIClient) SearchByText(ctx context.Context, query string) (string, error) {
	client, err := c.conn(ctx)
	if err != nil {
		return "", err
	}
	req := &placespb.SearchTextRequest{TextQuery: query}
	if circle := c.circle(); circle != nil {
		req.LocationBias = &placespb.SearchTextRequest_LocationBias{
			Type: &placespb.SearchTextRequest_LocationBias_Circle{Circle: circle},
		}
	}
	resp, err := client.SearchText(callctx.SetHeaders(ctx, fieldMaskHeader, searchFieldMask), req)
	if err != nil {
		if status.Code(err) == codes.PermissionDenied {
			return "", ErrSearchUnavailable
		}
		return "", rpcFailure("searchText", err)
	}
	for _, p := range resp.GetPlaces() {
		if id := strings.TrimSpace(p.GetId()); id != "" {
			return id, nil
		}
	}
	return "", ErrNoResults
}

// Autocomplete returns the first place prediction for query.
func (c *APIClient) Autocomplete(ctx context.Context, query string) (string, error) {
	client, err := c.conn(ctx)
	if err != nil {
		return "", err
	}
	req := &placespb.AutocompletePlacesRequest{Input: query}
	if circle := c.circle(); circle != nil {
		req.LocationBias = &placespb.AutocompletePlacesRequest_LocationBias{
			Type: &placespb.AutocompletePlacesRequest_LocationBias_Circle{Circle: circle},
		}
	}
	resp, err := client.AutocompletePlaces(callctx.SetHeaders(ctx, fieldMaskHeader, suggestFieldMask), req)
	if err != nil {
		return "", rpcFailure("autocomplete", err)
	}
	for _, s := range resp.GetSuggestions() {
		if id := strings.TrimSpace(s.GetPlacePrediction().GetPlaceId()); id != "" {
			return id, nil
		}
	}
	return "", ErrNoResults
}

// FetchDetails loads rating, link and reviews for id.
func (c *APIClient) FetchDetails(ctx context.Context, id string) (Details, error) {
	client, err := c.conn(ctx)
	if err != nil {
		return Details{}, err
	}
	place, err := client.GetPlace(callctx.SetHeaders(ctx, fieldMaskHeader, detailsFieldMask),
		&placespb.GetPlaceRequest{Name: placeResourceName + id})
	if err != nil {
		switch status.Code(err) {
		case codes.NotFound, codes.InvalidArgument:
			return Details{}, ErrStaleID
		}
		return Details{}, rpcFailure("details", err)
	}

	details := Details{
		Name:        place.GetDisplayName().GetText(),
		Rating:      place.GetRating(),
		RatingCount: int(place.GetUserRatingCount()),
		URL:         place.GetGoogleMapsUri(),
	}
	for _, r := range place.GetReviews() {
		details.Reviews = append(details.Reviews, reviewFromPlace(r))
	}
	return details, nil
}

func reviewFromPlace(r *placespb.Review) reviews.RawReview {
	text := r.GetText().GetText()
	if strings.TrimSpace(text) == "" {
		text = r.GetOriginalText().GetText()
	}
	var published time.Time
	if ts := r.GetPublishTime(); ts != nil {
		published = ts.AsTime()
	}
	return reviews.NewRawReview(r.GetAuthorAttribution().GetDisplayName(), text, r.GetRating(),
		r.GetRelativePublishTimeDescription(), published)
}

func rpcFailure(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ProviderError{Op: op, Status: status.Code(err).String(), Err: err}
}
