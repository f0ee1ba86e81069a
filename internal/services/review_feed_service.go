package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lijid/lijid-dotcom/internal/places"
	"github.com/lijid/lijid-dotcom/internal/reviews"
)

// PlaceResolver is the part of places.Resolver the feed depends on.
type PlaceResolver interface {
	Resolve(ctx context.Context) places.Outcome
	Reset(ctx context.Context) error
}

// ReviewFeedServiceDeps bundles collaborators required to construct a ReviewFeedService.
type ReviewFeedServiceDeps struct {
	Resolver   PlaceResolver
	MaxReviews int
	ShareURL   string
	CacheTTL   time.Duration
	Debug      bool
	Clock      func() time.Time
	Logger     *zap.Logger
}

type reviewFeedService struct {
	resolver   PlaceResolver
	maxReviews int
	shareURL   string
	ttl        time.Duration
	debug      bool
	clock      func() time.Time
	logger     *zap.Logger

	mu       sync.Mutex
	cached   *ReviewFeed
	cachedAt time.Time
}

// NewReviewFeedService wires dependencies into a ReviewFeedService.
func NewReviewFeedService(deps ReviewFeedServiceDeps) (ReviewFeedService, error) {
	if deps.Resolver == nil {
		return nil, errors.New("review feed service: resolver is required")
	}
	maxReviews := deps.MaxReviews
	if maxReviews <= 0 {
		maxReviews = 4
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reviewFeedService{
		resolver:   deps.Resolver,
		maxReviews: maxReviews,
		shareURL:   deps.ShareURL,
		ttl:        deps.CacheTTL,
		debug:      deps.Debug,
		clock:      clock,
		logger:     logger.Named("reviews"),
	}, nil
}

func (s *reviewFeedService) Feed(ctx context.Context) ReviewFeed {
	if feed, ok := s.fromCache(); ok {
		return feed
	}

	out := s.resolver.Resolve(ctx)
	feed := s.build(out)
	if out.State == places.StateRendered {
		s.store(feed)
	} else if out.Err != nil && out.State != places.StateUnconfigured {
		s.logger.Warn("reviews unavailable", zap.String("state", string(out.State)), zap.Error(out.Err))
	}
	return feed
}

func (s *reviewFeedService) ResetPlaceID(ctx context.Context) error {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
	return s.resolver.Reset(ctx)
}

func (s *reviewFeedService) build(out places.Outcome) ReviewFeed {
	feed := ReviewFeed{State: out.State, ShareURL: s.shareURL, Reviews: []reviews.Record{}}

	switch out.State {
	case places.StateUnconfigured:
		feed.Status = reviews.StatusUnconfigured
	case places.StateRendered:
		d := out.Details
		feed.PlaceName = d.Name
		feed.PlaceURL = d.URL
		feed.Rating = d.Rating
		feed.RatingCount = d.RatingCount
		feed.Reviews = reviews.BuildRecords(d.Reviews, s.maxReviews)
		if len(feed.Reviews) == 0 {
			feed.Status = reviews.StatusEmpty
		} else {
			feed.Status = reviews.RatingStatus(d.Rating, d.RatingCount)
		}
	default:
		feed.Status = reviews.StatusUnavailable
	}

	if s.debug && out.Err != nil {
		feed.Debug = out.Err.Error()
	}
	return feed
}

func (s *reviewFeedService) fromCache() (ReviewFeed, bool) {
	if s.ttl <= 0 {
		return ReviewFeed{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil || s.clock().Sub(s.cachedAt) >= s.ttl {
		return ReviewFeed{}, false
	}
	return *s.cached, true
}

func (s *reviewFeedService) store(feed ReviewFeed) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.cached = &feed
	s.cachedAt = s.clock()
	s.mu.Unlock()
}
