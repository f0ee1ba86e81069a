package places

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	pfirestore "github.com/lijid/lijid-dotcom/internal/platform/firestore"
)

// State is a step of place resolution.
type State string

// Resolution states. Unconfigured, Unresolved and Rendered are terminal.
const (
	StateUnconfigured    State = "unconfigured"
	StateResolvingID     State = "resolving_id"
	StateFetchingDetails State = "fetching_details"
	StateLegacyFallback  State = "legacy_fallback"
	StateUnresolved      State = "unresolved"
	StateRendered        State = "rendered"
)

// IDSource records where the identifier used for the first fetch came from.
type IDSource string

// Identifier sources.
const (
	SourceCache    IDSource = "cache"
	SourceConfig   IDSource = "config"
	SourceResolved IDSource = "resolved"
)

// ErrUnconfigured is reported when no API key is available.
var ErrUnconfigured = errors.New("places: api key not configured")

// Outcome is the result of one resolution run.
type Outcome struct {
	State    State
	Details  Details
	PlaceID  string
	Source   IDSource
	Legacy   bool
	Attempts int
	Trail    []State
	Err      error
}

func (o *Outcome) enter(s State) {
	o.State = s
	o.Trail = append(o.Trail, s)
}

// ResolverConfig holds the static inputs of resolution.
type ResolverConfig struct {
	APIKey  string
	PlaceID string
	Query   string
}

// Resolver drives the identifier fallback chain:
// cached id, configured id, text search, then the legacy adapter.
type Resolver struct {
	cfg     ResolverConfig
	primary Provider
	legacy  Provider
	cache   IDCache
	logger  *zap.Logger
	group   singleflight.Group
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithLegacyProvider sets the adapter used as the last resort.
func WithLegacyProvider(p Provider) ResolverOption {
	return func(r *Resolver) {
		r.legacy = p
	}
}

// WithIDCache overrides the identifier cache.
func WithIDCache(c IDCache) ResolverOption {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver builds a resolver over primary.
func NewResolver(cfg ResolverConfig, primary Provider, opts ...ResolverOption) *Resolver {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.PlaceID = strings.TrimSpace(cfg.PlaceID)
	cfg.Query = strings.TrimSpace(cfg.Query)
	r := &Resolver{
		cfg:     cfg,
		primary: primary,
		cache:   NewMemoryIDCache(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Configured reports whether resolution can make provider calls at all.
func (r *Resolver) Configured() bool {
	return r.cfg.APIKey != "" && r.primary != nil
}

// Reset drops the cached identifier.
func (r *Resolver) Reset(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

// Resolve runs the fallback chain. Concurrent callers share one run.
func (r *Resolver) Resolve(ctx context.Context) Outcome {
	if !r.Configured() {
		out := Outcome{Err: ErrUnconfigured}
		out.enter(StateUnconfigured)
		return out
	}
	v, _, _ := r.group.Do("resolve", func() (any, error) {
		return r.resolve(context.WithoutCancel(ctx)), nil
	})
	return v.(Outcome)
}

func (r *Resolver) resolve(ctx context.Context) Outcome {
	var out Outcome

	id, source := r.startingID(ctx)
	if id == "" {
		out.enter(StateResolvingID)
		out.Attempts++
		resolved, err := r.lookup(ctx)
		if err != nil {
			return r.fallback(ctx, out, err)
		}
		id, source = resolved, SourceResolved
	}
	out.Source = source

	out.enter(StateFetchingDetails)
	details, err := r.primary.FetchDetails(ctx, id)
	if err == nil {
		return r.rendered(ctx, out, id, details)
	}
	if !errors.Is(err, ErrStaleID) || source == SourceResolved {
		return r.fallback(ctx, out, err)
	}

	r.logger.Info("place id rejected, re-resolving", zap.String("placeId", id), zap.String("source", string(source)))
	r.clearCache(ctx)

	out.enter(StateResolvingID)
	out.Attempts++
	fresh, err := r.lookup(ctx)
	if err != nil {
		return r.fallback(ctx, out, err)
	}

	out.enter(StateFetchingDetails)
	details, err = r.primary.FetchDetails(ctx, fresh)
	if err == nil {
		return r.rendered(ctx, out, fresh, details)
	}
	r.clearCache(ctx)
	return r.fallback(ctx, out, err)
}

func (r *Resolver) startingID(ctx context.Context) (string, IDSource) {
	cached, err := r.cache.Get(ctx)
	if err != nil {
		r.logger.Warn("place id cache read failed", zap.Error(err), zap.Bool("transient", pfirestore.IsTransient(err)))
	}
	if id := strings.TrimSpace(cached); id != "" {
		return id, SourceCache
	}
	if r.cfg.PlaceID != "" {
		return r.cfg.PlaceID, SourceConfig
	}
	return "", ""
}

// lookup resolves the configured query, using autocomplete when text
// search is unavailable for the key.
func (r *Resolver) lookup(ctx context.Context) (string, error) {
	if r.cfg.Query == "" {
		return "", ErrNoResults
	}
	id, err := r.primary.SearchByText(ctx, r.cfg.Query)
	if errors.Is(err, ErrSearchUnavailable) {
		if ac, ok := r.primary.(Autocompleter); ok {
			return ac.Autocomplete(ctx, r.cfg.Query)
		}
	}
	return id, err
}

func (r *Resolver) rendered(ctx context.Context, out Outcome, id string, details Details) Outcome {
	if err := r.cache.Set(ctx, id); err != nil {
		r.logger.Warn("place id cache write failed", zap.Error(err))
	}
	out.enter(StateRendered)
	out.PlaceID = id
	out.Details = details
	out.Err = nil
	return out
}

// fallback fetches the configured identifier through the legacy adapter.
func (r *Resolver) fallback(ctx context.Context, out Outcome, cause error) Outcome {
	out.enter(StateLegacyFallback)
	out.Err = cause
	if r.cfg.PlaceID == "" || r.legacy == nil {
		out.enter(StateUnresolved)
		return out
	}

	details, err := r.legacy.FetchDetails(ctx, r.cfg.PlaceID)
	if err != nil {
		r.logger.Warn("legacy place details failed", zap.Error(err), zap.NamedError("cause", cause))
		out.enter(StateUnresolved)
		out.Err = errors.Join(cause, err)
		return out
	}
	out.enter(StateRendered)
	out.Legacy = true
	out.PlaceID = r.cfg.PlaceID
	out.Details = details
	out.Err = nil
	return out
}

func (r *Resolver) clearCache(ctx context.Context) {
	if err := r.cache.Clear(ctx); err != nil {
		r.logger.Warn("place id cache clear failed", zap.Error(err))
	}
}
