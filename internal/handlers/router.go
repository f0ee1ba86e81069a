package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lijid/lijid-dotcom/internal/platform/httpx"
)

// RouteRegistrar adds one group of routes to the router.
type RouteRegistrar func(r chi.Router)

// Option customises NewRouter.
type Option func(*routerConfig)

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	notFound    http.HandlerFunc
	// groups are registered in slot order so assets match before pages.
	groups [groupCount]RouteRegistrar
}

const (
	groupAssets = iota
	groupPages
	groupLead
	groupReviews
	groupCount
)

const (
	apiPrefix      = "/api/"
	requestTimeout = 30 * time.Second
	gzipLevel      = 5
	codeNotFound   = "not_found"
	codeBadMethod  = "method_not_allowed"
	healthzPath    = "/healthz"
	readinessPath  = "/readyz"
)

// NewRouter builds the site router. Request ids, proxy address rewriting,
// path cleaning, HEAD support, compression and a request timeout always run
// ahead of any middleware passed with WithMiddlewares.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.CleanPath,
			middleware.GetHead,
			middleware.Compress(gzipLevel),
			middleware.Timeout(requestTimeout),
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.NotFound(cfg.handleNotFound)
	r.MethodNotAllowed(handleBadMethod)

	r.Get(healthzPath, cfg.health.Healthz)
	r.Get(readinessPath, cfg.health.Readyz)
	for _, register := range cfg.groups {
		if register != nil {
			register(r)
		}
	}
	return r
}

func (cfg *routerConfig) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if !isAPIPath(r.URL.Path) && cfg.notFound != nil {
		cfg.notFound(w, r)
		return
	}
	httpx.WriteError(r.Context(), w, httpx.NewError(codeNotFound, fmt.Sprintf("no route for %s", r.URL.Path), http.StatusNotFound))
}

func handleBadMethod(w http.ResponseWriter, r *http.Request) {
	if !isAPIPath(r.URL.Path) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	httpx.WriteError(r.Context(), w, httpx.NewError(codeBadMethod, fmt.Sprintf("%s is not supported on %s", r.Method, r.URL.Path), http.StatusMethodNotAllowed))
}

func isAPIPath(p string) bool { return strings.HasPrefix(p, apiPrefix) }

// WithMiddlewares appends global middleware after the defaults.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) { cfg.middlewares = append(cfg.middlewares, mw...) }
}

// WithHealthHandlers replaces the /healthz and /readyz handlers.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) { cfg.health = h }
}

// WithNotFoundPage renders HTML 404s outside /api/.
func WithNotFoundPage(h http.HandlerFunc) Option {
	return func(cfg *routerConfig) { cfg.notFound = h }
}

func withGroup(slot int, reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.groups[slot] = reg }
}

// WithAssetRoutes mounts the static file routes.
func WithAssetRoutes(reg RouteRegistrar) Option { return withGroup(groupAssets, reg) }

// WithPageRoutes mounts the HTML pages.
func WithPageRoutes(reg RouteRegistrar) Option { return withGroup(groupPages, reg) }

// WithLeadRoutes mounts POST /api/lead.
func WithLeadRoutes(reg RouteRegistrar) Option { return withGroup(groupLead, reg) }

// WithReviewRoutes mounts the review feed and fragments.
func WithReviewRoutes(reg RouteRegistrar) Option { return withGroup(groupReviews, reg) }
