package handlers

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lijid/lijid-dotcom/internal/platform/config"
	"github.com/lijid/lijid-dotcom/internal/platform/httpx"
	"github.com/lijid/lijid-dotcom/internal/platform/requestctx"
	"github.com/lijid/lijid-dotcom/internal/reviews"
	"github.com/lijid/lijid-dotcom/internal/services"
)

// Fragment template names under templates/partials.
const (
	fragmentReviewsLive   = "reviews-live"
	fragmentReviewsWidget = "reviews-widget"
)

// ReviewHandlers serves the review feed as JSON and as HTML fragments.
type ReviewHandlers struct {
	feed     services.ReviewFeedService
	renderer *Renderer
	public   fs.FS
	site     SiteInfo
}

// NewReviewHandlers wires the reviews endpoints. public holds reviews-embed.html.
func NewReviewHandlers(feed services.ReviewFeedService, renderer *Renderer, public fs.FS, site SiteInfo) *ReviewHandlers {
	return &ReviewHandlers{feed: feed, renderer: renderer, public: public, site: site}
}

// Routes registers the reviews endpoints.
func (h *ReviewHandlers) Routes(r chi.Router) {
	r.Get("/api/reviews", h.feedJSON)
	r.Get("/reviews/live", h.liveFragment)
	r.Get("/reviews/widget", h.widgetFragment)
	r.Get("/"+reviews.EmbedFile, h.embedFile)
}

// View builds the reviews section for the configured mode. It honours
// resetPlaceId=1 before resolving.
func (h *ReviewHandlers) View(r *http.Request) ReviewsView {
	if h.site.ReviewsMode == config.ReviewsModeWidget {
		return h.widgetView(r)
	}
	return ReviewsView{Mode: config.ReviewsModeLive, ShareLabel: reviews.ShareLinkLabel, Feed: h.liveFeed(r)}
}

func (h *ReviewHandlers) widgetView(r *http.Request) ReviewsView {
	view := ReviewsView{Mode: config.ReviewsModeWidget, ShareLabel: reviews.ShareLinkLabel}
	view.Feed.ShareURL = h.site.ShareURL
	embed, err := reviews.LoadEmbed(h.public, reviews.EmbedFile)
	if err != nil {
		requestctx.Logger(r.Context()).Info("reviews widget unavailable", zap.Error(err))
		view.WidgetFallback = reviews.WidgetFallback(h.site.ShareURL)
	}
	view.Embed = embed
	return view
}

func (h *ReviewHandlers) liveFeed(r *http.Request) services.ReviewFeed {
	ctx := r.Context()
	if wantsPlaceReset(r) {
		if err := h.feed.ResetPlaceID(ctx); err != nil {
			requestctx.Logger(ctx).Warn("place id reset failed", zap.Error(err))
		}
	}
	return h.feed.Feed(ctx)
}

func (h *ReviewHandlers) feedJSON(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.liveFeed(r))
}

func (h *ReviewHandlers) liveFragment(w http.ResponseWriter, r *http.Request) {
	view := ReviewsView{Mode: config.ReviewsModeLive, ShareLabel: reviews.ShareLinkLabel, Feed: h.liveFeed(r)}
	w.Header().Set("Cache-Control", "no-store")
	h.renderer.Fragment(w, r, http.StatusOK, fragmentReviewsLive, view)
}

func (h *ReviewHandlers) widgetFragment(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	h.renderer.Fragment(w, r, http.StatusOK, fragmentReviewsWidget, h.widgetView(r))
}

func (h *ReviewHandlers) embedFile(w http.ResponseWriter, r *http.Request) {
	raw, err := fs.ReadFile(h.public, reviews.EmbedFile)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(raw)
}
