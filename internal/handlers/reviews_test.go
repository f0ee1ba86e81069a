package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/lijid/lijid-dotcom/internal/places"
	"github.com/lijid/lijid-dotcom/internal/platform/config"
	"github.com/lijid/lijid-dotcom/internal/reviews"
	"github.com/lijid/lijid-dotcom/internal/services"
)

func renderedFeed() services.ReviewFeed {
	return services.ReviewFeed{
		State:       places.StateRendered,
		Status:      reviews.RatingStatus(4.9, 37),
		Rating:      4.9,
		RatingCount: 37,
		PlaceName:   "Liji Deepak Realtor",
		ShareURL:    "https://share.google/example",
		Reviews: []reviews.Record{
			{Author: "Sam P.", Text: "Sold our home fast.", Rating: 5, RelativeTime: "2 weeks ago"},
			{Author: "Google User", Text: "Helpful & patient.", Rating: 4},
		},
	}
}

func newReviewRouter(t *testing.T, feed services.ReviewFeedService, public fstest.MapFS, site SiteInfo) chi.Router {
	t.Helper()
	r := chi.NewRouter()
	NewReviewHandlers(feed, newTestRenderer(t), public, site).Routes(r)
	return r
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestReviewsFeedJSON(t *testing.T) {
	feed := &stubFeed{feed: renderedFeed()}
	router := newReviewRouter(t, feed, fstest.MapFS{}, testSite())

	rr := get(router, "/api/reviews")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["state"] != string(places.StateRendered) {
		t.Fatalf("unexpected state %v", body["state"])
	}
	items, _ := body["reviews"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 reviews, got %v", body["reviews"])
	}
	if feed.resets != 0 {
		t.Fatalf("expected no reset without query flag")
	}
}

func TestReviewsResetPlaceIDFlag(t *testing.T) {
	feed := &stubFeed{feed: renderedFeed()}
	router := newReviewRouter(t, feed, fstest.MapFS{}, testSite())

	get(router, "/api/reviews?resetPlaceId=1")
	get(router, "/api/reviews?resetPlaceId=true")

	if feed.resets != 1 {
		t.Fatalf("expected exactly one reset, got %d", feed.resets)
	}
}

func TestReviewsLiveFragmentRendersCards(t *testing.T) {
	router := newReviewRouter(t, &stubFeed{feed: renderedFeed()}, fstest.MapFS{}, testSite())

	rr := get(router, "/reviews/live")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	doc, err := goquery.NewDocumentFromReader(rr.Body)
	require.NoError(t, err)

	cards := doc.Find("article.card")
	require.Equal(t, 2, cards.Length())
	first := cards.First()
	require.Equal(t, "5 out of 5 stars", first.Find("p.stars").AttrOr("aria-label", ""))
	require.Equal(t, "★★★★★", strings.TrimSpace(first.Find("p.stars").Text()))
	require.Equal(t, "“Sold our home fast.”", strings.TrimSpace(first.Find("blockquote").Text()))
	require.Equal(t, "- Sam P.", strings.TrimSpace(first.Find("p.author").Text()))
	require.Equal(t, "2 weeks ago", strings.TrimSpace(first.Find("p.meta").Text()))
	require.Equal(t, 0, cards.Eq(1).Find("p.meta").Length(), "meta line is omitted without relative time")

	require.Equal(t, "Google rating: 4.9/5 from 37 reviews.", strings.TrimSpace(doc.Find("#reviews-status").Text()))
	link := doc.Find("#open-google-reviews")
	require.Equal(t, "https://share.google/example", link.AttrOr("href", ""))
	require.Equal(t, reviews.ShareLinkLabel, strings.TrimSpace(link.Text()))
}

func TestReviewsLiveFragmentUnconfigured(t *testing.T) {
	feed := &stubFeed{feed: services.ReviewFeed{State: places.StateUnconfigured, Status: reviews.StatusUnconfigured}}
	router := newReviewRouter(t, feed, fstest.MapFS{}, testSite())

	doc, err := goquery.NewDocumentFromReader(get(router, "/reviews/live").Body)
	require.NoError(t, err)
	require.Equal(t, 0, doc.Find("article.card").Length())
	require.Equal(t, reviews.StatusUnconfigured, strings.TrimSpace(doc.Find("#reviews-status").Text()))
	require.Equal(t, 0, doc.Find("#open-google-reviews").Length())
}

func TestReviewsWidgetFragment(t *testing.T) {
	site := testSite()
	site.ReviewsMode = config.ReviewsModeWidget
	public := fstest.MapFS{reviews.EmbedFile: {Data: []byte(`<div class="elfsight-app-1"><script src="https://static.example/platform.js" async></script></div>`)}}
	router := newReviewRouter(t, &stubFeed{}, public, site)

	doc, err := goquery.NewDocumentFromReader(get(router, "/reviews/widget").Body)
	require.NoError(t, err)
	mount := doc.Find("#reviews-widget-mount")
	require.Equal(t, 1, mount.Find("div.elfsight-app-1").Length())
	require.Equal(t, 0, mount.Find("script").Length(), "scripts are moved out of the widget markup")
	require.Equal(t, "", strings.TrimSpace(doc.Find("#reviews-widget-status").Text()))
}

func TestReviewsWidgetFallbackWhenEmbedMissing(t *testing.T) {
	site := testSite()
	site.ReviewsMode = config.ReviewsModeWidget
	router := newReviewRouter(t, &stubFeed{}, fstest.MapFS{}, site)

	doc, err := goquery.NewDocumentFromReader(get(router, "/reviews/widget").Body)
	require.NoError(t, err)
	require.Equal(t, reviews.WidgetFallback(site.ShareURL), strings.TrimSpace(doc.Find("#reviews-widget-status").Text()))
	require.Equal(t, site.ShareURL, doc.Find("#open-google-reviews").AttrOr("href", ""))
}

func TestReviewsEmbedFileServedUncached(t *testing.T) {
	public := fstest.MapFS{reviews.EmbedFile: {Data: []byte("<div>widget</div>")}}
	router := newReviewRouter(t, &stubFeed{}, public, testSite())

	rr := get(router, "/"+reviews.EmbedFile)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.Equal(t, "<div>widget</div>", rr.Body.String())

	missing := newReviewRouter(t, &stubFeed{}, fstest.MapFS{}, testSite())
	require.Equal(t, http.StatusNotFound, get(missing, "/"+reviews.EmbedFile).Code)
}
