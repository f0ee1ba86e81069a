// Package handlers exposes the site over HTTP: pages, the lead endpoint and
// the reviews fragments.
package handlers

import (
	"context"
	"html/template"
	"net/http"

	"github.com/lijid/lijid-dotcom/internal/content"
	"github.com/lijid/lijid-dotcom/internal/platform/config"
	"github.com/lijid/lijid-dotcom/internal/reviews"
	"github.com/lijid/lijid-dotcom/internal/seo"
	"github.com/lijid/lijid-dotcom/internal/services"
)

// resetPlaceParam forces a fresh place resolution when set to "1".
const resetPlaceParam = "resetPlaceId"

// SiteInfo is the presentation data shared by every page.
type SiteInfo struct {
	Name           string
	BaseURL        string
	Description    string
	ContactPhone   string
	Version        string
	ShareURL       string
	CaptchaSiteKey string
	AreaServed     []string
	ReviewsMode    string
	Debug          bool
}

// TestimonialSource returns the testimonials to display, newest first.
type TestimonialSource func(ctx context.Context) ([]content.Testimonial, error)

// LeadFormView is the state of the lead form on a rendered page.
type LeadFormView struct {
	Open      bool
	Status    string
	Success   bool
	ErrorCode string
	Values    map[string]string

	// ContactPhone and CaptchaSiteKey are copied from SiteInfo when the page renders.
	ContactPhone   string
	CaptchaSiteKey string
}

// Value returns the submitted value for field so the form can be refilled.
func (v LeadFormView) Value(field string) string {
	return v.Values[field]
}

// ReviewsView is the reviews section in either rendering mode.
type ReviewsView struct {
	Mode           string
	Feed           services.ReviewFeed
	ShareLabel     string
	Embed          reviews.Embed
	WidgetFallback string
}

// Live reports whether the section renders review cards.
func (v ReviewsView) Live() bool { return v.Mode != config.ReviewsModeWidget }

// PageData is the view model passed to the base layout.
type PageData struct {
	Meta         seo.Meta
	Site         SiteInfo
	Lead         LeadFormView
	Testimonials []content.Testimonial
	Reviews      ReviewsView
	JSONLD       []template.JS
	HeadScripts  []template.HTML
	RequestID    string
}

func wantsPlaceReset(r *http.Request) bool {
	return r.URL.Query().Get(resetPlaceParam) == "1"
}
