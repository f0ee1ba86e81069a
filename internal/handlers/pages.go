package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lijid/lijid-dotcom/internal/lead"
	"github.com/lijid/lijid-dotcom/internal/platform/requestctx"
	"github.com/lijid/lijid-dotcom/internal/seo"
	"github.com/lijid/lijid-dotcom/internal/services"
)

const (
	pageHome     = "home"
	pageNotFound = "notfound"
	maxFormBytes = 32 << 10
)

var formFields = []string{lead.FieldFirstName, lead.FieldLastName, lead.FieldPhone, lead.FieldEmail}

// PageHandlers renders the server-side pages and the no-JS form fallback.
type PageHandlers struct {
	renderer     *Renderer
	leads        services.LeadService
	reviews      *ReviewHandlers
	testimonials TestimonialSource
	site         SiteInfo
}

// NewPageHandlers wires the page routes.
func NewPageHandlers(renderer *Renderer, leads services.LeadService, reviews *ReviewHandlers, testimonials TestimonialSource, site SiteInfo) *PageHandlers {
	return &PageHandlers{renderer: renderer, leads: leads, reviews: reviews, testimonials: testimonials, site: site}
}

// Routes registers the page routes.
func (h *PageHandlers) Routes(r chi.Router) {
	r.Get("/", h.home)
	r.Post("/contact", h.contact)
}

func (h *PageHandlers) home(w http.ResponseWriter, r *http.Request) {
	h.renderHome(w, r, http.StatusOK, LeadFormView{})
}

// contact accepts the urlencoded lead form and re-renders the home page
// with the outcome in the form status.
func (h *PageHandlers) contact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.renderHome(w, r, http.StatusBadRequest, LeadFormView{
			Open:      true,
			ErrorCode: "invalid_form",
			Status:    lead.Message("", h.site.ContactPhone),
		})
		return
	}

	fields := make(map[string]any, len(r.PostForm))
	for key, values := range r.PostForm {
		fields[key] = values
	}
	// The page field is filled server side; the browser does not know it without script.
	if _, ok := fields[lead.FieldPage]; !ok {
		fields[lead.FieldPage] = h.site.BaseURL
	}

	form := LeadFormView{Open: true, Values: map[string]string{}}
	for _, name := range formFields {
		form.Values[name] = strings.TrimSpace(r.PostForm.Get(name))
	}

	status := http.StatusOK
	_, err := h.leads.Submit(r.Context(), services.SubmitLeadCommand{Fields: fields, SourceKey: requestctx.ClientIP(r)})
	if err != nil {
		outcome := classifyLeadError(err, h.site.ContactPhone)
		status = outcome.status
		form.ErrorCode = string(outcome.code)
		form.Status = outcome.message
		var derr *services.DeliveryError
		if errors.As(err, &derr) {
			// Provider detail is for the JSON client only.
			form.Status = lead.Message(outcome.code, h.site.ContactPhone)
			requestctx.Logger(r.Context()).Warn("form lead delivery failed", zap.Error(err))
		}
	} else {
		form.Success = true
		form.Status = lead.SuccessMessage
		form.Values = nil
	}
	h.renderHome(w, r, status, form)
}

func (h *PageHandlers) renderHome(w http.ResponseWriter, r *http.Request, status int, form LeadFormView) {
	data := h.basePage(r)
	form.ContactPhone = h.site.ContactPhone
	form.CaptchaSiteKey = h.site.CaptchaSiteKey
	data.Lead = form

	if h.testimonials != nil {
		items, err := h.testimonials(r.Context())
		if err != nil {
			requestctx.Logger(r.Context()).Warn("testimonials unavailable", zap.Error(err))
		}
		data.Testimonials = items
	}

	if h.reviews != nil {
		data.Reviews = h.reviews.View(r)
		data.HeadScripts = data.Reviews.Embed.Scripts
	}

	agent := seo.Agent{
		Name:       h.site.Name,
		URL:        h.site.BaseURL,
		Telephone:  h.site.ContactPhone,
		AreaServed: h.site.AreaServed,
	}
	if h.site.ShareURL != "" {
		agent.SameAs = []string{h.site.ShareURL}
	}
	feed := data.Reviews.Feed
	agent.Rating, agent.RatingCount = feed.Rating, feed.RatingCount
	data.JSONLD = []template.JS{seo.JSON(seo.RealEstateAgent(agent))}

	h.renderer.Page(w, r, status, pageHome, data)
}

func (h *PageHandlers) basePage(r *http.Request) PageData {
	return PageData{
		Meta: seo.Meta{
			Title:       h.site.Name,
			Description: h.site.Description,
			Canonical:   h.site.BaseURL,
			Version:     h.site.Version,
			OG: seo.OpenGraph{
				Title:       h.site.Name,
				Description: h.site.Description,
				Type:        "website",
			},
		},
		Site:      h.site,
		RequestID: middleware.GetReqID(r.Context()),
	}
}

// NotFound renders the HTML 404 page.
func (h *PageHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	data := h.basePage(r)
	data.Meta.Title = "Page not found | " + h.site.Name
	h.renderer.Page(w, r, http.StatusNotFound, pageNotFound, data)
}
