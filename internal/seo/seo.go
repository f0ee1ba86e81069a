// Package seo builds head metadata and the schema.org RealEstateAgent
// payload embedded on the home page.
package seo

import (
	"encoding/json"
	"html/template"
	"strings"
)

const schemaContext = "https://schema.org"

// Meta is the per-page head metadata.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	Version     string
	OG          OpenGraph
}

// OpenGraph holds the social preview fields.
type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
}

// Agent is the business listing as the site knows it.
type Agent struct {
	Name        string
	URL         string
	Telephone   string
	Image       string
	AreaServed  []string
	SameAs      []string
	Rating      float64
	RatingCount int
}

// AgentSchema is the RealEstateAgent JSON-LD document.
type AgentSchema struct {
	Context         string        `json:"@context"`
	Type            string        `json:"@type"`
	Name            string        `json:"name"`
	URL             string        `json:"url,omitempty"`
	Telephone       string        `json:"telephone,omitempty"`
	Image           string        `json:"image,omitempty"`
	AreaServed      []PlaceSchema `json:"areaServed,omitempty"`
	SameAs          []string      `json:"sameAs,omitempty"`
	AggregateRating *RatingSchema `json:"aggregateRating,omitempty"`
}

// PlaceSchema is a served city.
type PlaceSchema struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

// RatingSchema summarises the Google reviews.
type RatingSchema struct {
	Type        string  `json:"@type"`
	RatingValue float64 `json:"ratingValue"`
	ReviewCount int     `json:"reviewCount"`
	BestRating  int     `json:"bestRating"`
}

// JSON marshals v for a <script type="application/ld+json"> block, or
// returns "" when v cannot be encoded.
func JSON(v any) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return template.JS(b)
}

// RealEstateAgent converts a. Blank areas and links are dropped, and the
// rating is omitted until the listing has at least one rated review.
func RealEstateAgent(a Agent) AgentSchema {
	s := AgentSchema{
		Context:   schemaContext,
		Type:      "RealEstateAgent",
		Name:      a.Name,
		URL:       a.URL,
		Telephone: a.Telephone,
		Image:     a.Image,
		SameAs:    trimmed(a.SameAs),
	}
	for _, area := range trimmed(a.AreaServed) {
		s.AreaServed = append(s.AreaServed, PlaceSchema{Type: "Place", Name: area})
	}
	if a.Rating > 0 && a.RatingCount > 0 {
		s.AggregateRating = &RatingSchema{Type: "AggregateRating", RatingValue: a.Rating, ReviewCount: a.RatingCount, BestRating: 5}
	}
	return s
}

func trimmed(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
