// Package content loads editorial content shipped alongside the binary.
package content

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "January 2006", "2006-01"}

// Testimonial is one client quote shown on the home page.
type Testimonial struct {
	Author   string
	Location string
	Date     time.Time
	DateText string
	Rating   int
	Body     template.HTML
}

// DateAttr is the machine-readable date, or "" when the date is unknown.
func (t Testimonial) DateAttr() string {
	if t.Date.IsZero() {
		return ""
	}
	return t.Date.Format("2006-01-02")
}

type testimonialsFile struct {
	Testimonials []testimonialEntry `yaml:"testimonials"`
}

type testimonialEntry struct {
	Author   string `yaml:"author"`
	Location string `yaml:"location"`
	Date     string `yaml:"date"`
	Rating   int    `yaml:"rating"`
	Body     string `yaml:"body"`
}

// Renderer converts Markdown bodies to sanitised HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer returns a Renderer allowing the user-generated-content subset of HTML.
func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	return &Renderer{md: goldmark.New(), policy: policy}
}

// Render converts src to safe HTML.
func (r *Renderer) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("content: render markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// LoadTestimonials reads and parses name from fsys.
func LoadTestimonials(fsys fs.FS, name string, r *Renderer) ([]Testimonial, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("content: read testimonials: %w", err)
	}
	return ParseTestimonials(data, r)
}

// ParseTestimonials decodes the YAML document and orders entries newest
// first. Entries without a parseable date sort last in file order.
func ParseTestimonials(data []byte, r *Renderer) ([]Testimonial, error) {
	if r == nil {
		r = NewRenderer()
	}
	var doc testimonialsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("content: decode testimonials: %w", err)
	}

	out := make([]Testimonial, 0, len(doc.Testimonials))
	for i, entry := range doc.Testimonials {
		author := strings.TrimSpace(entry.Author)
		if author == "" {
			return nil, fmt.Errorf("content: testimonial %d: author is required", i)
		}
		body, err := r.Render(entry.Body)
		if err != nil {
			return nil, fmt.Errorf("content: testimonial %d: %w", i, err)
		}
		out = append(out, Testimonial{
			Author:   author,
			Location: strings.TrimSpace(entry.Location),
			Date:     parseDate(entry.Date),
			DateText: strings.TrimSpace(entry.Date),
			Rating:   entry.Rating,
			Body:     body,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
