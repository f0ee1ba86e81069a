package content

import (
	"strings"
	"testing"
	"testing/fstest"
)

const sampleYAML = `
testimonials:
  - author: Old Client
    date: 2021-06-01
    body: Helped us buy our **first** home.
  - author: Undated Client
    date: someday
    body: Great experience.
  - author: Recent Client
    location: Lakeville, MN
    date: 2024-03-15
    rating: 5
    body: |
      Sold in a week. <script>alert(1)</script> [Link](https://example.com)
`

func TestParseTestimonialsOrdersNewestFirst(t *testing.T) {
	got, err := ParseTestimonials([]byte(sampleYAML), nil)
	if err != nil {
		t.Fatalf("ParseTestimonials: %v", err)
	}
	var authors []string
	for _, item := range got {
		authors = append(authors, item.Author)
	}
	if strings.Join(authors, ",") != "Recent Client,Old Client,Undated Client" {
		t.Fatalf("unexpected order %v", authors)
	}
	if got[0].DateAttr() != "2024-03-15" || got[2].DateAttr() != "" {
		t.Fatalf("unexpected date attrs %q %q", got[0].DateAttr(), got[2].DateAttr())
	}
	if got[2].DateText != "someday" {
		t.Fatalf("expected raw date text preserved, got %q", got[2].DateText)
	}
}

func TestParseTestimonialsRendersSafeMarkdown(t *testing.T) {
	got, err := ParseTestimonials([]byte(sampleYAML), NewRenderer())
	if err != nil {
		t.Fatalf("ParseTestimonials: %v", err)
	}
	recent := string(got[0].Body)
	if strings.Contains(recent, "<script") {
		t.Fatalf("script survived sanitising: %s", recent)
	}
	if !strings.Contains(recent, `href="https://example.com"`) || !strings.Contains(recent, `rel="nofollow"`) {
		t.Fatalf("expected nofollow link, got %s", recent)
	}
	if old := string(got[1].Body); !strings.Contains(old, "<strong>first</strong>") {
		t.Fatalf("expected markdown emphasis, got %s", old)
	}
}

func TestParseTestimonialsRequiresAuthor(t *testing.T) {
	if _, err := ParseTestimonials([]byte("testimonials:\n  - body: anonymous\n"), nil); err == nil {
		t.Fatalf("expected error for missing author")
	}
}

func TestLoadTestimonials(t *testing.T) {
	fsys := fstest.MapFS{"content/testimonials.yaml": {Data: []byte(sampleYAML)}}
	got, err := LoadTestimonials(fsys, "content/testimonials.yaml", nil)
	if err != nil || len(got) != 3 {
		t.Fatalf("expected 3 testimonials, got %d err=%v", len(got), err)
	}
	if _, err := LoadTestimonials(fstest.MapFS{}, "missing.yaml", nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
