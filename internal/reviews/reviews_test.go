package reviews

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func decodeReviews(t *testing.T, payload string) []RawReview {
	t.Helper()
	var out []RawReview
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		t.Fatalf("decode reviews: %v", err)
	}
	return out
}

func TestRawReviewCompatibility(t *testing.T) {
	raw := decodeReviews(t, `[
		{"authorAttribution":{"displayName":"Priya"},"author_name":"old","text":{"text":"Great agent","languageCode":"en"},
		 "rating":5,"relativePublishTimeDescription":"a week ago","relative_time_description":"old","publishTime":"2024-05-01T10:00:00Z"},
		{"author_name":"Sam","text":"Legacy text","rating":4,"relative_time_description":"2 months ago","time":1700000000},
		{"originalText":{"text":"Original only"},"rating":3,"time":"1600000000"},
		{"text":"","rating":9.4,"time":"NaN"}
	]`)
	if len(raw) != 4 {
		t.Fatalf("expected 4 reviews, got %d", len(raw))
	}

	first := raw[0].Record()
	if first.Author != "Priya" || first.Text != "Great agent" || first.RelativeTime != "a week ago" {
		t.Fatalf("unexpected current-shape record %+v", first)
	}
	if first.SortKey != 1714557600 {
		t.Fatalf("expected publishTime sort key, got %d", first.SortKey)
	}

	second := raw[1].Record()
	if second.Author != "Sam" || second.Text != "Legacy text" || second.RelativeTime != "2 months ago" || second.SortKey != 1700000000 {
		t.Fatalf("unexpected legacy-shape record %+v", second)
	}

	third := raw[2].Record()
	if third.Author != DefaultAuthor || third.Text != "Original only" || third.SortKey != 1600000000 {
		t.Fatalf("unexpected fallback record %+v", third)
	}

	fourth := raw[3].Record()
	if fourth.Rating != MaxRating || fourth.SortKey != 0 {
		t.Fatalf("expected clamped rating and zero sort key, got %+v", fourth)
	}
}

func TestNewRawReview(t *testing.T) {
	published := time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("CDT", -5*3600))
	rec := NewRawReview("  ", " Great agent ", 4.6, "2 months ago", published).Record()
	if rec.Author != DefaultAuthor || rec.Text != "Great agent" || rec.Rating != 5 || rec.RelativeTime != "2 months ago" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.SortKey != published.Unix() {
		t.Fatalf("expected sort key %d, got %d", published.Unix(), rec.SortKey)
	}
	if got := NewRawReview("Ann", "", 3, "", time.Time{}).SortKey(); got != 0 {
		t.Fatalf("zero time should leave the review unordered, got %d", got)
	}
}

func TestRawReviewRejectsNonNumericRatingShape(t *testing.T) {
	var r RawReview
	if err := json.Unmarshal([]byte(`{"rating":"x"}`), &r); err == nil {
		t.Fatalf("expected error for string rating")
	}
}

func TestBuildRecordsOrdersNewestFirstAndTruncates(t *testing.T) {
	raw := []RawReview{
		{AuthorName: "a", Time: epoch{seconds: 10, valid: true}},
		{AuthorName: "b", Time: epoch{seconds: 30, valid: true}},
		{AuthorName: "c"},
		{AuthorName: "d", Time: epoch{seconds: 20, valid: true}},
		{AuthorName: "e", Time: epoch{seconds: 30, valid: true}},
	}

	got := BuildRecords(raw, 4)
	var authors []string
	for _, rec := range got {
		authors = append(authors, rec.Author)
	}
	if strings.Join(authors, ",") != "b,e,d,a" {
		t.Fatalf("unexpected order %v", authors)
	}

	all := BuildRecords(raw, 10)
	if len(all) != 5 || all[4].Author != "c" {
		t.Fatalf("expected missing time to sort last, got %+v", all)
	}

	if got := BuildRecords(nil, 4); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestStars(t *testing.T) {
	cases := map[int]string{
		-2: "☆☆☆☆☆",
		0:  "☆☆☆☆☆",
		3:  "★★★☆☆",
		5:  "★★★★★",
		7:  "★★★★★",
	}
	for rating, want := range cases {
		if got := Stars(rating); got != want {
			t.Errorf("Stars(%d) = %q, want %q", rating, got, want)
		}
	}
}

func TestStatusLines(t *testing.T) {
	if got := RatingStatus(4.94, 37); got != "Google rating: 4.9/5 from 37 reviews." {
		t.Fatalf("unexpected rating status %q", got)
	}
	if got := WidgetFallback(""); got != "Unable to load reviews widget." {
		t.Fatalf("unexpected fallback %q", got)
	}
	if got := WidgetFallback("https://share.example/x"); got != "Unable to load reviews widget. You can still read reviews here: https://share.example/x" {
		t.Fatalf("unexpected fallback with link %q", got)
	}
}

func TestSplitEmbed(t *testing.T) {
	raw := []byte(`
<script src="https://widget.example/loader.js" async data-id="42"></script>
<div class="widget"><script>window.cfg = {a: 1 < 2};</script><span>Reviews</span></div>
`)
	embed, err := SplitEmbed(raw)
	if err != nil {
		t.Fatalf("SplitEmbed: %v", err)
	}
	if len(embed.Scripts) != 2 {
		t.Fatalf("expected 2 scripts, got %d: %v", len(embed.Scripts), embed.Scripts)
	}
	first := string(embed.Scripts[0])
	if !strings.Contains(first, `src="https://widget.example/loader.js"`) || !strings.Contains(first, `data-id="42"`) || !strings.Contains(first, "async") {
		t.Fatalf("script attributes not preserved: %s", first)
	}
	if got := string(embed.Scripts[1]); got != "<script>window.cfg = {a: 1 < 2};</script>" {
		t.Fatalf("inline script not preserved: %s", got)
	}
	if got := string(embed.Markup); got != `<div class="widget"><span>Reviews</span></div>` {
		t.Fatalf("unexpected markup %q", got)
	}
}

func TestSplitEmbedEmpty(t *testing.T) {
	for _, raw := range []string{"", "   \n\t", "\n  \n", "<!-- paste snippet -->\n"} {
		if _, err := SplitEmbed([]byte(raw)); !errors.Is(err, ErrEmptyEmbed) {
			t.Errorf("SplitEmbed(%q) expected ErrEmptyEmbed, got %v", raw, err)
		}
	}
}

func TestLoadEmbedMissingFile(t *testing.T) {
	if _, err := LoadEmbed(fstest.MapFS{}, EmbedFile); err == nil {
		t.Fatalf("expected error for missing embed file")
	}
	fsys := fstest.MapFS{EmbedFile: {Data: []byte("<div>ok</div>")}}
	embed, err := LoadEmbed(fsys, EmbedFile)
	if err != nil || string(embed.Markup) != "<div>ok</div>" {
		t.Fatalf("unexpected embed %+v err=%v", embed, err)
	}
}
