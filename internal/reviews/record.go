// Package reviews turns provider review payloads into display records.
package reviews

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultAuthor is shown when a review carries no author name.
const DefaultAuthor = "Google User"

// MaxRating is the upper bound of the star scale.
const MaxRating = 5

// Record is one review as displayed on the site.
type Record struct {
	Author       string `json:"author"`
	Text         string `json:"text"`
	Rating       int    `json:"rating"`
	RelativeTime string `json:"relativeTime"`
	SortKey      int64  `json:"-"`
}

// Stars renders the record rating as filled and empty glyphs.
func (r Record) Stars() string { return Stars(r.Rating) }

// RawReview decodes both the current and the legacy provider review shapes.
// Fields carried by the current shape take precedence.
type RawReview struct {
	AuthorAttribution *struct {
		DisplayName string `json:"displayName"`
	} `json:"authorAttribution,omitempty"`
	AuthorName string `json:"author_name,omitempty"`

	Text         localizedText  `json:"text,omitempty"`
	OriginalText *localizedText `json:"originalText,omitempty"`

	Rating float64 `json:"rating"`

	RelativePublishTimeDescription string `json:"relativePublishTimeDescription,omitempty"`
	RelativeTimeDescription        string `json:"relative_time_description,omitempty"`

	Time        epoch  `json:"time,omitempty"`
	PublishTime string `json:"publishTime,omitempty"`
}

// Author returns the display name, falling back to DefaultAuthor.
func (r RawReview) Author() string {
	if r.AuthorAttribution != nil {
		if name := strings.TrimSpace(r.AuthorAttribution.DisplayName); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(r.AuthorName); name != "" {
		return name
	}
	return DefaultAuthor
}

// NewRawReview builds a RawReview from fields a typed provider client has
// already decoded. A zero published time leaves the review unordered.
func NewRawReview(author, text string, rating float64, relative string, published time.Time) RawReview {
	r := RawReview{
		AuthorName:                     author,
		Text:                           localizedText(text),
		Rating:                         rating,
		RelativePublishTimeDescription: relative,
	}
	if !published.IsZero() {
		r.PublishTime = published.UTC().Format(time.RFC3339Nano)
	}
	return r
}

// Body returns the review text.
func (r RawReview) Body() string {
	if text := strings.TrimSpace(string(r.Text)); text != "" {
		return text
	}
	if r.OriginalText != nil {
		return strings.TrimSpace(string(*r.OriginalText))
	}
	return ""
}

// RelativeTime returns the human readable age of the review.
func (r RawReview) RelativeTime() string {
	if v := strings.TrimSpace(r.RelativePublishTimeDescription); v != "" {
		return v
	}
	return strings.TrimSpace(r.RelativeTimeDescription)
}

// SortKey returns the review time in unix seconds, or 0 when unknown.
func (r RawReview) SortKey() int64 {
	if r.Time.valid {
		return r.Time.seconds
	}
	if ts := strings.TrimSpace(r.PublishTime); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return parsed.Unix()
		}
	}
	return 0
}

// Record converts the raw payload into a display record.
func (r RawReview) Record() Record {
	return Record{
		Author:       r.Author(),
		Text:         r.Body(),
		Rating:       clampRating(r.Rating),
		RelativeTime: r.RelativeTime(),
		SortKey:      r.SortKey(),
	}
}

// BuildRecords converts, orders newest first, and keeps at most maxReviews.
// Records with equal sort keys keep their provider order.
func BuildRecords(raw []RawReview, maxReviews int) []Record {
	records := make([]Record, 0, len(raw))
	for _, review := range raw {
		records = append(records, review.Record())
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SortKey > records[j].SortKey
	})
	if maxReviews >= 0 && len(records) > maxReviews {
		records = records[:maxReviews]
	}
	return records
}

// Stars renders rating filled glyphs followed by the remaining empty ones.
func Stars(rating int) string {
	filled := clampInt(rating)
	return strings.Repeat("★", filled) + strings.Repeat("☆", MaxRating-filled)
}

func clampRating(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return clampInt(int(math.Round(v)))
}

func clampInt(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxRating {
		return MaxRating
	}
	return v
}

// localizedText accepts either a plain string or {"text": "..."}.
type localizedText string

func (t *localizedText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = localizedText(s)
		return nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*t = localizedText(obj.Text)
	return nil
}

// epoch accepts a unix seconds value encoded as a number or a numeric string.
type epoch struct {
	seconds int64
	valid   bool
}

func (e *epoch) UnmarshalJSON(data []byte) error {
	*e = epoch{}
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		// An unusable time only loses ordering; it never fails the payload.
		return nil
	}
	e.seconds = int64(v)
	e.valid = true
	return nil
}

func (e epoch) MarshalJSON() ([]byte, error) {
	if !e.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(e.seconds, 10)), nil
}
