package reviews

import "fmt"

// Status lines shown above the review cards.
const (
	StatusUnconfigured = "Live Google reviews are not configured yet."
	StatusEmpty        = "No live reviews available right now."
	StatusUnavailable  = "Unable to load live Google reviews at the moment."
	ShareLinkLabel     = "Read reviews on Google"
	WidgetUnavailable  = "Unable to load reviews widget."
	widgetShareTail    = " You can still read reviews here:"
)

// RatingStatus summarises the aggregate rating of a place.
func RatingStatus(rating float64, total int) string {
	return fmt.Sprintf("Google rating: %.1f/5 from %d reviews.", rating, total)
}

// WidgetFallback is the message shown when the embed snippet cannot be used.
func WidgetFallback(shareURL string) string {
	if shareURL == "" {
		return WidgetUnavailable
	}
	return WidgetUnavailable + widgetShareTail + " " + shareURL
}
