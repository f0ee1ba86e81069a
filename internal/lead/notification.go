package lead

import "strings"

// Notification is the email sent to the agent for an accepted lead.
type Notification struct {
	Subject string
	Text    string
	HTML    string
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML escapes the five HTML-significant characters.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// EscapeAttr percent-encodes double quotes so a value cannot close an attribute.
func EscapeAttr(s string) string {
	return strings.ReplaceAll(s, `"`, "%22")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ComposeNotification renders the plaintext and HTML bodies for s.
func ComposeNotification(s Submission) Notification {
	name := s.Name()

	var text strings.Builder
	text.WriteString("Name: " + orDash(name) + "\n")
	text.WriteString("Phone: " + orDash(s.Phone) + "\n")
	text.WriteString("Email: " + orDash(s.Email) + "\n")
	text.WriteString("Page: " + orDash(s.Page) + "\n")
	text.WriteString("Time: " + orDash(s.Timestamp) + "\n")

	page := "-"
	if s.Page != "" {
		page = `<a href="` + EscapeHTML(EscapeAttr(s.Page)) + `">` + EscapeHTML(s.Page) + `</a>`
	}

	var html strings.Builder
	html.WriteString("<p><strong>Name:</strong> " + EscapeHTML(orDash(name)) + "</p>")
	html.WriteString("<p><strong>Phone:</strong> " + EscapeHTML(orDash(s.Phone)) + "</p>")
	html.WriteString("<p><strong>Email:</strong> " + EscapeHTML(orDash(s.Email)) + "</p>")
	html.WriteString("<p><strong>Page:</strong> " + page + "</p>")
	html.WriteString("<p><strong>Time:</strong> " + EscapeHTML(orDash(s.Timestamp)) + "</p>")

	return Notification{
		Subject: "New website lead: " + name,
		Text:    text.String(),
		HTML:    html.String(),
	}
}
