package observability

import (
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Caps for request values copied into log entries and span attributes.
const (
	maxPathRunes     = 180
	maxMethodRunes   = 10
	maxAgentRunes    = 160
	maxAddrRunes     = 64
	maxReferrerRunes = 200
)

// clip drops control runes and keeps at most n runes.
func clip(value string, n int) string {
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if utf8.RuneCountInString(value) <= n {
		return value
	}
	return string([]rune(value)[:n])
}

func cleanPath(path string) string {
	if path == "" {
		return "/"
	}
	return clip(path, maxPathRunes)
}

func cleanAgent(ua string) string { return clip(ua, maxAgentRunes) }

// visitorFields describes who made the request. The referrer is only kept
// for page views, where it tells which listing or ad brought the visitor.
func visitorFields(r *http.Request, clientIP string) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if clientIP != "" {
		fields = append(fields, zap.String("remote_ip", clip(clientIP, maxAddrRunes)))
	}
	if ua := r.UserAgent(); ua != "" {
		fields = append(fields, zap.String("user_agent", cleanAgent(ua)))
	}
	if ref := r.Referer(); ref != "" && r.Method == http.MethodGet && !quietPath(r.URL.Path) {
		fields = append(fields, zap.String("referrer", clip(ref, maxReferrerRunes)))
	}
	return fields
}

// quietPath reports paths whose successful requests are logged at debug.
func quietPath(path string) bool {
	return strings.HasPrefix(path, "/assets/") || path == "/healthz" || path == "/readyz" || path == "/favicon.ico"
}
