package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSOptions describes the preflight policy for a route.
type CORSOptions struct {
	Methods []string
	Headers []string
	MaxAge  time.Duration
}

// ReflectOriginCORS echoes the request Origin back on every response,
// including error responses, so browsers can read JSON failure bodies.
// Preflight requests are passed through to next, which decides the body.
func ReflectOriginCORS(opts CORSOptions) func(http.Handler) http.Handler {
	methods := strings.Join(opts.Methods, ", ")
	headers := strings.Join(opts.Headers, ", ")
	maxAge := ""
	if opts.MaxAge > 0 {
		maxAge = strconv.Itoa(int(opts.MaxAge / time.Second))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				if methods != "" {
					h.Set("Access-Control-Allow-Methods", methods)
				}
				if headers != "" {
					h.Set("Access-Control-Allow-Headers", headers)
				}
				if maxAge != "" {
					h.Set("Access-Control-Max-Age", maxAge)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
