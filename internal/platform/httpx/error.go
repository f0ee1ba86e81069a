// Package httpx holds the JSON response helpers and CORS policy shared by
// the site's /api routes.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	maxCodeRunes    = 80
	maxMessageRunes = 512
)

// Error is an API failure: a stable machine code, an optional human
// message and the HTTP status to send.
type Error struct {
	Code    string
	Message string
	Status  int
}

// NewError builds an Error. Newlines are flattened and a zero status
// becomes 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: oneLine(code, maxCodeRunes), Message: oneLine(message, maxMessageRunes), Status: status}
}

func (e Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// WithMessage replaces the message, keeping at most limit runes.
func (e Error) WithMessage(message string, limit int) Error {
	e.Message = Truncate(strings.TrimSpace(message), limit)
	return e
}

// failure is the wire form: {"ok":false,"error":"...","message":"...","request_id":"..."}.
type failure struct {
	OK        bool   `json:"ok"`
	Code      string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError sends err, tagging it with the chi request id when present.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteJSON(w, status, failure{
		Code:      err.Code,
		Message:   err.Message,
		RequestID: oneLine(middleware.GetReqID(ctx), maxCodeRunes),
	})
}

// WriteOK sends {"ok":true}.
func WriteOK(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{true})
}

// WriteJSON sends payload uncached.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Truncate keeps the first limit runes of s. limit <= 0 keeps everything.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

func oneLine(s string, limit int) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	return Truncate(strings.TrimSpace(s), limit)
}
