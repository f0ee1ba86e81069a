// Package idempotency replays stored responses for retried requests that
// carry an Idempotency-Key header, so a double-submitted lead is emailed once.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"
)

// DefaultTTL is how long completed responses stay replayable.
const DefaultTTL = 24 * time.Hour

// State is the outcome of reserving a key.
type State int

const (
	// StateNew means the caller owns the key and should process the request.
	StateNew State = iota
	// StateCompleted means a stored response exists and should be replayed.
	StateCompleted
	// StatePending means another request holds the key right now.
	StatePending
)

// Response is the HTTP response kept for replay.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Record is what a Store keeps per key.
type Record struct {
	Fingerprint string
	Completed   bool
	Response    Response
	ExpiresAt   time.Time
}

// Store persists reservations and completed responses.
type Store interface {
	Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (State, Record, error)
	Complete(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// ErrFingerprintMismatch is returned when a key is reused for a different request body.
var ErrFingerprintMismatch = errors.New("idempotency: key reused for a different request")

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// replayableHeaders drops hop-by-hop and length headers before storage.
func replayableHeaders(header http.Header) http.Header {
	out := make(http.Header, len(header))
	for name, values := range header {
		switch http.CanonicalHeaderKey(name) {
		case "Content-Length", "Date", "Connection", "Keep-Alive", "Transfer-Encoding", "Trailer", "Upgrade":
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}
