package idempotency

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lijid/lijid-dotcom/internal/platform/httpx"
	"github.com/lijid/lijid-dotcom/internal/platform/requestctx"
)

const (
	// HeaderName is the request header carrying the client-chosen key.
	HeaderName = "Idempotency-Key"
	// ReplayHeader marks responses served from the store.
	ReplayHeader = "X-Idempotent-Replay"

	maxKeyLength = 255
	maxBodyBytes = 1 << 20
)

type middlewareConfig struct {
	ttl   time.Duration
	clock func() time.Time
}

// Option customises Middleware.
type Option func(*middlewareConfig)

// WithTTL sets how long completed responses are replayable.
func WithTTL(ttl time.Duration) Option {
	return func(cfg *middlewareConfig) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(cfg *middlewareConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// Middleware guards POST requests that carry an Idempotency-Key. Requests
// without the header pass through untouched. Only 2xx responses are stored;
// any other outcome releases the key so the client may retry.
func Middleware(store Store, opts ...Option) func(http.Handler) http.Handler {
	cfg := middlewareConfig{ttl: DefaultTTL, clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(HeaderName))
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(key) > maxKeyLength {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_idempotency_key", "", http.StatusBadRequest))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_json", "", http.StatusBadRequest))
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			scoped := requestctx.ClientIP(r) + "|" + key
			fingerprint := sha256Hex([]byte(r.Method + "|" + r.URL.Path + "|" + sha256Hex(body)))

			state, record, err := store.Reserve(ctx, scoped, fingerprint, cfg.clock(), cfg.ttl)
			switch {
			case errors.Is(err, ErrFingerprintMismatch):
				httpx.WriteError(ctx, w, httpx.NewError("idempotency_key_reused", "", http.StatusUnprocessableEntity))
				return
			case err != nil:
				requestctx.Logger(ctx).Error("idempotency reserve failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			switch state {
			case StateCompleted:
				replay(w, record.Response)
				return
			case StatePending:
				httpx.WriteError(ctx, w, httpx.NewError("duplicate_in_progress", "", http.StatusConflict))
				return
			}

			rec := &bufferedWriter{header: make(http.Header)}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			if rec.status >= 200 && rec.status < 300 {
				resp := Response{Status: rec.status, Header: rec.header, Body: rec.body.Bytes()}
				if err := store.Complete(ctx, scoped, fingerprint, resp, cfg.clock(), cfg.ttl); err != nil {
					requestctx.Logger(ctx).Error("idempotency store failed", zap.Error(err))
				}
			} else if err := store.Release(ctx, scoped); err != nil {
				requestctx.Logger(ctx).Error("idempotency release failed", zap.Error(err))
			}
			rec.flushTo(w)
		})
	}
}
