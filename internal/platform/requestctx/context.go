// Package requestctx holds what the middleware chain learns about a visitor
// request so handlers and services can log and rate limit consistently.
package requestctx

import (
	"context"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type scopeKey struct{}

// scope is copied on every update, so values stored on a parent context
// never change underneath a child.
type scope struct {
	logger   *zap.Logger
	trace    TraceInfo
	hasTrace bool
	clientIP string
}

var nop = zap.NewNop()

// TraceInfo is the Cloud Trace view of the current span.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

func current(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func update(ctx context.Context, fn func(*scope)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	s := current(ctx)
	fn(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithLogger attaches logger. A nil logger is stored as a no-op logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = nop
	}
	return update(ctx, func(s *scope) { s.logger = logger })
}

// Logger returns the request logger, or a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if l := current(ctx).logger; l != nil {
		return l
	}
	return nop
}

// HasLogger reports whether WithLogger ran on ctx.
func HasLogger(ctx context.Context) bool {
	return current(ctx).logger != nil
}

func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	return update(ctx, func(s *scope) {
		s.trace = info
		s.hasTrace = true
	})
}

func Trace(ctx context.Context) (TraceInfo, bool) {
	s := current(ctx)
	return s.trace, s.hasTrace
}

// WithClientIP records the visitor address used for rate limiting and
// idempotency scoping.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return update(ctx, func(s *scope) { s.clientIP = strings.TrimSpace(ip) })
}

// ClientIP returns the recorded visitor address, or the host part of
// RemoteAddr when no middleware recorded one.
func ClientIP(r *http.Request) string {
	if ip := current(r.Context()).clientIP; ip != "" {
		return ip
	}
	return RemoteHost(r.RemoteAddr)
}

// RemoteHost strips the port from a host:port address.
func RemoteHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
