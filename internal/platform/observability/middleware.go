package observability

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lijid/lijid-dotcom/internal/platform/httpx"
	"github.com/lijid/lijid-dotcom/internal/platform/requestctx"
)

// Chain returns the request middleware in mounting order: logger
// injection, tracing, panic recovery and the access log.
func Chain(logger *zap.Logger, projectID string) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		InjectLoggerMiddleware(logger),
		TraceMiddleware(projectID),
		RecoveryMiddleware(logger),
		RequestLoggerMiddleware(projectID),
	}
}

// InjectLoggerMiddleware puts logger on the request context.
func InjectLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestctx.WithLogger(r.Context(), logger)))
		})
	}
}

// RequestLoggerMiddleware records the visitor address, scopes the request
// logger with request and trace identifiers, and writes one access log line
// per request. Asset and probe traffic is logged at debug unless it fails.
func RequestLoggerMiddleware(projectID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ctx := r.Context()
			clientIP := requestctx.ClientIP(r)

			info, _ := requestctx.Trace(ctx)
			if info.ProjectID == "" {
				info.ProjectID = projectID
			}
			logger := requestctx.Logger(ctx).With(
				zap.String("request_id", middleware.GetReqID(ctx)),
				zap.String("method", clip(r.Method, maxMethodRunes)),
				zap.String("path", cleanPath(r.URL.Path)),
			)
			if info.TraceID != "" {
				logger = logger.With(zap.String("trace_id", info.TraceID))
			}
			if info.ProjectID != "" && info.TraceID != "" {
				logger = logger.With(zap.String("logging.googleapis.com/trace", fmt.Sprintf("projects/%s/traces/%s", info.ProjectID, info.TraceID)))
			}

			ctx = requestctx.WithClientIP(requestctx.WithLogger(ctx, logger), clientIP)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(ctx)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				route := cleanPath(routePattern(r))
				annotateSpan(trace.SpanFromContext(ctx), status, route)

				fields := append(visitorFields(r, clientIP),
					zap.String("route", route),
					zap.Int("status", status),
					zap.Duration("latency", time.Since(started)),
					zap.Int("bytes", ww.BytesWritten()),
				)
				if ce := logger.Check(accessLevel(r.URL.Path, status), "request completed"); ce != nil {
					ce.Write(fields...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// RecoveryMiddleware converts a panic into a 500: the JSON error envelope
// under /api/ and a plain text body for pages.
func RecoveryMiddleware(fallback *zap.Logger) func(http.Handler) http.Handler {
	if fallback == nil {
		fallback = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				ctx := r.Context()
				logger := fallback
				if requestctx.HasLogger(ctx) {
					logger = requestctx.Logger(ctx)
				}
				logger.Error("panic recovered", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))

				if strings.HasPrefix(r.URL.Path, "/api/") {
					httpx.WriteError(ctx, w, httpx.NewError("internal_error", "", http.StatusInternalServerError))
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func accessLevel(path string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest && status != http.StatusNotFound:
		return zapcore.WarnLevel
	case quietPath(path):
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func annotateSpan(span trace.Span, status int, route string) {
	span.SetAttributes(semconv.HTTPResponseStatusCode(status), semconv.HTTPRoute(route))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
		return
	}
	span.SetStatus(codes.Ok, "")
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
