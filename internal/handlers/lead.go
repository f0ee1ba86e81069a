package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lijid/lijid-dotcom/internal/lead"
	"github.com/lijid/lijid-dotcom/internal/platform/httpx"
	"github.com/lijid/lijid-dotcom/internal/platform/idempotency"
	"github.com/lijid/lijid-dotcom/internal/platform/requestctx"
	"github.com/lijid/lijid-dotcom/internal/services"
)

const (
	// LeadPath is the JSON lead intake endpoint.
	LeadPath = "/api/lead"

	maxLeadBodyBytes  = 32 << 10
	maxFailureMessage = 400
	corsMaxAge        = 24 * time.Hour
)

// LeadHandlers serves the JSON lead endpoint.
type LeadHandlers struct {
	leads        services.LeadService
	idempotency  idempotency.Store
	contactPhone string
}

// LeadOption customises LeadHandlers.
type LeadOption func(*LeadHandlers)

// WithIdempotencyStore enables Idempotency-Key replay for submissions.
func WithIdempotencyStore(store idempotency.Store) LeadOption {
	return func(h *LeadHandlers) {
		h.idempotency = store
	}
}

// WithContactPhone sets the phone number offered in operator-side failure messages.
func WithContactPhone(phone string) LeadOption {
	return func(h *LeadHandlers) {
		h.contactPhone = phone
	}
}

// NewLeadHandlers builds the lead endpoint around leads.
func NewLeadHandlers(leads services.LeadService, opts ...LeadOption) *LeadHandlers {
	h := &LeadHandlers{leads: leads}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the endpoint. CORS headers are applied to every method,
// including rejected ones.
func (h *LeadHandlers) Routes(r chi.Router) {
	mw := []func(http.Handler) http.Handler{
		httpx.ReflectOriginCORS(httpx.CORSOptions{
			Methods: []string{http.MethodPost, http.MethodOptions},
			Headers: []string{"content-type"},
			MaxAge:  corsMaxAge,
		}),
		h.requireReady,
	}
	if h.idempotency != nil {
		mw = append(mw, idempotency.Middleware(h.idempotency))
	}

	group := r.With(mw...)
	group.HandleFunc(LeadPath, h.methodNotAllowed)
	group.Options(LeadPath, h.preflight)
	group.Post(LeadPath, h.submit)
}

func (h *LeadHandlers) preflight(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteOK(w)
}

func (h *LeadHandlers) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "POST, OPTIONS")
	httpx.WriteError(r.Context(), w, httpx.NewError("method_not_allowed", "", http.StatusMethodNotAllowed))
}

// requireReady rejects submissions while mail is unconfigured, before the
// body is read or an idempotency key is reserved.
func (h *LeadHandlers) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if err := h.leads.Ready(); err != nil {
				h.writeFailure(w, r, err)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *LeadHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fields, ok := decodeLeadBody(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError(string(lead.CodeInvalidJSON), "", http.StatusBadRequest))
		return
	}

	receipt, err := h.leads.Submit(ctx, services.SubmitLeadCommand{Fields: fields, SourceKey: requestctx.ClientIP(r)})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if receipt.ID != "" {
		requestctx.Logger(ctx).Info("lead accepted", zap.String("leadId", receipt.ID))
	}
	httpx.WriteOK(w)
}

func (h *LeadHandlers) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	outcome := classifyLeadError(err, h.contactPhone)
	if outcome.status >= http.StatusInternalServerError {
		requestctx.Logger(r.Context()).Warn("lead submission failed", zap.String("code", string(outcome.code)), zap.Error(err))
	}
	httpx.WriteError(r.Context(), w, httpx.NewError(string(outcome.code), "", outcome.status).WithMessage(outcome.message, maxFailureMessage))
}

// decodeLeadBody reads a bounded JSON body. Empty, oversized and malformed
// bodies are rejected; a valid non-object value decodes as no fields.
func decodeLeadBody(r *http.Request) (map[string]any, bool) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxLeadBodyBytes+1))
	if err != nil || len(raw) == 0 || len(raw) > maxLeadBodyBytes {
		return nil, false
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, false
	}
	fields, isObject := decoded.(map[string]any)
	if !isObject {
		fields = map[string]any{}
	}
	return fields, true
}

type leadOutcome struct {
	status  int
	code    lead.Code
	message string
}

// classifyLeadError maps service errors onto the endpoint's closed error set.
func classifyLeadError(err error, phone string) leadOutcome {
	var verr *lead.ValidationError
	var derr *services.DeliveryError
	switch {
	case errors.As(err, &verr):
		return leadOutcome{status: http.StatusBadRequest, code: verr.Code, message: lead.Message(verr.Code, phone)}
	case errors.Is(err, services.ErrLeadNotConfigured):
		return leadOutcome{status: http.StatusInternalServerError, code: lead.CodeServerNotConfigured, message: lead.Message(lead.CodeServerNotConfigured, phone)}
	case errors.Is(err, services.ErrLeadRateLimited):
		return leadOutcome{status: http.StatusTooManyRequests, code: lead.CodeRateLimited, message: lead.Message(lead.CodeRateLimited, phone)}
	case errors.As(err, &derr):
		return leadOutcome{status: http.StatusBadGateway, code: lead.CodeMailSendFailed, message: derr.Err.Error()}
	default:
		return leadOutcome{status: http.StatusInternalServerError, code: "internal_error", message: lead.Message("", phone)}
	}
}
