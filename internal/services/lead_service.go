package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/lijid/lijid-dotcom/internal/lead"
	"github.com/lijid/lijid-dotcom/internal/mail"
	"github.com/lijid/lijid-dotcom/internal/platform/ratelimit"
)

const leadIDPrefix = "lead_"

var (
	// ErrLeadNotConfigured indicates the recipient, sender or mail credential is missing.
	ErrLeadNotConfigured = errors.New("lead: server not configured")
	// ErrLeadRateLimited indicates the caller exceeded the submission window.
	ErrLeadRateLimited = errors.New("lead: rate limited")
)

// DeliveryError wraps a failed notification send.
type DeliveryError struct {
	LeadID string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("lead %s: delivery failed: %v", e.LeadID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// LeadServiceDeps bundles collaborators required to construct a LeadService.
type LeadServiceDeps struct {
	Mailer      mail.Sender
	Recipient   string
	Sender      string
	SenderName  string
	Limiter     ratelimit.Limiter
	IDGenerator func() string
	Logger      *zap.Logger
}

type leadService struct {
	mailer    mail.Sender
	recipient string
	from      mail.Address
	limiter   ratelimit.Limiter
	newID     func() string
	logger    *zap.Logger
}

// NewLeadService wires dependencies into a LeadService. A nil Mailer is
// allowed; Ready then reports ErrLeadNotConfigured.
func NewLeadService(deps LeadServiceDeps) LeadService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return leadIDPrefix + ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &leadService{
		mailer:    deps.Mailer,
		recipient: strings.TrimSpace(deps.Recipient),
		from:      mail.Address{Email: strings.TrimSpace(deps.Sender), Name: strings.TrimSpace(deps.SenderName)},
		limiter:   deps.Limiter,
		newID:     idGen,
		logger:    logger.Named("lead"),
	}
}

func (s *leadService) Ready() error {
	if s.mailer == nil || s.recipient == "" || s.from.Email == "" {
		return ErrLeadNotConfigured
	}
	return nil
}

// Submit validates cmd.Fields and emails the agent. Validation failures are
// returned as *lead.ValidationError; spam is accepted without delivery.
func (s *leadService) Submit(ctx context.Context, cmd SubmitLeadCommand) (LeadReceipt, error) {
	if err := s.Ready(); err != nil {
		return LeadReceipt{}, err
	}

	sub, err := lead.Prepare(cmd.Fields)
	if errors.Is(err, lead.ErrSpam) {
		s.logger.Info("lead dropped: honeypot")
		return LeadReceipt{}, nil
	}
	if err != nil {
		return LeadReceipt{}, err
	}

	if s.limiter != nil && !s.limiter.Allow(cmd.SourceKey) {
		s.logger.Warn("lead rate limited")
		return LeadReceipt{}, ErrLeadRateLimited
	}

	id := s.newID()
	note := lead.ComposeNotification(sub)
	msg := mail.Message{
		To:      []mail.Address{{Email: s.recipient}},
		From:    s.from,
		Subject: note.Subject,
		Text:    note.Text,
		HTML:    note.HTML,
	}
	if sub.Email != "" {
		msg.ReplyTo = &mail.Address{Email: sub.Email, Name: sub.Name()}
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("lead delivery failed", zap.String("leadId", id), zap.Error(err))
		return LeadReceipt{}, &DeliveryError{LeadID: id, Err: err}
	}

	s.logger.Info("lead delivered",
		zap.String("leadId", id),
		zap.Bool("hasPhone", sub.Phone != ""),
		zap.Bool("hasEmail", sub.Email != ""),
		zap.Bool("hasCaptcha", sub.CaptchaToken != ""),
	)
	return LeadReceipt{ID: id, Delivered: true}, nil
}
