package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/lijid/lijid-dotcom/internal/mail"
	"github.com/lijid/lijid-dotcom/internal/platform/config"
	"github.com/lijid/lijid-dotcom/internal/platform/ratelimit"
	"github.com/lijid/lijid-dotcom/internal/services"
)

const testPhone = "(612) 800-3202"

type fakeSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestLeadService(sender *fakeSender, limiter ratelimit.Limiter) services.LeadService {
	deps := services.LeadServiceDeps{
		Recipient:   "liji@example.com",
		Sender:      "noreply@example.com",
		SenderName:  "LijiDeepak.com",
		Limiter:     limiter,
		IDGenerator: func() string { return "lead_test" },
	}
	if sender != nil {
		deps.Mailer = sender
	}
	return services.NewLeadService(deps)
}

type stubFeed struct {
	mu     sync.Mutex
	feed   services.ReviewFeed
	resets int
	calls  int
}

func (s *stubFeed) Feed(context.Context) services.ReviewFeed {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.feed
}

func (s *stubFeed) ResetPlaceID(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	return nil
}

func testSite() SiteInfo {
	return SiteInfo{
		Name:         "Liji Deepak",
		BaseURL:      "https://lijideepak.com/",
		Description:  "Minnesota real estate",
		ContactPhone: testPhone,
		Version:      "26.0.4",
		ShareURL:     "https://share.google/example",
		AreaServed:   []string{"Lakeville, MN"},
		ReviewsMode:  config.ReviewsModeLive,
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(os.DirFS("../../templates"), false)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
	}
	return body
}
