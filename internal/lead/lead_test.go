package lead

import (
	"errors"
	"strings"
	"testing"
)

func TestLooksLikePhone(t *testing.T) {
	cases := map[string]bool{
		"(612) 800-3202": true,
		"6128003202":     true,
		"800-3202":       true,
		"12345":          false,
		"":               false,
		"call me maybe":  false,
		"+1 612 800":     true,
	}
	for input, want := range cases {
		if got := LooksLikePhone(input); got != want {
			t.Errorf("LooksLikePhone(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestLooksLikeEmail(t *testing.T) {
	cases := map[string]bool{
		"a@b.co":         true,
		"sam@example.io": true,
		"not-an-email":   false,
		"a@b":            false,
		"a b@c.d":        false,
		"a@@b.co":        false,
		"@b.co":          false,
	}
	for input, want := range cases {
		if got := LooksLikeEmail(input); got != want {
			t.Errorf("LooksLikeEmail(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"  Sam  ", "Sam"},
		{"\t\n", ""},
		{false, ""},
		{true, "true"},
		{float64(0), ""},
		{float64(6128003202), "6128003202"},
		{1.5, "1.5"},
		{[]string{" x ", "y"}, "x"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReconcileMovesEmailOutOfPhone(t *testing.T) {
	got := Reconcile(Submission{FirstName: "", Phone: "a@b.co"})
	if got.Email != "a@b.co" || got.Phone != "" {
		t.Fatalf("expected email moved out of phone, got %+v", got)
	}
	// First name is checked before contact details.
	if code := codeOf(Validate(got)); code != CodeMissingFirstName {
		t.Fatalf("expected missing_first_name, got %q", code)
	}
	got.FirstName = "Sam"
	if err := Validate(got); err != nil {
		t.Fatalf("expected email-only contact to pass, got %v", err)
	}
}

func TestReconcileMovesPhoneOutOfEmail(t *testing.T) {
	got := Reconcile(Submission{FirstName: "Sam", Phone: "", Email: "6128003202"})
	if got.Phone != "6128003202" || got.Email != "" {
		t.Fatalf("expected phone moved out of email, got %+v", got)
	}
	if err := Validate(got); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
}

func TestReconcileLeavesCorrectFieldsAlone(t *testing.T) {
	in := Submission{FirstName: "Sam", Phone: "612 800 3202", Email: "sam@example.com"}
	if got := Reconcile(in); got != in {
		t.Fatalf("expected unchanged submission, got %+v", got)
	}
	// Both filled: no swap even when the phone field holds an email.
	in = Submission{FirstName: "Sam", Phone: "x@y.zz", Email: "sam@example.com"}
	if got := Reconcile(in); got != in {
		t.Fatalf("expected no swap when both fields are filled, got %+v", got)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	inputs := []Submission{
		{Phone: "a@b.co"},
		{Email: "6128003202"},
		{Phone: "a@b.co", Email: ""},
		{Email: "12345"},
		{Phone: "12345", Email: "nope"},
		{Phone: "", Email: ""},
		{Phone: "612-800-3202", Email: "sam@example.com"},
		{Phone: "sam@example.com", Email: "6128003202"},
	}
	for _, in := range inputs {
		once := Reconcile(in)
		twice := Reconcile(once)
		if once != twice {
			t.Errorf("Reconcile not idempotent for %+v: once=%+v twice=%+v", in, once, twice)
		}
	}
}

func TestValidateOrder(t *testing.T) {
	cases := []struct {
		name string
		in   Submission
		want Code
		spam bool
	}{
		{name: "honeypot wins over everything", in: Submission{Honeypot: "ACME"}, spam: true},
		{name: "missing first name", in: Submission{FirstName: "", Phone: "nope", Email: "bad"}, want: CodeMissingFirstName},
		{name: "missing contact", in: Submission{FirstName: "Sam"}, want: CodeMissingContact},
		{name: "invalid email before phone", in: Submission{FirstName: "Sam", Phone: "12", Email: "bad"}, want: CodeInvalidEmail},
		{name: "invalid phone", in: Submission{FirstName: "Sam", Phone: "12345"}, want: CodeInvalidPhone},
		{name: "valid", in: Submission{FirstName: "Sam", Phone: "(612) 800-3202"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.in)
			if tc.spam {
				if !errors.Is(err, ErrSpam) {
					t.Fatalf("expected ErrSpam, got %v", err)
				}
				return
			}
			if got := codeOf(err); got != tc.want {
				t.Fatalf("expected %q, got %q (%v)", tc.want, got, err)
			}
		})
	}
}

func TestPrepareMissingFirstNameDominates(t *testing.T) {
	inputs := []map[string]any{
		{"firstName": "   ", "phone": "6128003202"},
		{"firstName": "", "email": "sam@example.com"},
		{"phone": "12", "email": "bad"},
		{"firstName": false},
	}
	for _, fields := range inputs {
		_, err := Prepare(fields)
		if codeOf(err) != CodeMissingFirstName {
			t.Errorf("Prepare(%v) = %v, want missing_first_name", fields, err)
		}
	}
}

func TestPrepareMissingContactAfterReconcile(t *testing.T) {
	for _, fields := range []map[string]any{
		{"firstName": "Sam"},
		{"firstName": "Sam", "phone": "  ", "email": "\t"},
		{"firstName": "Sam", "phone": nil, "email": float64(0)},
	} {
		_, err := Prepare(fields)
		if codeOf(err) != CodeMissingContact {
			t.Errorf("Prepare(%v) = %v, want missing_contact", fields, err)
		}
	}
}

func TestPrepareNormalisesFields(t *testing.T) {
	s, err := Prepare(map[string]any{
		"firstName": " Sam ",
		"lastName":  " Lee",
		"phone":     float64(6128003202),
		"page":      "https://lijideepak.com/#contact",
		"ts":        "2024-05-01T12:00:00.000Z",
	})
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if s.Name() != "Sam Lee" || s.Phone != "6128003202" || s.Page == "" || s.Timestamp == "" {
		t.Fatalf("unexpected submission %+v", s)
	}
}

func TestMessage(t *testing.T) {
	if got := Message(CodeMissingFirstName, "(612) 800-3202"); got != "Please enter your first name." {
		t.Fatalf("unexpected message %q", got)
	}
	got := Message(CodeServerNotConfigured, "(612) 800-3202")
	if got != "The contact form is not configured yet. Please call (612) 800-3202." {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Message("something_else", ""); got != "Sorry, something went wrong." {
		t.Fatalf("unexpected generic message %q", got)
	}
}

func TestComposeNotification(t *testing.T) {
	n := ComposeNotification(Submission{
		FirstName: "Sam",
		LastName:  "<Lee>",
		Email:     "sam@example.com",
		Page:      `https://example.com/?q="x"&a=<b>`,
		Timestamp: "2024-05-01T12:00:00Z",
	})

	if n.Subject != "New website lead: Sam <Lee>" {
		t.Fatalf("unexpected subject %q", n.Subject)
	}
	wantText := "Name: Sam <Lee>\nPhone: -\nEmail: sam@example.com\nPage: https://example.com/?q=\"x\"&a=<b>\nTime: 2024-05-01T12:00:00Z\n"
	if n.Text != wantText {
		t.Fatalf("unexpected text body:\n%s", n.Text)
	}
	if !strings.Contains(n.HTML, "<p><strong>Name:</strong> Sam &lt;Lee&gt;</p>") {
		t.Fatalf("expected escaped name, got %s", n.HTML)
	}
	if !strings.Contains(n.HTML, "<p><strong>Phone:</strong> -</p>") {
		t.Fatalf("expected dash for empty phone, got %s", n.HTML)
	}
	wantLink := `<a href="https://example.com/?q=%22x%22&amp;a=&lt;b&gt;">https://example.com/?q=&quot;x&quot;&amp;a=&lt;b&gt;</a>`
	if !strings.Contains(n.HTML, wantLink) {
		t.Fatalf("expected escaped page link %s, got %s", wantLink, n.HTML)
	}
}

func TestComposeNotificationWithoutPage(t *testing.T) {
	n := ComposeNotification(Submission{FirstName: "Sam", Phone: "6128003202"})
	if !strings.Contains(n.HTML, "<p><strong>Page:</strong> -</p>") {
		t.Fatalf("expected dash for missing page, got %s", n.HTML)
	}
	if strings.Contains(n.HTML, "<a ") {
		t.Fatalf("expected no link without page, got %s", n.HTML)
	}
}

func TestEscapeHTML(t *testing.T) {
	if got := EscapeHTML(`<a href="x">'&'</a>`); got != "&lt;a href=&quot;x&quot;&gt;&#39;&amp;&#39;&lt;/a&gt;" {
		t.Fatalf("unexpected escape %q", got)
	}
}

func codeOf(err error) Code {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Code
	}
	return ""
}
