// Package lead defines the lead submission contract: how raw form or JSON
// input is normalised, how misplaced contact details are repaired, and which
// submissions are rejected and why. Every entry point that accepts a lead
// goes through Prepare so their error codes never disagree.
package lead

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Field names shared by the JSON payload and the HTML form.
const (
	FieldFirstName    = "firstName"
	FieldLastName     = "lastName"
	FieldPhone        = "phone"
	FieldEmail        = "email"
	FieldHoneypot     = "company"
	FieldPage         = "page"
	FieldTimestamp    = "ts"
	FieldCaptchaToken = "captchaToken"
)

// Submission is one prospective client's contact request.
type Submission struct {
	FirstName    string
	LastName     string
	Phone        string
	Email        string
	Honeypot     string
	Page         string
	Timestamp    string
	CaptchaToken string
}

// Name joins first and last name, skipping empty parts.
func (s Submission) Name() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Code is a machine-readable rejection reason.
type Code string

// Rejection codes, in the order Validate checks them.
const (
	CodeMissingFirstName Code = "missing_first_name"
	CodeMissingContact   Code = "missing_contact"
	CodeInvalidEmail     Code = "invalid_email"
	CodeInvalidPhone     Code = "invalid_phone"
)

// ValidationError reports a user-correctable problem with a submission.
type ValidationError struct {
	Code Code
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("lead: %s", e.Code)
}

// ErrSpam marks a submission that filled the honeypot. Callers report
// success without delivering it.
var ErrSpam = errors.New("lead: honeypot field filled")

// emailPattern is a structural check (something@something.something), not RFC validation.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPhoneDigits = 7

// LooksLikeEmail reports whether s has the rough shape of an email address.
func LooksLikeEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// LooksLikePhone reports whether s carries at least seven digits once
// punctuation and spaces are ignored.
func LooksLikePhone(s string) bool {
	digits := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits++
		}
	}
	return digits >= minPhoneDigits
}

// Normalize coerces a decoded JSON or form value to a trimmed string.
// nil, false and numeric zero all become "".
func Normalize(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []string:
		if len(v) == 0 {
			return ""
		}
		return strings.TrimSpace(v[0])
	case bool:
		if !v {
			return ""
		}
		return "true"
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// FromFields builds a normalised Submission from decoded key/value input.
func FromFields(fields map[string]any) Submission {
	return Submission{
		FirstName:    Normalize(fields[FieldFirstName]),
		LastName:     Normalize(fields[FieldLastName]),
		Phone:        Normalize(fields[FieldPhone]),
		Email:        Normalize(fields[FieldEmail]),
		Honeypot:     Normalize(fields[FieldHoneypot]),
		Page:         Normalize(fields[FieldPage]),
		Timestamp:    Normalize(fields[FieldTimestamp]),
		CaptchaToken: Normalize(fields[FieldCaptchaToken]),
	}
}

// Reconcile moves an email typed into the phone field (or a phone number
// typed into the email field) to where it belongs. Each move happens at most
// once, and applying Reconcile to its own output changes nothing.
func Reconcile(s Submission) Submission {
	if s.Email == "" && s.Phone != "" && LooksLikeEmail(s.Phone) {
		s.Email, s.Phone = s.Phone, ""
	}
	if s.Phone == "" && s.Email != "" && !LooksLikeEmail(s.Email) && LooksLikePhone(s.Email) {
		s.Phone, s.Email = s.Email, ""
	}
	return s
}

// Validate runs the checks in a fixed order and reports the first failure.
// A filled honeypot yields ErrSpam; user mistakes yield *ValidationError.
func Validate(s Submission) error {
	switch {
	case s.Honeypot != "":
		return ErrSpam
	case s.FirstName == "":
		return &ValidationError{Code: CodeMissingFirstName}
	case s.Phone == "" && s.Email == "":
		return &ValidationError{Code: CodeMissingContact}
	case s.Email != "" && !LooksLikeEmail(s.Email):
		return &ValidationError{Code: CodeInvalidEmail}
	case s.Phone != "" && !LooksLikePhone(s.Phone):
		return &ValidationError{Code: CodeInvalidPhone}
	}
	return nil
}

// Prepare normalises, reconciles and validates raw input. The returned
// Submission is the reconciled one even when an error is returned.
func Prepare(fields map[string]any) (Submission, error) {
	s := Reconcile(FromFields(fields))
	return s, Validate(s)
}
