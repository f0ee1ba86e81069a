package lead

import "fmt"

// Outcome codes that are not validation failures but still reach visitors.
const (
	CodeServerNotConfigured Code = "server_not_configured"
	CodeRateLimited         Code = "rate_limited"
	CodeMailSendFailed      Code = "mail_send_failed"
	CodeInvalidJSON         Code = "invalid_json"
)

// SuccessMessage is shown once a lead has been accepted.
const SuccessMessage = "Thanks! I’ll reach out soon."

// Message returns the visitor-facing text for code. Operator problems get a
// generic apology with the phone number so no configuration detail leaks.
func Message(code Code, contactPhone string) string {
	switch code {
	case CodeInvalidPhone:
		return "Please enter a valid phone number (or leave it blank and use email)."
	case CodeInvalidEmail:
		return "Please enter a valid email address (or leave it blank and use phone)."
	case CodeMissingFirstName:
		return "Please enter your first name."
	case CodeMissingContact:
		return "Please enter a phone number or an email address."
	case CodeServerNotConfigured:
		return withPhone("The contact form is not configured yet.", contactPhone)
	case CodeRateLimited:
		return withPhone("Too many requests. Please wait a minute and try again.", contactPhone)
	default:
		return withPhone("Sorry, something went wrong.", contactPhone)
	}
}

func withPhone(text, phone string) string {
	if phone == "" {
		return text
	}
	return fmt.Sprintf("%s Please call %s.", text, phone)
}
