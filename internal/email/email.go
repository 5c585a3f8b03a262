// Package email composes and sends transactional mail for the
// storefront. Sending is always best-effort: a failed confirmation
// never affects the order it describes.
package email

import "context"

// Email is a message to be sent.
type Email struct {
	To       []string
	From     string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender sends email messages. Implementations can use SMTP, an API
// provider, or a test double.
type Sender interface {
	// Send sends an email and returns the provider's message ID when
	// one is available.
	Send(ctx context.Context, email *Email) (string, error)
}
