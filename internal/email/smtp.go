package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP connection parameters.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // optional, some servers allow unauthenticated relay
	Password string // optional
	From     string // default sender address
	FromName string // optional sender display name
}

// SMTPSender implements Sender over SMTP using go-mail.
type SMTPSender struct {
	config *SMTPConfig
	logger *slog.Logger
}

// NewSMTPSender creates an SMTP email sender.
func NewSMTPSender(config *SMTPConfig, logger *slog.Logger) *SMTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{
		config: config,
		logger: logger,
	}
}

// Send sends an email via SMTP.
func (s *SMTPSender) Send(ctx context.Context, email *Email) (string, error) {
	msg := mail.NewMsg()

	from := email.From
	if from == "" {
		from = s.config.From
	}
	if err := msg.From(from); err != nil {
		return "", fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return "", fmt.Errorf("invalid to address: %w", err)
	}

	msg.Subject(email.Subject)

	// Prefer HTML with a plain text alternative.
	if email.HTMLBody != "" && email.TextBody != "" {
		msg.SetBodyString(mail.TypeTextPlain, email.TextBody)
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTMLBody)
	} else if email.HTMLBody != "" {
		msg.SetBodyString(mail.TypeTextHTML, email.HTMLBody)
	} else {
		msg.SetBodyString(mail.TypeTextPlain, email.TextBody)
	}

	client, err := mail.NewClient(s.config.Host, s.clientOptions()...)
	if err != nil {
		return "", fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.Error("smtp: failed to send email", "to", email.To, "error", err)
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("smtp: email sent", "to", email.To, "subject", email.Subject)

	// SMTP doesn't return a message ID reliably, so synthesize one.
	return fmt.Sprintf("smtp-%d", time.Now().UnixNano()), nil
}

// clientOptions builds go-mail client options from the configuration.
// TLS mode follows the port convention: implicit TLS on 465, mandatory
// STARTTLS on 587, opportunistic elsewhere (25, local dev relays).
func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.config.Port),
		mail.WithTimeout(30 * time.Second),
	}

	switch s.config.Port {
	case 465:
		opts = append(opts, mail.WithSSL())
	case 587:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if s.config.Username != "" && s.config.Password != "" {
		opts = append(opts,
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}

	return opts
}

// TestConnection verifies SMTP connectivity and authentication without
// sending a message. Called at startup when email is enabled.
func (s *SMTPSender) TestConnection(ctx context.Context) error {
	client, err := mail.NewClient(s.config.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer client.Close()

	return nil
}
