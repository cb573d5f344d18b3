package email

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/ancsystem/anc-notifier/internal/config"
	"github.com/ancsystem/anc-notifier/internal/logger"
)

// Mailer sends single-recipient HTML emails under a fixed sender identity.
// It is safe for concurrent use as long as its Sender is.
type Mailer struct {
	sender Sender
	from   string
}

// NewMailer creates a Mailer that sends as "senderName" <account>.
func NewMailer(sender Sender, account, senderName string) *Mailer {
	from := (&mail.Address{Name: senderName, Address: account}).String()
	return &Mailer{sender: sender, from: from}
}

// From returns the formatted sender identity
func (m *Mailer) From() string {
	return m.from
}

// Send validates the message and hands it to the transport. to must be a
// single address; transport errors are returned as-is and there is no retry.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(body) == "" {
		return ErrInvalidMessage
	}
	addr, err := parseRecipient(to)
	if err != nil {
		return err
	}

	return m.sender.Send(ctx, Message{
		From:     m.from,
		To:       addr,
		Subject:  subject,
		HTMLBody: body,
	})
}

// parseRecipient returns the bare address of exactly one RFC 5322 mailbox.
// Header line breaks are rejected before parsing so nothing can reach the
// raw MIME headers.
func parseRecipient(to string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return "", ErrInvalidMessage
	}
	parsed, err := mail.ParseAddress(to)
	if err != nil {
		return "", fmt.Errorf("%w: invalid recipient %q: %v", ErrInvalidMessage, to, err)
	}
	return parsed.Address, nil
}

// NewSender builds the transport selected by cfg.Provider. Missing or unusable
// credentials do not stop startup: a warning is logged and every send fails
// with ErrNotConfigured.
func NewSender(ctx context.Context, cfg config.MailConfig, log *logger.Logger) Sender {
	if !cfg.Configured() {
		log.Warn().
			Str("provider", cfg.Provider).
			Msg("mail account or credential not set (ANC_MAIL_ACCOUNT / ANC_MAIL_PASSWORD); emails will not be sent")
		return unconfiguredSender{}
	}

	var (
		sender Sender
		err    error
	)
	switch cfg.Provider {
	case "gmail":
		sender, err = NewGmailSender(ctx, GmailConfig{
			Account:         cfg.Account,
			CredentialsJSON: cfg.Gmail.CredentialsJSON,
			ClientID:        cfg.Gmail.ClientID,
			ClientSecret:    cfg.Gmail.ClientSecret,
			RefreshToken:    cfg.Gmail.RefreshToken,
		})
	case "smtp", "":
		sender, err = NewSMTPSender(SMTPConfig{
			Host:          cfg.SMTP.Host,
			Port:          cfg.SMTP.Port,
			Username:      cfg.Account,
			Password:      cfg.Password,
			SkipTLSVerify: cfg.SMTP.SkipTLSVerify,
		})
	default:
		err = fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.Provider).Msg("mail transport unavailable; emails will not be sent")
		return unconfiguredSender{}
	}

	if cfg.SMTP.SkipTLSVerify && cfg.Provider != "gmail" {
		log.Warn().Msg("TLS certificate verification is disabled for the SMTP relay")
	}
	log.Info().Str("provider", cfg.Provider).Str("account", cfg.Account).Msg("mail transport configured")
	return sender
}
