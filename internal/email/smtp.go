package email

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "gopkg.in/gomail.v2"
)

// SMTPConfig holds the configuration for the SMTP sender.
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	SkipTLSVerify bool
}

// SMTPSender implements Sender over an authenticated SMTP relay.
type SMTPSender struct {
	dialer *mail.Dialer
}

// NewSMTPSender creates a new SMTPSender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("smtp: host and port are required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("smtp: %w", ErrNotConfigured)
	}

	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}

	return &SMTPSender{dialer: d}, nil
}

// Send opens a connection to the relay and sends one HTML message.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp: failed to send email: %w", err)
	}
	return nil
}
