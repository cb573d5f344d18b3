package email

import (
	"context"
	"errors"
)

// Errors returned by senders and the Mailer
var (
	ErrInvalidMessage = errors.New("email: a single valid recipient, a subject and a body are required")
	ErrNotConfigured  = errors.New("email: mail account credentials are not configured")
)

// Sender is the interface that all email providers must implement.
type Sender interface {
	// Send delivers one message to one recipient.
	Send(ctx context.Context, msg Message) error
}

// Message represents an email message to be sent.
type Message struct {
	From     string // formatted sender identity, e.g. "ANC System" <anc@example.com>
	To       string // recipient email address
	Subject  string // email subject
	HTMLBody string // HTML email body
}

// unconfiguredSender fails every send. It stands in for a provider whose
// credentials were missing at startup.
type unconfiguredSender struct{}

func (unconfiguredSender) Send(context.Context, Message) error {
	return ErrNotConfigured
}
