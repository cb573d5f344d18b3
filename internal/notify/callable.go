package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ancsystem/anc-notifier/internal/email"
	"github.com/ancsystem/anc-notifier/internal/logger"
)

// Callable error codes
const (
	CodeInvalidArgument = "invalid-argument"
	CodeInternal        = "internal"
	CodeUnauthenticated = "unauthenticated"
)

// CallableError is the structured error returned to callers of SendEmail
type CallableError struct {
	Code    string
	Message string
	// Details carries the underlying error text for internal errors
	Details string
	Err     error
}

func (e *CallableError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CallableError) Unwrap() error {
	return e.Err
}

// SendEmailRequest is the input of the manual send-email call
type SendEmailRequest struct {
	To         string `json:"to"`
	Subject    string `json:"subject"`
	TextOrHTML string `json:"textOrHtml"`
}

// SendEmailResponse acknowledges a successful send
type SendEmailResponse struct {
	Success bool `json:"success"`
}

// EmailService sends ad-hoc emails on behalf of an authorized caller
type EmailService struct {
	mailer Mailer
	log    *logger.Logger
}

// NewEmailService creates a new EmailService
func NewEmailService(mailer Mailer, log *logger.Logger) *EmailService {
	return &EmailService{
		mailer: mailer,
		log:    log.WithComponent("send_email"),
	}
}

// SendEmail validates req and sends it. Every error is a *CallableError.
func (s *EmailService) SendEmail(ctx context.Context, req SendEmailRequest) (*SendEmailResponse, error) {
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.TextOrHTML) == "" {
		return nil, &CallableError{
			Code:    CodeInvalidArgument,
			Message: "Missing to, subject, or textOrHtml",
		}
	}

	err := s.mailer.Send(ctx, req.To, req.Subject, req.TextOrHTML)
	if errors.Is(err, email.ErrInvalidMessage) {
		return nil, &CallableError{
			Code:    CodeInvalidArgument,
			Message: "Invalid to address",
			Details: err.Error(),
			Err:     err,
		}
	}
	if err != nil {
		s.log.Error().Err(err).Str("to", req.To).Msg("sendAppointmentEmail error")
		return nil, &CallableError{
			Code:    CodeInternal,
			Message: "Email failed",
			Details: err.Error(),
			Err:     err,
		}
	}

	s.log.Info().Str("to", req.To).Str("subject", req.Subject).Msg("email sent")
	return &SendEmailResponse{Success: true}, nil
}
