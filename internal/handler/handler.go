package handler

import (
	"context"

	"github.com/ancsystem/anc-notifier/internal/logger"
	"github.com/ancsystem/anc-notifier/internal/notify"
)

// Version is reported by the health endpoints
const Version = "0.1.0"

// HealthChecker is a dependency the health endpoints check
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmailSender is the callable send-email operation
type EmailSender interface {
	SendEmail(ctx context.Context, req notify.SendEmailRequest) (*notify.SendEmailResponse, error)
}

// Handler holds all HTTP handlers
type Handler struct {
	checks   map[string]HealthChecker
	emailSvc EmailSender
	log      *logger.Logger
}

// New creates a new Handler instance. checks maps a dependency name to its health check.
func New(checks map[string]HealthChecker, emailSvc EmailSender, log *logger.Logger) *Handler {
	return &Handler{
		checks:   checks,
		emailSvc: emailSvc,
		log:      log,
	}
}
