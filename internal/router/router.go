package router

import (
	"net/http"

	"github.com/ancsystem/anc-notifier/internal/auth"
	"github.com/ancsystem/anc-notifier/internal/config"
	"github.com/ancsystem/anc-notifier/internal/handler"
	"github.com/ancsystem/anc-notifier/internal/middleware"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware, cfg *config.Config, tokenSvc *auth.TokenService) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	mux.HandleFunc("GET /api/v1/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"ANC notifier API v1","version":"` + handler.Version + `"}`))
	})

	// Manual send-email (authorized callers, rate limited)
	callerAuth := mw.CallerAuth(tokenSvc)
	sendRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "send_email",
		Limit:  cfg.Security.RateLimiting.Limit,
		Window: cfg.Security.RateLimiting.Window,
		KeyFn:  middleware.CallerOrIPKey,
	})
	mux.Handle("POST /api/v1/send-email", callerAuth(sendRateLimit(http.HandlerFunc(h.SendEmail))))
	mux.Handle("POST /api/v1/sendAppointmentEmail", callerAuth(sendRateLimit(http.HandlerFunc(h.SendAppointmentEmail))))

	var handler http.Handler = mux

	// Request logging
	handler = mw.Logger(handler)

	// Request ID
	handler = mw.RequestID(handler)

	// Panic recovery (outermost)
	handler = mw.Recover(handler)

	return handler
}
