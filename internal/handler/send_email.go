package handler

import (
	"errors"
	"net/http"

	"github.com/ancsystem/anc-notifier/internal/middleware"
	"github.com/ancsystem/anc-notifier/internal/notify"
)

// callableEnvelope is the request shape of the callable protocol: {"data": {...}}
type callableEnvelope struct {
	Data notify.SendEmailRequest `json:"data"`
}

// SendEmail handles POST /api/v1/send-email
// Body: {"to", "subject", "textOrHtml"}. Responds {"success": true}.
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req notify.SendEmailRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, notify.CodeInvalidArgument, "Invalid request body")
		return
	}

	resp, err := h.emailSvc.SendEmail(r.Context(), req)
	if err != nil {
		h.writeCallableError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SendAppointmentEmail handles POST /api/v1/sendAppointmentEmail, the callable
// protocol variant: {"data": {...}} in, {"result": {"success": true}} out.
func (h *Handler) SendAppointmentEmail(w http.ResponseWriter, r *http.Request) {
	var env callableEnvelope
	if err := readJSON(r, &env); err != nil {
		writeError(w, http.StatusBadRequest, notify.CodeInvalidArgument, "Invalid request body")
		return
	}

	resp, err := h.emailSvc.SendEmail(r.Context(), env.Data)
	if err != nil {
		h.writeCallableError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": resp})
}

func (h *Handler) writeCallableError(w http.ResponseWriter, r *http.Request, err error) {
	var cerr *notify.CallableError
	if !errors.As(err, &cerr) {
		h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("send email failed")
		writeError(w, http.StatusInternalServerError, notify.CodeInternal, "Email failed")
		return
	}

	var details map[string]interface{}
	if cerr.Details != "" {
		details = map[string]interface{}{"message": cerr.Details}
	}
	writeErrorWithDetails(w, callableStatus(cerr.Code), cerr.Code, cerr.Message, details)
}

func callableStatus(code string) int {
	switch code {
	case notify.CodeInvalidArgument:
		return http.StatusBadRequest
	case notify.CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
