package handler

import (
	"net/http"

	"github.com/identity-api/internal/application/otp"
	"github.com/identity-api/internal/domain"
)

// DebugOTPHandler exposes the diagnostic OTP read path. The router mounts
// it only outside production, so flows stay testable without a working
// mail provider. Backed by the same table the issuer writes — unlike a
// process-global, it survives multi-instance deployment.
type DebugOTPHandler struct {
	svc otp.Service
}

func NewDebugOTPHandler(svc otp.Service) *DebugOTPHandler {
	return &DebugOTPHandler{svc: svc}
}

func (h *DebugOTPHandler) Peek(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	purpose := r.URL.Query().Get("purpose")
	if email == "" || !domain.ValidPurpose(purpose) {
		writeError(w, http.StatusBadRequest, "email and a valid purpose are required")
		return
	}
	rec, err := h.svc.Peek(r.Context(), email, purpose)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
