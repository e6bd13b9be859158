package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/identity-api/internal/application/account"
	"github.com/identity-api/internal/pkg/validate"
	"github.com/identity-api/internal/transport/http/middleware"
)

// AccountDeletionHandler handles the OTP-gated account deletion flow.
type AccountDeletionHandler struct {
	svc account.Service
}

func NewAccountDeletionHandler(svc account.Service) *AccountDeletionHandler {
	return &AccountDeletionHandler{svc: svc}
}

func (h *AccountDeletionHandler) Action(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	switch chi.URLParam(r, "action") {
	case "request":
		if err := h.svc.RequestDeletion(r.Context(), claims.UserID); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "deletion code sent"})
	case "confirm":
		var req account.ConfirmDeletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := h.svc.ConfirmDeletion(r.Context(), claims.UserID, req); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deleted"})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
