package handler

import (
	"encoding/json"
	"net/http"

	"github.com/nexus-wa-bridge/internal/application/status"
	"github.com/nexus-wa-bridge/internal/application/verification"
	"github.com/nexus-wa-bridge/internal/domain"
	"github.com/nexus-wa-bridge/internal/pkg/validate"
)

// VerifyHandler runs number verification batches.
type VerifyHandler struct {
	svc    verification.Service
	status status.Service
}

func NewVerifyHandler(svc verification.Service, status status.Service) *VerifyHandler {
	return &VerifyHandler{svc: svc, status: status}
}

func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	// A disconnected session is reported before the body is even read.
	if !h.status.Current().Active {
		httpError(w, domain.ErrSessionNotReady)
		return
	}

	var req domain.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "numbers must be an array of strings")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Verify(r.Context(), req.Numbers)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
