package handler

import (
	"net/http"

	"github.com/nexus-wa-bridge/internal/application/status"
)

// StatusHandler reports the session state.
type StatusHandler struct {
	svc status.Service
}

func NewStatusHandler(svc status.Service) *StatusHandler { return &StatusHandler{svc: svc} }

func (h *StatusHandler) Get(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Current())
}
