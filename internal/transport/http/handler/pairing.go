package handler

import (
	"net/http"
	"strconv"

	"github.com/nexus-wa-bridge/internal/domain"
)

// ArtifactSource exposes the artifacts of the current pairing challenge.
type ArtifactSource interface {
	Artifacts() (domain.PairingArtifacts, bool)
}

// PairingHandler serves the latest pairing QR image and printable sheet.
type PairingHandler struct {
	src ArtifactSource
}

func NewPairingHandler(src ArtifactSource) *PairingHandler { return &PairingHandler{src: src} }

func (h *PairingHandler) Image(w http.ResponseWriter, _ *http.Request) {
	art, ok := h.src.Artifacts()
	if !ok || len(art.Image) == 0 {
		writeError(w, http.StatusNotFound, "no pairing challenge pending")
		return
	}
	writeBinary(w, "image/png", "", art.ChallengeID, art.Image)
}

func (h *PairingHandler) Document(w http.ResponseWriter, _ *http.Request) {
	art, ok := h.src.Artifacts()
	if !ok || len(art.Document) == 0 {
		writeError(w, http.StatusNotFound, "no pairing challenge pending")
		return
	}
	writeBinary(w, "application/pdf", `inline; filename="pairing.pdf"`, art.ChallengeID, art.Document)
}

// writeBinary sends an artifact that must never be cached: it changes with every challenge.
func writeBinary(w http.ResponseWriter, contentType, disposition, challengeID string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Challenge-Id", challengeID)
	if disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
