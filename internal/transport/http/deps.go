package http

import (
	"log/slog"

	"github.com/nexus-wa-bridge/internal/application/status"
	"github.com/nexus-wa-bridge/internal/application/verification"
	"github.com/nexus-wa-bridge/internal/transport/http/handler"
	appmiddleware "github.com/nexus-wa-bridge/internal/transport/http/middleware"
)

// Deps holds the services the router exposes.
type Deps struct {
	Status    status.Service
	Verifier  verification.Service
	Artifacts handler.ArtifactSource
	// Tokens enables bearer authentication when non-nil.
	Tokens appmiddleware.TokenVerifier
	Log    *slog.Logger
}
