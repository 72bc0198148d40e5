package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nexus-wa-bridge/internal/config"
	"github.com/nexus-wa-bridge/internal/transport/http/handler"
	appmiddleware "github.com/nexus-wa-bridge/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// ScopeVerify is the token scope required to run verification batches.
const ScopeVerify = "verify"

// Router is the control API. Close releases the rate limiter.
type Router struct {
	http.Handler
	limiter *appmiddleware.RateLimiter
}

func (r *Router) Close() { r.limiter.Stop() }

// NewRouter builds and returns the control API router.
func NewRouter(cfg *config.Config, deps *Deps) *Router {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(appmiddleware.RequestLogger(log.With("component", "http")))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := func(next http.Handler) http.Handler { return next }
	scopeMw := authMw
	if deps.Tokens != nil {
		authMw = appmiddleware.Auth(deps.Tokens)
		scopeMw = appmiddleware.RequireScope(ScopeVerify)
	}

	// Verification fans out into network queries; keep callers from stacking batches.
	verifyRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.Verification.RateLimit), cfg.Verification.RateBurst)

	healthH := handler.NewHealthHandler()
	statusH := handler.NewStatusHandler(deps.Status)
	verifyH := handler.NewVerifyHandler(deps.Verifier, deps.Status)
	pairingH := handler.NewPairingHandler(deps.Artifacts)

	r.Get("/health-check/{action}", healthH.Ping)

	r.Group(func(r chi.Router) {
		r.Use(authMw)

		r.Get("/status", statusH.Get)
		r.Get("/pairing/qr.png", pairingH.Image)
		r.Get("/pairing/qr.pdf", pairingH.Document)
		r.With(scopeMw, verifyRL.Limit).Post("/verify", verifyH.Verify)
	})

	return &Router{Handler: r, limiter: verifyRL}
}
