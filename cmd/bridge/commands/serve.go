package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nexus-wa-bridge/internal/application/pairing"
	"github.com/nexus-wa-bridge/internal/application/session"
	"github.com/nexus-wa-bridge/internal/application/status"
	"github.com/nexus-wa-bridge/internal/application/verification"
	"github.com/nexus-wa-bridge/internal/config"
	"github.com/nexus-wa-bridge/internal/infrastructure/filestore"
	jwtinfra "github.com/nexus-wa-bridge/internal/infrastructure/jwt"
	"github.com/nexus-wa-bridge/internal/infrastructure/qr"
	s3infra "github.com/nexus-wa-bridge/internal/infrastructure/s3"
	"github.com/nexus-wa-bridge/internal/infrastructure/smtp"
	"github.com/nexus-wa-bridge/internal/infrastructure/sns"
	"github.com/nexus-wa-bridge/internal/infrastructure/whatsapp"
	transporthttp "github.com/nexus-wa-bridge/internal/transport/http"
)

const (
	shutdownTimeout = 10 * time.Second
	// writeMargin leaves room to encode the response once a batch hits its deadline.
	writeMargin = 15 * time.Second
)

// writeTimeout covers the longest /verify call: a batch that runs into its deadline.
func writeTimeout(v config.Verification) time.Duration {
	return v.BatchTimeout + writeMargin
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the WhatsApp session and the control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	creds, closeCreds, err := openCredentialStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("credential store: %w", err)
	}
	defer closeCreds()

	publisher, err := newPublisher(ctx)
	if err != nil {
		return err
	}
	defer publisher.Wait()

	manager := session.NewManager(
		whatsapp.NewDialer(cfg.DeviceDBPath, logger),
		creds,
		publisher,
		session.PolicyConfig{
			ConflictCooldown: cfg.Reconnect.ConflictCooldown,
			Backoff: session.BackoffConfig{
				InitialDelay: cfg.Reconnect.InitialDelay,
				Multiplier:   cfg.Reconnect.Multiplier,
				MaxDelay:     cfg.Reconnect.MaxDelay,
				Jitter:       cfg.Reconnect.Jitter,
			},
			StormThreshold: cfg.Reconnect.StormThreshold,
			StormWindow:    cfg.Reconnect.StormWindow,
		},
		logger,
	)

	verifier := verification.NewService(manager, verification.Options{
		PaceEvery:    cfg.Verification.PaceEvery,
		PaceDelay:    cfg.Verification.PaceDelay,
		QueryTimeout: cfg.Verification.QueryTimeout,
		MaxBatch:     cfg.Verification.MaxBatch,
		BatchTimeout: cfg.Verification.BatchTimeout,
	}, logger)

	deps := &transporthttp.Deps{
		Status:    status.NewService(manager, publisher),
		Verifier:  verifier,
		Artifacts: publisher,
		Log:       logger,
	}
	// Authentication is optional: without a public key the API is open.
	if cfg.JWTPublicKeyPath != "" {
		provider, err := jwtinfra.NewProvider(cfg)
		if err != nil {
			return fmt.Errorf("jwt provider: %w", err)
		}
		deps.Tokens = provider
	} else {
		logger.Warn("JWT_PUBLIC_KEY_PATH not set, control API is unauthenticated")
	}

	router := transporthttp.NewRouter(cfg, deps)
	defer router.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg.Verification),
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return manager.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("forced shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}

// newPublisher wires the pairing artifacts: a local copy always, an S3 mirror and
// SMS or email to the operator when configured.
func newPublisher(ctx context.Context) (*pairing.Publisher, error) {
	opts := pairing.Options{
		Title:   cfg.Pairing.Title,
		Mirrors: []pairing.Mirror{{Name: "local", Store: filestore.NewArtifactDir(cfg.Pairing.ArtifactDir)}},
	}
	if cfg.Pairing.TerminalQR {
		opts.Terminal = os.Stdout
	}

	var presigner pairing.Presigner
	if cfg.Pairing.S3BucketName != "" {
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		store := s3infra.NewStore(client, cfg.Pairing.S3BucketName)
		opts.Mirrors = append(opts.Mirrors, pairing.Mirror{Name: "s3", Store: store, Prefix: cfg.Pairing.S3Prefix})
		presigner = store
	}

	var link *pairing.DocumentLink
	if presigner != nil {
		link = &pairing.DocumentLink{
			Presigner: presigner,
			Key:       cfg.Pairing.S3Prefix + pairing.DocumentName,
			TTL:       cfg.Pairing.PresignTTL,
		}
	}

	var notifiers pairing.Notifiers
	if cfg.Pairing.NotifyPhone != "" {
		sender, err := sns.NewSender(ctx, cfg)
		if err != nil {
			logger.Warn("SNS sender not available, pairing SMS disabled", "error", err)
		} else {
			notifiers = append(notifiers, &pairing.SMSNotifier{Sender: sender, To: cfg.Pairing.NotifyPhone, Link: link})
		}
	}
	if cfg.Pairing.NotifyEmail != "" {
		notifiers = append(notifiers, &pairing.EmailNotifier{
			Mailer: smtp.NewMailer(cfg.SMTP),
			To:     cfg.Pairing.NotifyEmail,
			Link:   link,
		})
	}
	if len(notifiers) > 0 {
		opts.Notifier = notifiers
	}

	logger.Info("pairing artifacts are written on each challenge; scan the QR on the settings page or open "+pairing.DocumentName,
		"dir", cfg.Pairing.ArtifactDir)
	return pairing.NewPublisher(qr.NewRenderer(cfg.Pairing.ImageSizePx), opts, logger), nil
}
