package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nexus-wa-bridge/internal/domain"
	"github.com/nexus-wa-bridge/internal/pkg/id"
)

// Session is the part of the session manager the verifier needs.
type Session interface {
	State() domain.ConnectionState
	Exists(ctx context.Context, id string) (bool, error)
}

type Service interface {
	// Verify returns the entries of numbers that have an account on the network.
	Verify(ctx context.Context, numbers []string) (*domain.VerifyResult, error)
}

// Options tunes pacing and limits. Zero values fall back to the defaults below;
// a negative PaceDelay turns pacing off.
type Options struct {
	PaceEvery    int
	PaceDelay    time.Duration
	QueryTimeout time.Duration
	MaxBatch     int
	// BatchTimeout bounds a whole batch; it must fit inside the server's write timeout.
	BatchTimeout time.Duration
}

const (
	defaultPaceEvery    = 5
	defaultPaceDelay    = 300 * time.Millisecond
	defaultQueryTimeout = 10 * time.Second
	defaultMaxBatch     = 500
	defaultBatchTimeout = 5 * time.Minute
)

type service struct {
	session Session
	opts    Options
	log     *slog.Logger

	// inflight admits one batch at a time; a second caller is rejected.
	inflight sync.Mutex

	pause func(ctx context.Context, d time.Duration) error
}

func NewService(session Session, opts Options, log *slog.Logger) Service {
	if opts.PaceEvery <= 0 {
		opts.PaceEvery = defaultPaceEvery
	}
	if opts.PaceDelay == 0 {
		opts.PaceDelay = defaultPaceDelay
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = defaultQueryTimeout
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = defaultMaxBatch
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = defaultBatchTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &service{
		session: session,
		opts:    opts,
		log:     log.With("component", "verification"),
		pause:   sleepContext,
	}
}

func (s *service) Verify(ctx context.Context, numbers []string) (*domain.VerifyResult, error) {
	if s.session.State() != domain.StateConnected {
		return nil, fmt.Errorf("verify: %w", domain.ErrSessionNotReady)
	}
	if len(numbers) > s.opts.MaxBatch {
		return nil, fmt.Errorf("batch of %d numbers exceeds the limit of %d: %w", len(numbers), s.opts.MaxBatch, domain.ErrBadRequest)
	}
	if !s.inflight.TryLock() {
		return nil, fmt.Errorf("another verification batch is running: %w", domain.ErrConflict)
	}
	defer s.inflight.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.opts.BatchTimeout)
	defer cancel()

	batchID := id.New()
	log := s.log.With("batch_id", batchID)
	log.Info("verifying numbers", "count", len(numbers))
	start := time.Now()

	valid := make([]string, 0, len(numbers))
	verdicts := make(map[string]bool, len(numbers))
	for i, raw := range numbers {
		if err := ctx.Err(); err != nil {
			log.Warn("verification cancelled", "processed", i, "err", err)
			return nil, err
		}

		found, seen := verdicts[raw]
		if !seen {
			var err error
			found, err = s.verifyOne(ctx, log, raw)
			if err != nil {
				log.Warn("verification aborted", "processed", i, "err", err)
				return nil, err
			}
			verdicts[raw] = found
			if found {
				valid = append(valid, raw)
			} else {
				log.Info("number has no account", "number", raw)
			}
		}

		if i > 0 && i%s.opts.PaceEvery == 0 && s.opts.PaceDelay > 0 {
			if err := s.pause(ctx, s.opts.PaceDelay); err != nil {
				log.Warn("verification cancelled", "processed", i+1, "err", err)
				return nil, err
			}
		}
	}

	log.Info("verification finished", "count", len(numbers), "valid", len(valid), "took", time.Since(start))
	return &domain.VerifyResult{BatchID: batchID, ValidNumbers: valid}, nil
}

// verifyOne tries the candidates of raw in order and stops at the first hit.
// Query errors only disqualify the candidate that produced them, unless the
// session is gone or the batch itself is cancelled: those end the batch.
func (s *service) verifyOne(ctx context.Context, log *slog.Logger, raw string) (bool, error) {
	for _, candidate := range Candidates(raw) {
		exists, err := s.query(ctx, candidate)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotReady) {
				return false, fmt.Errorf("verify %s: %w", raw, err)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, ctxErr
			}
			if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("candidate query timed out", "candidate", candidate, "number", raw)
			} else {
				log.Warn("candidate query failed", "candidate", candidate, "number", raw, "err", err)
			}
			continue
		}
		if exists {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) query(ctx context.Context, candidate string) (bool, error) {
	qctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()
	return s.session.Exists(qctx, candidate)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
