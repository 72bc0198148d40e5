package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexus-wa-bridge/internal/domain"
)

const (
	eventBuffer       = 32
	credentialTimeout = 10 * time.Second
)

type taggedEvent struct {
	epoch uint64
	Event
}

// Manager owns the single connection to the messaging network.
//
// Run is the only goroutine that changes the connection state. Every dial starts a
// new epoch and events from an older epoch are dropped, so a late callback from a
// superseded connection can never move the state machine. Readers use State and
// Exists, which never block on the event loop.
type Manager struct {
	dialer    Dialer
	creds     CredentialStore
	publisher ChallengePublisher
	policy    *Policy
	log       *slog.Logger

	state   atomic.Int32
	events  chan taggedEvent
	stopped chan struct{}

	mu    sync.RWMutex
	conn  Conn
	epoch uint64

	// credMu serializes credential writes with wipes.
	credMu sync.Mutex

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewManager(dialer Dialer, creds CredentialStore, publisher ChallengePublisher, cfg PolicyConfig, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		dialer:    dialer,
		creds:     creds,
		publisher: publisher,
		policy:    NewPolicy(cfg, nil),
		log:       log.With("component", "session"),
		events:    make(chan taggedEvent, eventBuffer),
		stopped:   make(chan struct{}),
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// State returns the current connection state.
func (m *Manager) State() domain.ConnectionState {
	return domain.ConnectionState(m.state.Load())
}

// Exists asks the network whether id has an account. It fails with
// domain.ErrSessionNotReady unless the session is connected.
func (m *Manager) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()
	if conn == nil || m.State() != domain.StateConnected {
		return false, domain.ErrSessionNotReady
	}
	return conn.Exists(ctx, id)
}

// Run connects and keeps the session alive until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.stopped)
	m.log.Info("session manager starting")

	if !m.connect(ctx) {
		m.recover(ctx, m.policy.Retry())
	}
	for {
		select {
		case <-ctx.Done():
			m.teardown()
			m.log.Info("session manager stopped")
			return nil
		case ev := <-m.events:
			if !m.isCurrent(ev.epoch) {
				m.log.Debug("dropping event from superseded connection", "kind", ev.Kind)
				continue
			}
			m.apply(ctx, ev.Event)
		}
	}
}

func (m *Manager) apply(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventChallenge:
		m.setState(domain.StateQRPending)
		m.publisher.Publish(ev.Challenge)
	case EventConnected:
		m.setState(domain.StateConnected)
		m.publisher.Clear()
		m.policy.Reset()
		m.log.Info("session connected")
	case EventDisconnected:
		m.log.Warn("connection closed", "cause", ev.Cause.String(), "err", ev.Err)
		m.teardown()
		m.recover(ctx, m.policy.Next(ev.Cause, m.now()))
	}
}

// recover acts on d and keeps dialing until an attempt succeeds or ctx ends.
// Failed attempts only back off; see Policy.Retry.
func (m *Manager) recover(ctx context.Context, d Decision) {
	for ctx.Err() == nil {
		if d.Wipe {
			if d.Escalated {
				m.log.Warn("repeated connection failures, treating credentials as invalid")
			}
			m.wipe(ctx)
		}
		if d.Delay > 0 {
			m.log.Info("reconnecting after delay", "delay", d.Delay)
			if err := m.sleep(ctx, d.Delay); err != nil {
				return
			}
		}
		if m.connect(ctx) {
			return
		}
		d = m.policy.Retry()
	}
}

// connect performs one connection attempt. A failure here is reported to the
// caller only; it never changes the state.
func (m *Manager) connect(ctx context.Context) bool {
	creds, err := m.creds.Load(ctx)
	if err != nil {
		// Dialing without credentials would discard a possibly valid session.
		m.log.Error("load credentials", "err", err)
		return false
	}

	epoch := m.nextEpoch()
	conn, err := m.dialer.Dial(ctx, creds, m.sinkFor(epoch))
	if err != nil {
		m.log.Warn("connection attempt failed", "err", err, "has_credentials", creds != nil)
		return false
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		_ = conn.Close()
		return false
	}
	m.conn = conn
	m.mu.Unlock()
	return true
}

func (m *Manager) sinkFor(epoch uint64) EventSink {
	return func(ev Event) error {
		if ev.Kind == EventCredentials {
			return m.saveCredentials(epoch, ev.Credentials)
		}
		if !m.isCurrent(epoch) {
			return nil
		}
		select {
		case m.events <- taggedEvent{epoch: epoch, Event: ev}:
		case <-m.stopped:
		}
		return nil
	}
}

func (m *Manager) saveCredentials(epoch uint64, blob []byte) error {
	m.credMu.Lock()
	defer m.credMu.Unlock()
	if !m.isCurrent(epoch) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), credentialTimeout)
	defer cancel()
	if err := m.creds.Save(ctx, blob); err != nil {
		m.log.Error("save credentials", "err", err)
		return err
	}
	m.log.Debug("credentials saved", "bytes", len(blob))
	return nil
}

func (m *Manager) wipe(ctx context.Context) {
	m.credMu.Lock()
	defer m.credMu.Unlock()
	if err := m.creds.Wipe(ctx); err != nil {
		m.log.Error("wipe credentials", "err", err)
		return
	}
	m.log.Info("credentials wiped, a new pairing is required")
}

// teardown closes the current connection and invalidates its epoch.
func (m *Manager) teardown() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.epoch++
	m.mu.Unlock()
	m.setState(domain.StateDisconnected)
	if conn != nil {
		if err := conn.Close(); err != nil {
			m.log.Debug("close connection", "err", err)
		}
	}
}

func (m *Manager) nextEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	return m.epoch
}

func (m *Manager) isCurrent(epoch uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch == epoch
}

func (m *Manager) setState(s domain.ConnectionState) {
	if old := domain.ConnectionState(m.state.Swap(int32(s))); old != s {
		m.log.Info("connection state changed", "from", old.String(), "to", s.String())
	}
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
