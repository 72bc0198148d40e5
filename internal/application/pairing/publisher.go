package pairing

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nexus-wa-bridge/internal/domain"
	"github.com/nexus-wa-bridge/internal/pkg/id"
)

// Artifact names, relative to each mirror's prefix. Every challenge overwrites them.
const (
	ImageName    = "pairing.png"
	DocumentName = "pairing.pdf"
)

const mirrorTimeout = 30 * time.Second

// Renderer turns a challenge code into its human-facing forms.
type Renderer interface {
	Terminal(w io.Writer, code string)
	Image(code string) ([]byte, error)
	Document(title string, image []byte) ([]byte, error)
}

// ArtifactStore receives a copy of every artifact. Implemented by the local
// directory store and the S3 store.
type ArtifactStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// Mirror is a named ArtifactStore with the key prefix its artifacts are written under.
type Mirror struct {
	Name   string
	Store  ArtifactStore
	Prefix string
}

// Notifier tells an operator that a new challenge is waiting to be scanned.
type Notifier interface {
	Notify(ctx context.Context, challenge domain.PairingChallenge) error
}

type Options struct {
	Title    string
	Terminal io.Writer // nil disables the terminal rendering
	Mirrors  []Mirror
	Notifier Notifier
}

// Publisher keeps the latest pairing challenge and produces its artifacts in the
// background. Artifact generation is best-effort: failures are logged and never
// reach the session manager.
type Publisher struct {
	renderer Renderer
	opts     Options
	log      *slog.Logger

	mu        sync.RWMutex
	current   *domain.PairingChallenge
	artifacts *domain.PairingArtifacts

	wg sync.WaitGroup
}

func NewPublisher(renderer Renderer, opts Options, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		renderer: renderer,
		opts:     opts,
		log:      log.With("component", "pairing"),
	}
}

// Publish makes code the current challenge and starts generating its artifacts.
func (p *Publisher) Publish(code string) {
	ch := domain.PairingChallenge{ID: id.New(), Code: code, IssuedAt: time.Now().UTC()}

	p.mu.Lock()
	p.current = &ch
	p.artifacts = nil
	p.mu.Unlock()

	p.log.Info("new pairing challenge", "challenge_id", ch.ID)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.generate(ch)
	}()
}

// Clear drops the current challenge and its artifacts.
func (p *Publisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.log.Info("pairing challenge cleared", "challenge_id", p.current.ID)
	}
	p.current = nil
	p.artifacts = nil
}

// Latest returns the current challenge, if any.
func (p *Publisher) Latest() (domain.PairingChallenge, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return domain.PairingChallenge{}, false
	}
	return *p.current, true
}

// Artifacts returns the rendered forms of the current challenge once they exist.
func (p *Publisher) Artifacts() (domain.PairingArtifacts, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.artifacts == nil {
		return domain.PairingArtifacts{}, false
	}
	return *p.artifacts, true
}

// Wait blocks until every started generation has finished.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

func (p *Publisher) generate(ch domain.PairingChallenge) {
	log := p.log.With("challenge_id", ch.ID)

	if p.opts.Terminal != nil {
		p.renderer.Terminal(p.opts.Terminal, ch.Code)
	}

	img, err := p.renderer.Image(ch.Code)
	if err != nil {
		log.Warn("render pairing image", "err", err)
		return
	}
	doc, err := p.renderer.Document(p.opts.Title, img)
	if err != nil {
		// The image alone is still worth serving.
		log.Warn("render pairing document", "err", err)
	}

	if !p.store(ch.ID, img, doc) {
		log.Debug("discarding artifacts of superseded challenge")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	for _, m := range p.opts.Mirrors {
		p.mirror(ctx, log, m, ImageName, img, "image/png")
		if doc != nil {
			p.mirror(ctx, log, m, DocumentName, doc, "application/pdf")
		}
	}

	if p.opts.Notifier != nil {
		if err := p.opts.Notifier.Notify(ctx, ch); err != nil {
			log.Warn("notify operator", "err", err)
		}
	}
}

// store records the artifacts unless the challenge is no longer current.
func (p *Publisher) store(challengeID string, img, doc []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.ID != challengeID {
		return false
	}
	p.artifacts = &domain.PairingArtifacts{ChallengeID: challengeID, Image: img, Document: doc}
	return true
}

func (p *Publisher) mirror(ctx context.Context, log *slog.Logger, m Mirror, name string, data []byte, contentType string) {
	loc, err := m.Store.Upload(ctx, m.Prefix+name, bytes.NewReader(data), contentType)
	if err != nil {
		log.Warn("mirror pairing artifact", "mirror", m.Name, "artifact", name, "err", err)
		return
	}
	log.Info("pairing artifact written", "mirror", m.Name, "location", loc)
}
