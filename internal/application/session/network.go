package session

import (
	"context"

	"github.com/nexus-wa-bridge/internal/domain"
)

// EventKind enumerates the lifecycle notifications a network connection reports.
type EventKind int

const (
	EventChallenge EventKind = iota + 1
	EventConnected
	EventCredentials
	EventDisconnected
)

// Event is one lifecycle notification from a connection attempt.
type Event struct {
	Kind        EventKind
	Challenge   string                 // EventChallenge
	Credentials []byte                 // EventCredentials
	Cause       domain.DisconnectCause // EventDisconnected
	Err         error                  // EventDisconnected, optional detail
}

// EventSink receives the events of one connection attempt. It may be called from
// any goroutine. For EventCredentials it returns only after the blob is persisted.
type EventSink func(Event) error

// Dialer opens connections to the messaging network.
// A nil creds blob asks for a fresh identity, which makes the network issue a challenge.
type Dialer interface {
	Dial(ctx context.Context, creds []byte, sink EventSink) (Conn, error)
}

// Conn is an open connection. Exists reports whether id has an account on the network.
type Conn interface {
	Exists(ctx context.Context, id string) (bool, error)
	Close() error
}

// CredentialStore persists the opaque credential blob of the single session.
// Load returns nil, nil when nothing is stored.
type CredentialStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Wipe(ctx context.Context) error
}

// ChallengePublisher receives pairing challenges and is told when they stop being relevant.
type ChallengePublisher interface {
	Publish(code string)
	Clear()
}
