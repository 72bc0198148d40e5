package domain

import "fmt"

// ConnectionState is the lifecycle state of the single messaging-network session.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateQRPending
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateQRPending:
		return "qr_pending"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// DisconnectCause classifies a connection-closed event. It selects the reconnection policy.
type DisconnectCause int

const (
	CauseUnknown        DisconnectCause = iota
	CauseAuthInvalid                    // credential permanently rejected
	CauseStreamConflict                 // another client took over the same identity
)

func (c DisconnectCause) String() string {
	switch c {
	case CauseAuthInvalid:
		return "auth_invalid"
	case CauseStreamConflict:
		return "stream_conflict"
	default:
		return "unknown"
	}
}
