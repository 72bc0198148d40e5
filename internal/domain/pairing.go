package domain

import "time"

// PairingChallenge is the one-time code the network issues while no valid credential exists.
// It lives only in memory and is cleared once the session connects.
type PairingChallenge struct {
	ID       string    `json:"id"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}

// PairingArtifacts holds the rendered forms of a challenge.
type PairingArtifacts struct {
	ChallengeID string
	Image       []byte // PNG
	Document    []byte // PDF
}
