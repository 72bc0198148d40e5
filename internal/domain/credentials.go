package domain

import "time"

// CredentialRecord is the persisted form of the opaque session credential.
// PK: session_id (one fixed identity per deployment).
type CredentialRecord struct {
	SessionID string    `json:"session_id" dynamodbav:"session_id"`
	Blob      []byte    `json:"-" dynamodbav:"blob"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}
