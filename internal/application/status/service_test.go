package status

import (
	"testing"

	"github.com/nexus-wa-bridge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedState domain.ConnectionState

func (s fixedState) State() domain.ConnectionState { return domain.ConnectionState(s) }

type fixedChallenge struct {
	ch *domain.PairingChallenge
}

func (c fixedChallenge) Latest() (domain.PairingChallenge, bool) {
	if c.ch == nil {
		return domain.PairingChallenge{}, false
	}
	return *c.ch, true
}

func TestCurrent(t *testing.T) {
	pending := &domain.PairingChallenge{ID: "01J", Code: "2@xyz"}

	tests := []struct {
		name      string
		state     domain.ConnectionState
		challenge *domain.PairingChallenge
		active    bool
		status    string
		wantQR    bool
	}{
		{"disconnected", domain.StateDisconnected, nil, false, "disconnected", false},
		{"awaiting scan", domain.StateQRPending, pending, false, "qr_pending", true},
		{"connected", domain.StateConnected, nil, true, "connected", false},
		{"connected before challenge cleared", domain.StateConnected, pending, true, "connected", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NewService(fixedState(tc.state), fixedChallenge{tc.challenge}).Current()

			assert.Equal(t, tc.active, got.Active)
			assert.Equal(t, tc.status, got.Status)
			assert.Equal(t, tc.wantQR, got.HasQR)
			if tc.wantQR {
				require.NotNil(t, got.QRCodeString)
				assert.Equal(t, "2@xyz", *got.QRCodeString)
			} else {
				assert.Nil(t, got.QRCodeString)
			}
		})
	}
}
