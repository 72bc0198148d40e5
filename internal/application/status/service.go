package status

import (
	"github.com/nexus-wa-bridge/internal/domain"
)

type Service interface {
	// Current returns the control API view of the session.
	Current() domain.BridgeStatus
}

type sessionState interface {
	State() domain.ConnectionState
}

type challengeSource interface {
	Latest() (domain.PairingChallenge, bool)
}

type service struct {
	session    sessionState
	challenges challengeSource
}

func NewService(session sessionState, challenges challengeSource) Service {
	return &service{session: session, challenges: challenges}
}

func (s *service) Current() domain.BridgeStatus {
	state := s.session.State()
	st := domain.BridgeStatus{
		Active: state == domain.StateConnected,
		Status: state.String(),
	}
	// A connected session never advertises a challenge, even one not yet cleared.
	if ch, ok := s.challenges.Latest(); ok && state != domain.StateConnected {
		code := ch.Code
		st.HasQR = true
		st.QRCodeString = &code
	}
	return st
}
