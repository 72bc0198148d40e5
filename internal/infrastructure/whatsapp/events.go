package whatsapp

import (
	"errors"
	"fmt"

	"github.com/nexus-wa-bridge/internal/application/session"
	"github.com/nexus-wa-bridge/internal/domain"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types/events"
)

// reaction says what a client event means for the session manager.
type reaction struct {
	snapshot bool           // persist the device store before anything else
	event    *session.Event // forwarded to the manager when non-nil
}

func disconnected(cause domain.DisconnectCause, err error) reaction {
	return reaction{event: &session.Event{Kind: session.EventDisconnected, Cause: cause, Err: err}}
}

// classify maps whatsmeow events onto session lifecycle events.
func classify(evt interface{}) reaction {
	switch e := evt.(type) {
	case *events.Connected:
		return reaction{snapshot: true, event: &session.Event{Kind: session.EventConnected}}
	case *events.PairSuccess, *events.PushNameSetting:
		return reaction{snapshot: true}
	case *events.LoggedOut:
		return disconnected(domain.CauseAuthInvalid, fmt.Errorf("logged out: %s", e.Reason.String()))
	case *events.ConnectFailure:
		if e.Reason.IsLoggedOut() {
			return disconnected(domain.CauseAuthInvalid, fmt.Errorf("connect failure: %s", e.Reason.String()))
		}
		return disconnected(domain.CauseUnknown, fmt.Errorf("connect failure: %s %s", e.Reason.String(), e.Message))
	case *events.StreamReplaced:
		return disconnected(domain.CauseStreamConflict, errors.New("stream replaced by another session"))
	case *events.TemporaryBan:
		return disconnected(domain.CauseUnknown, fmt.Errorf("temporary ban: %s", e.String()))
	case *events.ClientOutdated:
		return disconnected(domain.CauseUnknown, errors.New("client outdated"))
	case *events.Disconnected:
		return disconnected(domain.CauseUnknown, errors.New("websocket disconnected"))
	}
	return reaction{}
}

// classifyQR maps pairing channel items. A nil result means nothing to report.
func classifyQR(item whatsmeow.QRChannelItem) *session.Event {
	switch item.Event {
	case whatsmeow.QRChannelEventCode:
		return &session.Event{Kind: session.EventChallenge, Challenge: item.Code}
	case whatsmeow.QRChannelSuccess.Event:
		return nil
	case whatsmeow.QRChannelTimeout.Event:
		return &session.Event{Kind: session.EventDisconnected, Cause: domain.CauseUnknown, Err: errors.New("pairing timed out")}
	case whatsmeow.QRChannelEventError:
		return &session.Event{Kind: session.EventDisconnected, Cause: domain.CauseUnknown, Err: fmt.Errorf("pairing failed: %w", item.Error)}
	default:
		return &session.Event{Kind: session.EventDisconnected, Cause: domain.CauseUnknown, Err: fmt.Errorf("pairing failed: %s", item.Event)}
	}
}
