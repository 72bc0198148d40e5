package pairing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nexus-wa-bridge/internal/domain"
)

type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Mailer sends a plain-text email.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// Presigner hands out temporary download links for mirrored artifacts.
type Presigner interface {
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// DocumentLink points a notification at the mirrored printable document.
type DocumentLink struct {
	Presigner Presigner
	Key       string // object key of the mirrored document
	TTL       time.Duration
}

func (l *DocumentLink) message(ctx context.Context) (string, error) {
	if l == nil || l.Presigner == nil {
		return "WhatsApp bridge needs to be paired again. Scan the QR code on the bridge settings page.", nil
	}
	url, err := l.Presigner.PresignedURL(ctx, l.Key, l.TTL)
	if err != nil {
		return "", fmt.Errorf("presign pairing document: %w", err)
	}
	return fmt.Sprintf("WhatsApp bridge needs to be paired again. Open %s and scan the QR code (valid %s).", url, l.TTL), nil
}

// SMSNotifier texts the operator when a challenge is waiting. With a Link the
// message carries a link to the printable document.
type SMSNotifier struct {
	Sender SMSSender
	To     string
	Link   *DocumentLink
}

func (n *SMSNotifier) Notify(ctx context.Context, ch domain.PairingChallenge) error {
	msg, err := n.Link.message(ctx)
	if err != nil {
		return err
	}
	if err := n.Sender.SendSMS(ctx, n.To, msg); err != nil {
		return fmt.Errorf("send pairing sms for %s: %w", ch.ID, err)
	}
	return nil
}

// EmailNotifier mails the operator when a challenge is waiting.
type EmailNotifier struct {
	Mailer Mailer
	To     string
	Link   *DocumentLink
}

func (n *EmailNotifier) Notify(ctx context.Context, ch domain.PairingChallenge) error {
	msg, err := n.Link.message(ctx)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("%s\r\n\r\nChallenge %s issued at %s.", msg, ch.ID, ch.IssuedAt.UTC().Format(time.RFC3339))
	if err := n.Mailer.SendEmail(n.To, "WhatsApp bridge pairing required", body); err != nil {
		return fmt.Errorf("send pairing email for %s: %w", ch.ID, err)
	}
	return nil
}

// Notifiers fans a challenge out to every notifier. One failing channel does not
// stop the others.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, ch domain.PairingChallenge) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, ch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
