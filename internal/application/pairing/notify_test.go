package pairing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nexus-wa-bridge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockPresigner struct{ mock.Mock }

func (m *mockPresigner) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func TestSMSNotifier_SendsPresignedLink(t *testing.T) {
	sms := new(mockSMS)
	pre := new(mockPresigner)
	pre.On("PresignedURL", mock.Anything, "pairing/pairing.pdf", 10*time.Minute).
		Return("https://bucket.s3/pairing.pdf?sig=1", nil)
	sms.On("SendSMS", mock.Anything, "+5511900000000", mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "https://bucket.s3/pairing.pdf?sig=1") && strings.Contains(msg, "10m0s")
	})).Return(nil)

	n := &SMSNotifier{
		Sender: sms,
		To:     "+5511900000000",
		Link:   &DocumentLink{Presigner: pre, Key: "pairing/pairing.pdf", TTL: 10 * time.Minute},
	}
	err := n.Notify(context.Background(), domain.PairingChallenge{ID: "01J"})

	assert.NoError(t, err)
	sms.AssertExpectations(t)
	pre.AssertExpectations(t)
}

func TestSMSNotifier_WithoutLink(t *testing.T) {
	sms := new(mockSMS)
	sms.On("SendSMS", mock.Anything, "+5511900000000", mock.AnythingOfType("string")).Return(nil)

	n := &SMSNotifier{Sender: sms, To: "+5511900000000"}
	assert.NoError(t, n.Notify(context.Background(), domain.PairingChallenge{ID: "01J"}))
	sms.AssertExpectations(t)
}

func TestSMSNotifier_PresignFailureSkipsSMS(t *testing.T) {
	sms := new(mockSMS)
	pre := new(mockPresigner)
	pre.On("PresignedURL", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("no credentials"))

	n := &SMSNotifier{Sender: sms, To: "+5511900000000", Link: &DocumentLink{Presigner: pre, Key: "k", TTL: time.Minute}}
	err := n.Notify(context.Background(), domain.PairingChallenge{ID: "01J"})

	assert.ErrorContains(t, err, "presign pairing document")
	sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestEmailNotifier_MentionsChallenge(t *testing.T) {
	mailer := new(mockMailer)
	mailer.On("SendEmail", "ops@example.com", "WhatsApp bridge pairing required", mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "01JCHALLENGE") && strings.Contains(body, "2026-01-02T03:04:05Z")
	})).Return(nil)

	n := &EmailNotifier{Mailer: mailer, To: "ops@example.com"}
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := n.Notify(context.Background(), domain.PairingChallenge{ID: "01JCHALLENGE", IssuedAt: issued})

	assert.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestNotifiers_ContinuePastFailure(t *testing.T) {
	sms := new(mockSMS)
	sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("throttled"))
	mailer := new(mockMailer)
	mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	ns := Notifiers{
		&SMSNotifier{Sender: sms, To: "+5511900000000"},
		&EmailNotifier{Mailer: mailer, To: "ops@example.com"},
	}
	err := ns.Notify(context.Background(), domain.PairingChallenge{ID: "01J"})

	assert.ErrorContains(t, err, "throttled")
	mailer.AssertExpectations(t)
}
