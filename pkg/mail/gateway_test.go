package mail

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	sent []Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestGatewayRendersConfirmationTemplate(t *testing.T) {
	mailer := &captureMailer{}
	gateway := NewGateway(mailer)

	err := gateway.SendTemplate(context.Background(), TemplateConfirmation, "student@example.com", TemplateFields{
		UserID:    "user-1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Token:     "tok",
		Link:      "https://study.example.com/register/confirm?token=tok",
	})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	require.Equal(t, []string{"student@example.com"}, msg.To)
	require.Contains(t, msg.Body, "Hi Ada Lovelace")
	require.Contains(t, msg.Body, "register/confirm?token=tok")
	require.Contains(t, msg.Body, "used once")
	require.NotEmpty(t, msg.Subject)
}

func TestGatewaySubjectOverride(t *testing.T) {
	mailer := &captureMailer{}
	gateway := NewGateway(mailer)

	err := gateway.SendTemplate(context.Background(), TemplateConfirmationResend, "student@example.com", TemplateFields{
		Subject: "Custom subject",
		Link:    "https://study.example.com/register/confirm?token=tok",
	})
	require.NoError(t, err)
	require.Equal(t, "Custom subject", mailer.sent[0].Subject)
}

func TestGatewayRejectsUnknownTemplate(t *testing.T) {
	gateway := NewGateway(&captureMailer{})

	err := gateway.SendTemplate(context.Background(), "password_reset_v2", "student@example.com", TemplateFields{})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "unknown template"))
}

func TestGatewayPropagatesSendFailure(t *testing.T) {
	boom := errors.New("smtp down")
	gateway := NewGateway(&captureMailer{err: boom})

	err := gateway.SendTemplate(context.Background(), TemplateConfirmation, "student@example.com", TemplateFields{})
	require.ErrorIs(t, err, boom)
}
