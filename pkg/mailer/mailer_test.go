package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"elevtinget/backend/config"
)

func TestSMTPSender_Disabled(t *testing.T) {
	s := NewSMTPSender(&config.MailConfig{Enabled: false}, zap.NewNop())

	res, err := s.Send(context.Background(), &Message{To: "ola@elev.no", Subject: "x"})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestSMTPSender_AllowList(t *testing.T) {
	s := NewSMTPSender(&config.MailConfig{
		Enabled:         true,
		AllowRecipients: []string{"Test@Elev.no"},
	}, zap.NewNop())

	res, err := s.Send(context.Background(), &Message{To: "someone@elev.no", Subject: "x"})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "recipient not allowed", res.Reason)
}

func TestSMTPSender_BuildMsg(t *testing.T) {
	s := NewSMTPSender(&config.MailConfig{
		Enabled:  true,
		From:     "konkom@elev.no",
		FromName: "Kontrollkomitéen",
	}, zap.NewNop())
	s.logo = []byte{0x89, 0x50, 0x4e, 0x47}

	m, err := s.buildMsg(&Message{
		To:      "ola@elev.no",
		Subject: "Permisjonssøknad Godkjent",
		Text:    "Hei Ola",
		HTML:    `<p>Hei Ola</p><img src="cid:logo-image">`,
		Attachments: []Attachment{
			{Filename: "permisjon.ics", ContentType: "text/calendar", Content: []byte("BEGIN:VCALENDAR")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Permisjonssøknad Godkjent"}, m.GetGenHeader(mail.HeaderSubject))
	assert.Len(t, m.GetAttachments(), 1)
	assert.Len(t, m.GetEmbeds(), 1)
}

func TestSMTPSender_BuildMsg_InvalidRecipient(t *testing.T) {
	s := NewSMTPSender(&config.MailConfig{Enabled: true, From: "konkom@elev.no"}, zap.NewNop())

	_, err := s.buildMsg(&Message{To: "not an address", Subject: "x"})
	assert.Error(t, err)
}
