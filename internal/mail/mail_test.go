package mail

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSender_Send(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example", Port: 587, From: "no-reply@finestafrica.ai", Password: "pw"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.NotNil(t, a)
		return nil
	}

	err := s.Send(context.Background(), Message{
		To:      "owner@example.com",
		Subject: "Reset\r\nBcc: victim@example.com",
		Body:    "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example:587", gotAddr)
	assert.Equal(t, "no-reply@finestafrica.ai", gotFrom)
	assert.Equal(t, []string{"owner@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: ResetBcc: victim@example.com\r\n")
	assert.NotContains(t, string(gotMsg), "\r\nBcc:")
}

func TestSMTPSender_SendError(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example", Port: 25, From: "a@b.c"})
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }

	assert.Error(t, s.Send(context.Background(), Message{To: "x@y.z"}))
}

func TestOutbox(t *testing.T) {
	o := &Outbox{}
	require.NoError(t, o.Send(context.Background(), Message{To: "a@b.c", Subject: "s"}))
	assert.Len(t, o.Messages(), 1)
	assert.NoError(t, NewLogSender(nil).Send(context.Background(), Message{To: "a@b.c"}))
}
