package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSESMailer_Send(t *testing.T) {
	client := &fakeSES{}
	m := newSESMailer(client, "no-reply@congresy.local", "Congresy", discard())

	err := m.Send(context.Background(), "bob@example.com", "Hi", "<p>hi</p>", "")
	require.NoError(t, err)

	require.NotNil(t, client.input)
	assert.Equal(t, `"Congresy" <no-reply@congresy.local>`, aws.ToString(client.input.Source))
	assert.Equal(t, []string{"bob@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Hi", aws.ToString(client.input.Message.Subject.Data))
	require.NotNil(t, client.input.Message.Body.Html)
	assert.Nil(t, client.input.Message.Body.Text)
}

func TestSESMailer_SourceWithoutName(t *testing.T) {
	client := &fakeSES{}
	m := newSESMailer(client, "no-reply@congresy.local", "", discard())

	require.NoError(t, m.Send(context.Background(), "bob@example.com", "Hi", "", "hi"))
	assert.Equal(t, "no-reply@congresy.local", aws.ToString(client.input.Source))
	assert.Nil(t, client.input.Message.Body.Html)
	require.NotNil(t, client.input.Message.Body.Text)
	assert.Equal(t, "hi", aws.ToString(client.input.Message.Body.Text.Data))
}

func TestSESMailer_Send_error(t *testing.T) {
	m := newSESMailer(&fakeSES{err: errors.New("throttled")}, "a@b.c", "", discard())

	err := m.Send(context.Background(), "bob@example.com", "Hi", "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(MailerConfig{Provider: "noop"}, discard())
	require.NoError(t, err)
	assert.IsType(t, &noopMailer{}, m)
	require.NoError(t, m.Send(context.Background(), "x@y.z", "s", "", ""))

	m, err = NewMailer(MailerConfig{Provider: "carrier-pigeon"}, discard())
	require.NoError(t, err)
	assert.IsType(t, &noopMailer{}, m)

	_, err = NewMailer(MailerConfig{Provider: "ses"}, discard())
	assert.Error(t, err)

	m, err = NewMailer(MailerConfig{Provider: "ses", SES: SESConfig{Region: "eu-west-1"}}, discard())
	require.NoError(t, err)
	assert.IsType(t, &sesMailer{}, m)
}
