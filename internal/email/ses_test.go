package email

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	sent []*ses.SendEmailInput
	err  error
}

func (f *fakeSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, in)
	return &ses.SendEmailOutput{}, nil
}

func TestSendPasswordResetEmail(t *testing.T) {
	fake := &fakeSES{}
	svc := newEmailService(fake, "noreply@contentanonymity.com", "ContentAnonymity", "https://contentanonymity.com")

	require.NoError(t, svc.SendPasswordResetEmail(context.Background(), "user@example.com", "abc123"))
	require.Len(t, fake.sent, 1)

	in := fake.sent[0]
	assert.Equal(t, "ContentAnonymity <noreply@contentanonymity.com>", *in.Source)
	assert.Equal(t, []string{"user@example.com"}, in.Destination.ToAddresses)
	assert.Contains(t, *in.Message.Body.Html.Data, "https://contentanonymity.com/reset-password?token=abc123")
	assert.Contains(t, *in.Message.Body.Text.Data, "https://contentanonymity.com/reset-password?token=abc123")
}

func TestSendNewsletterConfirmation(t *testing.T) {
	fake := &fakeSES{}
	svc := newEmailService(fake, "news@contentanonymity.com", "", "https://contentanonymity.com")

	require.NoError(t, svc.SendNewsletterConfirmation(context.Background(), "fan@example.com", "confirm1", "unsub1"))
	require.Len(t, fake.sent, 1)

	in := fake.sent[0]
	assert.Equal(t, "news@contentanonymity.com", *in.Source)
	assert.Contains(t, *in.Message.Body.Text.Data, "/newsletter/confirm?token=confirm1")
	assert.Contains(t, *in.Message.Body.Text.Data, "/newsletter/unsubscribe?token=unsub1")
}

func TestSendFailureIsWrapped(t *testing.T) {
	svc := newEmailService(&fakeSES{err: errors.New("throttled")}, "a@b.c", "", "https://x")
	err := svc.SendPasswordResetEmail(context.Background(), "u@example.com", "t")
	assert.ErrorContains(t, err, "failed to send password reset email")
}

func TestNewSenderWithoutFromAddressLogs(t *testing.T) {
	s := NewSender("us-east-1", "", "", "https://x")
	assert.IsType(t, LogSender{}, s)
	assert.NoError(t, s.SendPasswordResetEmail(context.Background(), "u@example.com", "t"))
	assert.NoError(t, s.SendNewsletterConfirmation(context.Background(), "u@example.com", "c", "u"))
}
