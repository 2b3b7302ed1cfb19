package email

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/telemetry"
	"go.uber.org/zap"
)

// Sender delivers the transactional emails the API sends
type Sender interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, resetToken string) error
	SendNewsletterConfirmation(ctx context.Context, toEmail, confirmToken, unsubscribeToken string) error
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailService handles sending emails via AWS SES
type EmailService struct {
	client    sesAPI
	fromEmail string
	fromName  string
	baseURL   string
}

// NewEmailService creates a new email service using AWS SES
func NewEmailService(region, fromEmail, fromName, baseURL string) (*EmailService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithHTTPClient(&http.Client{Transport: telemetry.NewInstrumentedTransport()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newEmailService(ses.NewFromConfig(cfg), fromEmail, fromName, baseURL), nil
}

func newEmailService(client sesAPI, fromEmail, fromName, baseURL string) *EmailService {
	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		baseURL:   baseURL,
	}
}

// NewSender returns an SES sender when a from address is configured and a
// sender that only logs otherwise
func NewSender(region, fromEmail, fromName, baseURL string) Sender {
	if fromEmail == "" {
		logger.Log.Info("SES_FROM_EMAIL not set, emails will be logged and skipped")
		return LogSender{}
	}
	svc, err := NewEmailService(region, fromEmail, fromName, baseURL)
	if err != nil {
		logger.Log.Warn("Failed to initialize SES, emails will be logged and skipped", zap.Error(err))
		return LogSender{}
	}
	return svc
}

// SendPasswordResetEmail sends a password reset email with the reset token
func (e *EmailService) SendPasswordResetEmail(ctx context.Context, toEmail, resetToken string) error {
	// The web app reads the token and calls POST /api/v1/auth/password/reset
	resetURL := e.link("/reset-password", url.Values{"token": {resetToken}})

	msg := message{
		Subject: "Reset your ContentAnonymity password",
		Heading: "Reset your password",
		Lines: []string{
			"You requested to reset the password for your ContentAnonymity account.",
			"Click the button below to choose a new one. This link will expire in 1 hour.",
		},
		ButtonLabel: "Reset Password",
		ButtonURL:   resetURL,
		Footer:      "If you didn't request this password reset, you can safely ignore this email.",
	}
	if err := e.send(ctx, toEmail, msg); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

// SendNewsletterConfirmation asks a new subscriber to confirm their address
func (e *EmailService) SendNewsletterConfirmation(ctx context.Context, toEmail, confirmToken, unsubscribeToken string) error {
	confirmURL := e.link("/newsletter/confirm", url.Values{"token": {confirmToken}})
	unsubscribeURL := e.link("/newsletter/unsubscribe", url.Values{"token": {unsubscribeToken}})

	msg := message{
		Subject: "Confirm your ContentAnonymity newsletter subscription",
		Heading: "One more step",
		Lines: []string{
			"Thanks for subscribing to the ContentAnonymity newsletter.",
			"Confirm your email address to start receiving faceless creator guides, tools and templates.",
		},
		ButtonLabel: "Confirm Subscription",
		ButtonURL:   confirmURL,
		Footer:      "Didn't sign up? Ignore this email or unsubscribe here: " + unsubscribeURL,
	}
	if err := e.send(ctx, toEmail, msg); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	return nil
}

func (e *EmailService) link(path string, q url.Values) string {
	return e.baseURL + path + "?" + q.Encode()
}

func (e *EmailService) send(ctx context.Context, toEmail string, msg message) error {
	from := e.fromEmail
	if e.fromName != "" {
		from = fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)
	}

	htmlBody, err := msg.html()
	if err != nil {
		return err
	}

	input := &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(msg.text()),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	ctx, span := telemetry.TraceExternalCall(ctx, "ses", "SendEmail", "")
	_, err = e.client.SendEmail(ctx, input)
	telemetry.EndExternalCall(span, err)
	return err
}

// LogSender stands in for SES in development. It logs what would be sent.
type LogSender struct{}

func (LogSender) SendPasswordResetEmail(ctx context.Context, toEmail, resetToken string) error {
	logger.Log.Info("Email skipped: password reset", zap.String("to", toEmail))
	return nil
}

func (LogSender) SendNewsletterConfirmation(ctx context.Context, toEmail, confirmToken, unsubscribeToken string) error {
	logger.Log.Info("Email skipped: newsletter confirmation", zap.String("to", toEmail))
	return nil
}

var (
	_ Sender = (*EmailService)(nil)
	_ Sender = LogSender{}
)
