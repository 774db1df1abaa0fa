package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
)

const charset = "UTF-8"

// SESNotifier delivers notifications through Amazon SES.
type SESNotifier struct {
	client   sesiface.SESAPI
	from     string
	renderer *Renderer
	logger   *slog.Logger
}

func NewSESNotifier(client sesiface.SESAPI, from string, renderer *Renderer, logger *slog.Logger) *SESNotifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SESNotifier{
		client:   client,
		from:     from,
		renderer: renderer,
		logger:   logger.With("component", "ses_notifier"),
	}
}

// NewSESClient opens an SES client for region using the default AWS
// credential chain.
func NewSESClient(region string) (*ses.SES, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return ses.New(sess), nil
}

func (n *SESNotifier) SendVerification(ctx context.Context, email, token string) error {
	msg, err := n.renderer.Verification(email, token)
	if err != nil {
		return err
	}
	return n.send(ctx, msg)
}

func (n *SESNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	msg, err := n.renderer.PasswordReset(email, token)
	if err != nil {
		return err
	}
	return n.send(ctx, msg)
}

func (n *SESNotifier) SendAccountLocked(ctx context.Context, email string, lockedUntil time.Time) error {
	msg, err := n.renderer.AccountLocked(email, lockedUntil)
	if err != nil {
		return err
	}
	return n.send(ctx, msg)
}

func (n *SESNotifier) SendPasswordChanged(ctx context.Context, email string) error {
	msg, err := n.renderer.PasswordChanged(email)
	if err != nil {
		return err
	}
	return n.send(ctx, msg)
}

func (n *SESNotifier) send(ctx context.Context, msg Message) error {
	out, err := n.client.SendEmailWithContext(ctx, &ses.SendEmailInput{
		Source: aws.String(n.from),
		Destination: &ses.Destination{
			ToAddresses: []*string{aws.String(msg.To)},
		},
		Message: &ses.Message{
			Subject: &ses.Content{Charset: aws.String(charset), Data: aws.String(msg.Subject)},
			Body: &ses.Body{
				Html: &ses.Content{Charset: aws.String(charset), Data: aws.String(msg.HTML)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email %q: %w", msg.Subject, err)
	}

	n.logger.InfoContext(ctx, "email sent", "subject", msg.Subject, "message_id", aws.StringValue(out.MessageId))
	return nil
}
