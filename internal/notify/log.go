package notify

import (
	"context"
	"log/slog"
	"time"
)

// LogNotifier renders notifications and writes them to the log instead of
// sending them. Action links are logged at debug level so that local
// signup and reset flows can be completed; never use it in production.
type LogNotifier struct {
	renderer *Renderer
	logger   *slog.Logger
}

func NewLogNotifier(renderer *Renderer, logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogNotifier{renderer: renderer, logger: logger.With("component", "log_notifier")}
}

func (n *LogNotifier) SendVerification(ctx context.Context, email, token string) error {
	msg, err := n.renderer.Verification(email, token)
	if err != nil {
		return err
	}
	n.log(ctx, msg, n.renderer.link("/verify-email", token))
	return nil
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	msg, err := n.renderer.PasswordReset(email, token)
	if err != nil {
		return err
	}
	n.log(ctx, msg, n.renderer.link("/reset-password", token))
	return nil
}

func (n *LogNotifier) SendAccountLocked(ctx context.Context, email string, lockedUntil time.Time) error {
	msg, err := n.renderer.AccountLocked(email, lockedUntil)
	if err != nil {
		return err
	}
	n.log(ctx, msg, "")
	return nil
}

func (n *LogNotifier) SendPasswordChanged(ctx context.Context, email string) error {
	msg, err := n.renderer.PasswordChanged(email)
	if err != nil {
		return err
	}
	n.log(ctx, msg, "")
	return nil
}

func (n *LogNotifier) log(ctx context.Context, msg Message, link string) {
	n.logger.InfoContext(ctx, "email not sent, mail driver is log", "subject", msg.Subject)
	if link != "" {
		n.logger.DebugContext(ctx, "email action link", "subject", msg.Subject, "link", link)
	}
}
