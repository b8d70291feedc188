package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v3"
)

// ResendConfig holds Resend delivery settings
type ResendConfig struct {
	APIKey string
	From   string
}

// ResendNotifier sends rendered messages through the Resend API
type ResendNotifier struct {
	client   *resend.Client
	from     string
	renderer *Renderer
	logger   *slog.Logger
}

// NewResendNotifier creates a Resend-backed notifier
func NewResendNotifier(cfg ResendConfig, logger *slog.Logger) *ResendNotifier {
	return &ResendNotifier{
		client:   resend.NewClient(cfg.APIKey),
		from:     cfg.From,
		renderer: NewRenderer(),
		logger:   logger,
	}
}

func (n *ResendNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	html, err := n.renderer.Render(msg)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    html,
	}
	if msg.Template == "" {
		params.Text = msg.Text
	}

	sent, err := n.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via resend: %w", err)
	}

	n.logger.Info("Email sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("message_id", sent.Id),
	)
	return nil
}
