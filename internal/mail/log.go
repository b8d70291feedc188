package mail

import (
	"context"
	"log/slog"
	"sync"
)

// LogNotifier renders messages and writes them to the log instead of delivering
type LogNotifier struct {
	renderer *Renderer
	logger   *slog.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLogNotifier creates a notifier for development
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{renderer: NewRenderer(), logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	html, err := n.renderer.Render(msg)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.sent = append(n.sent, msg)
	n.mu.Unlock()

	n.logger.InfoContext(ctx, "Email rendered (log delivery)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("template", msg.Template),
		slog.Int("body_size", len(html)),
	)
	return nil
}

// Sent returns the messages accepted so far
func (n *LogNotifier) Sent() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Message, len(n.sent))
	copy(out, n.sent)
	return out
}
