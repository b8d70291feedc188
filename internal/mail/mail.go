// Package mail renders and delivers transactional e-mail.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoRecipient is returned when a message has no To address
var ErrNoRecipient = errors.New("mail recipient is required")

// Message is one outgoing e-mail. Template takes precedence over Text.
type Message struct {
	To       string
	Subject  string
	Template string
	Text     string
	Context  map[string]any
}

// Notifier delivers messages
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Address formats a display name and e-mail as "Name <email>"
func Address(name, email string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if m.Template == "" && m.Text == "" {
		return fmt.Errorf("mail to %s has neither template nor text body", m.To)
	}
	return nil
}
