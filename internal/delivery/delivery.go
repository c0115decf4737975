// Package delivery hands rendered reports to people: printed to a writer
// or mailed through AWS SES.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Message is one outgoing report email.
type Message struct {
	To      []string
	From    string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a message and returns the provider's message ID.
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("no recipients configured")

// ConsoleSender prints messages instead of sending them. It backs
// --dry-run and runs without email configuration.
type ConsoleSender struct {
	W io.Writer
}

// Send writes the plain-text form of msg.
func (c *ConsoleSender) Send(_ context.Context, msg *Message) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.To, ", "))
	if msg.From != "" {
		fmt.Fprintf(&b, "From: %s\n", msg.From)
	}
	fmt.Fprintf(&b, "Subject: %s\n\n", msg.Subject)
	b.WriteString(msg.Text)
	if !strings.HasSuffix(msg.Text, "\n") {
		b.WriteString("\n")
	}
	if _, err := io.WriteString(c.W, b.String()); err != nil {
		return "", err
	}
	return "console", nil
}
