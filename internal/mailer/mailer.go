// Package mailer sends notification email.
package mailer

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/config"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/logger"
)

var ErrNoRecipients = errors.New("message has no recipients")

// Message is a single email. HTML is optional and sent as an alternative
// part to Text.
type Message struct {
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer when a host is configured and a LogMailer otherwise.
func New(cfg config.MailConfig) (Mailer, error) {
	if !cfg.Enabled() {
		logger.Warnf("EMAIL_HOST not set; notification mail will only be logged")
		return LogMailer{}, nil
	}
	return NewSMTPMailer(cfg)
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	logger.With("to", strings.Join(msg.To, ","), "subject", msg.Subject).Info("mail not sent (no SMTP host)")
	return nil
}

// Recorder keeps sent messages in memory. Err, when set, is returned by Send.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}
