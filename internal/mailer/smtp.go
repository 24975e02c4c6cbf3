package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/config"
)

const defaultTimeout = 15 * time.Second

// SMTPMailer sends through an SMTP relay. A connection is opened per message.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	if cfg.From == "" {
		return nil, fmt.Errorf("mailer: EMAIL_FROM or EMAIL_USER is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(timeout),
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Pass),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

func (s *SMTPMailer) build(msg Message) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipients
	}
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("reply-to: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	m, err := s.build(msg)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mailer: send %q: %w", msg.Subject, err)
	}
	return nil
}
