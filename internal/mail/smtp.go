package mail

import (
	"context"
	"fmt"
	"io"

	"github.com/go-gomail/gomail"
	"github.com/google/uuid"

	"certigen/internal/config"
)

// SMTPSender sends mail over SMTP via gomail. One dialer configuration is
// reused for every message; each Send opens its own connection, which matches
// the sequential, rate-limited batch model.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	fromName string
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender builds a sender from static configuration.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		fromName: cfg.FromName,
	}
}

// WithCredentials returns a copy of the sender bound to different SMTP
// credentials. Used for per-request credential overrides in bulk runs.
func (s *SMTPSender) WithCredentials(username, password string) *SMTPSender {
	c := *s
	c.username = username
	c.password = password
	return &c
}

// WithFromName returns a copy of the sender with a different display name.
func (s *SMTPSender) WithFromName(name string) *SMTPSender {
	c := *s
	c.fromName = name
	return &c
}

// Send delivers one message. The returned identifier is the generated
// Message-Id header value.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID := fmt.Sprintf("<%s@certigen>", uuid.NewString())

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.username, s.fromName)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-Id", messageID)
	m.SetBody("text/html", msg.HTMLBody)

	for _, a := range msg.Attachments {
		content := a.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType},
			}))
		}
		m.Attach(a.Filename, settings...)
	}

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	if err := d.DialAndSend(m); err != nil {
		return "", fmt.Errorf("send to %s: %w", msg.To, err)
	}
	return messageID, nil
}
