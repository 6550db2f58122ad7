package mail

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/Momo-444/toitureai-api/internal/config"
)

// Sender delivers jobs over SMTP (SendGrid relay in production).
type Sender struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromEmail string
	FromName  string

	send func(m *gomail.Message) error
}

func NewSender(cfg config.SMTPConfig) *Sender {
	s := &Sender{
		Host:      cfg.Host,
		Port:      cfg.Port,
		User:      cfg.User,
		Password:  cfg.Password,
		FromEmail: cfg.FromEmail,
		FromName:  cfg.FromName,
	}
	s.send = func(m *gomail.Message) error {
		return gomail.NewDialer(s.Host, s.Port, s.User, s.Password).DialAndSend(m)
	}
	return s
}

func (s *Sender) Deliver(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(job.To) == 0 {
		return fmt.Errorf("email %q has no recipient", job.Subject)
	}

	if err := s.send(s.buildMessage(job)); err != nil {
		return fmt.Errorf("smtp send %q: %w", job.Subject, err)
	}
	return nil
}

func (s *Sender) buildMessage(job Job) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.FromEmail, s.FromName)
	m.SetHeader("To", job.To...)
	m.SetHeader("Subject", job.Subject)

	if job.Text != "" {
		m.SetBody("text/plain", job.Text)
		m.AddAlternative("text/html", job.HTML)
	} else {
		m.SetBody("text/html", job.HTML)
	}

	for _, a := range job.Attachments {
		content := a.Content
		m.Attach(a.Name,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
		)
	}
	return m
}
