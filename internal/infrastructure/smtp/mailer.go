package smtp

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/clearflow/clearflow-api/internal/config"
)

// Mailer delivers one-time codes by email.
type Mailer interface {
	SendOTP(to, code string, ttl time.Duration) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) SendOTP(to, code string, ttl time.Duration) error {
	subject := "Your ClearFlow verification code"
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minute(s).", code, int(ttl.Minutes()))
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}
