package services

import (
	"fmt"
	"html"
	"net/smtp"

	"github.com/dimitrije/lectern-api/internal/config"
)

type EmailService struct {
	cfg config.SMTPConfig
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

func (s *EmailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != "" && s.cfg.From != ""
}

func (s *EmailService) Send(to, subject, body string) error {
	if !s.IsConfigured() {
		return nil
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

// SendTeacherWelcome tells a newly provisioned teacher where to sign in.
// The password is never mailed.
func (s *EmailService) SendTeacherWelcome(to, name, loginURL string) error {
	subject := "Your teacher account is ready"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Welcome, %s</h2>
			<p>An administrator created a teacher account for <strong>%s</strong>.</p>
			<p><a href="%s">Sign in</a> to start publishing lessons.</p>
		</body>
		</html>
	`, html.EscapeString(name), html.EscapeString(to), loginURL)

	return s.Send(to, subject, body)
}
