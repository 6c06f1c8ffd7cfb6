package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ditechted/healthlink/internal/config"
)

// Sender delivers transactional email over SMTP with simple template
// substitution.
type Sender struct {
	cfg config.SMTP
}

func NewSender(cfg config.SMTP) *Sender { return &Sender{cfg: cfg} }

func (s *Sender) send(to, subject, html string) error {
	addr := s.cfg.Host + ":" + s.cfg.Port

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(html)

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func (s *Sender) SendVerification(to, code string) error {
	body := strings.ReplaceAll(verificationTemplate, "{code}", code)
	return s.send(to, "Verify your email address", body)
}

func (s *Sender) SendWelcome(to, firstName string) error {
	body := strings.ReplaceAll(welcomeTemplate, "{firstName}", firstName)
	return s.send(to, "Welcome to HealthLink", body)
}

func (s *Sender) SendPasswordReset(to, resetURL string) error {
	body := strings.ReplaceAll(resetRequestTemplate, "{resetURL}", resetURL)
	return s.send(to, "Password Reset Request", body)
}

func (s *Sender) SendPasswordResetSuccess(to string) error {
	return s.send(to, "Password Reset Successful", resetSuccessTemplate)
}
