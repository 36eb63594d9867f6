package config

import (
	"crypto/tls"
	"fmt"
	"time"

	mail "github.com/go-mail/mail/v2"
)

// SMTPMailer sends HTML mail through the configured SMTP relay.
type SMTPMailer struct {
	host          string
	port          int
	user          string
	pass          string
	from          string // e.g. "Taskboard <no-reply@your.org>"
	skipTLSVerify bool
	timeout       time.Duration
}

func NewSMTPMailer(s *Settings) *SMTPMailer {
	port := s.SMTPPort
	if port == 0 {
		port = 587
	}
	return &SMTPMailer{
		host:          s.SMTPHost,
		port:          port,
		user:          s.SMTPUser,
		pass:          s.SMTPPass,
		from:          s.SMTPFrom,
		skipTLSVerify: s.SMTPSkipTLSVerify,
		timeout:       s.EmailTimeout,
	}
}

func (m *SMTPMailer) Send(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if m.host == "" || m.from == "" {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	d := mail.NewDialer(m.host, m.port, m.user, m.pass)
	if m.timeout > 0 {
		d.Timeout = m.timeout
	}

	// STARTTLS is mandatory on 587 (Gmail/Office365).
	d.StartTLSPolicy = mail.MandatoryStartTLS

	// ServerName must match the relay hostname; skipping verification is for dev only.
	d.TLSConfig = &tls.Config{
		ServerName:         m.host,
		InsecureSkipVerify: m.skipTLSVerify,
	}

	return d.DialAndSend(msg)
}
