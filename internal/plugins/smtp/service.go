package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strings"
	"time"
)

// ErrNotConfigured is returned by SendMail when no SMTP host or sender
// address is set.
var ErrNotConfigured = errors.New("smtp is not configured")

// MailService is the interface other plugins use to send email.
// auth uses this for password reset messages.
type MailService interface {
	SendMail(ctx context.Context, to []string, subject, body string) error
	IsConfigured(ctx context.Context) bool
}

// smtpService implements MailService with fixed settings.
type smtpService struct {
	settings Settings
	now      func() time.Time
}

// NewMailService creates a mail service. Empty port, sender name and
// encryption fall back to 587, "Cloud System" and STARTTLS.
func NewMailService(settings Settings) MailService {
	if settings.Port <= 0 {
		settings.Port = 587
	}
	if settings.FromName == "" {
		settings.FromName = "Cloud System"
	}
	if settings.Encryption == "" {
		settings.Encryption = "starttls"
	}
	if settings.From == "" {
		settings.From = settings.Username
	}
	return &smtpService{settings: settings, now: time.Now}
}

// IsConfigured returns true if a host and sender address are set.
func (s *smtpService) IsConfigured(ctx context.Context) bool {
	return s.settings.Host != "" && s.settings.From != ""
}

// SendMail sends a plain-text email.
func (s *smtpService) SendMail(ctx context.Context, to []string, subject, body string) error {
	if !s.IsConfigured(ctx) {
		return ErrNotConfigured
	}
	if len(to) == 0 {
		return errors.New("smtp: no recipients")
	}

	from := mail.Address{Name: s.settings.FromName, Address: s.settings.From}
	msg := buildMessage(from, to, subject, body, s.now())
	addr := net.JoinHostPort(s.settings.Host, fmt.Sprintf("%d", s.settings.Port))
	host, user, pass := s.settings.Host, s.settings.Username, s.settings.Password

	var err error
	switch s.settings.Encryption {
	case "ssl":
		err = s.sendSSL(addr, host, user, pass, from.Address, to, msg)
	case "none":
		err = s.sendPlain(addr, host, user, pass, from.Address, to, msg)
	default: // "starttls"
		err = s.sendStartTLS(addr, host, user, pass, from.Address, to, msg)
	}
	if err != nil {
		return err
	}

	slog.Debug("mail sent",
		slog.String("subject", subject),
		slog.Int("recipients", len(to)),
	)
	return nil
}

// buildMessage renders an RFC 2822 plain-text message. Header values are
// stripped of CR and LF so a subject cannot inject extra headers.
func buildMessage(from mail.Address, to []string, subject, body string, at time.Time) string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from.String()))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", headerValue(strings.Join(to, ", "))))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", headerValue(subject)))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", at.UTC().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}

func headerValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

// sendStartTLS sends email using STARTTLS (port 587 typical).
func (s *smtpService) sendStartTLS(addr, host, username, password, from string, to []string, msg string) error {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("starting TLS: %w", err)
	}

	if username != "" {
		auth := gosmtp.PlainAuth("", username, password, host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	return s.sendMessage(client, from, to, msg)
}

// sendSSL sends email using implicit SSL/TLS (port 465 typical).
func (s *smtpService) sendSSL(addr, host, username, password, from string, to []string, msg string) error {
	tlsConfig := &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 10 * time.Second}, "tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("connecting to %s (SSL): %w", addr, err)
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	if username != "" {
		auth := gosmtp.PlainAuth("", username, password, host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	return s.sendMessage(client, from, to, msg)
}

// sendPlain sends email without encryption.
func (s *smtpService) sendPlain(addr, host, username, password, from string, to []string, msg string) error {
	var auth gosmtp.Auth
	if username != "" {
		auth = gosmtp.PlainAuth("", username, password, host)
	}
	if err := gosmtp.SendMail(addr, auth, from, to, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}

// sendMessage handles MAIL FROM, RCPT TO, DATA for an existing SMTP client.
func (s *smtpService) sendMessage(client *gosmtp.Client, from string, to []string, msg string) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", recipient, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}
