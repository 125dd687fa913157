package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Mailer delivers credential codes over SMTP. With useTLS the connection is
// TLS from the first byte (port 465 style); otherwise smtp.SendMail upgrades
// with STARTTLS when the server offers it.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	useTLS   bool
}

func NewMailer(host, port, username, password, from string, useTLS bool) *Mailer {
	return &Mailer{
		host:     strings.TrimSpace(host),
		port:     strings.TrimSpace(port),
		username: username,
		password: password,
		from:     strings.TrimSpace(from),
		useTLS:   useTLS,
	}
}

func (m *Mailer) SendPasswordReset(ctx context.Context, email, otp string, ttl time.Duration) error {
	body := fmt.Sprintf("Use the following code to reset your POS password: %s\n\nThe code expires in %s. If you did not request this, ignore this email.", otp, formatTTL(ttl))
	return m.send(ctx, email, "Your POS password reset code", body)
}

func (m *Mailer) SendAdminOTP(ctx context.Context, email, otp string, ttl time.Duration) error {
	body := fmt.Sprintf("Your administrator verification code is: %s\n\nIt expires in %s and can be used once to set a new password.", otp, formatTTL(ttl))
	return m.send(ctx, email, "Your POS admin verification code", body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if m == nil {
		return errors.New("mailer not configured")
	}
	if m.host == "" || m.port == "" || m.from == "" {
		return errors.New("mailer missing configuration")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := buildMessage(m.from, to, subject, body)
	addr := net.JoinHostPort(m.host, m.port)
	var auth smtp.Auth
	if m.username != "" || m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if !m.useTLS {
		return smtp.SendMail(addr, auth, m.from, []string{to}, msg)
	}
	return m.sendImplicitTLS(ctx, addr, auth, to, msg)
}

func (m *Mailer) sendImplicitTLS(ctx context.Context, addr string, auth smtp.Auth, to string, msg []byte) error {
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(m.from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	message := strings.Builder{}
	message.WriteString(fmt.Sprintf("From: %s\r\n", from))
	message.WriteString(fmt.Sprintf("To: %s\r\n", to))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	message.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	message.WriteString(body)
	message.WriteString("\r\n")
	return []byte(message.String())
}

func formatTTL(ttl time.Duration) string {
	if ttl <= 0 {
		return "a few minutes"
	}
	if mins := int(ttl.Minutes()); mins >= 1 && ttl%time.Minute == 0 {
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	return ttl.String()
}
