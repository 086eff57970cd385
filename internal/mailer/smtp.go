package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"sort"
	"strings"
	"time"
)

type SMTPMailer struct {
	Host      string
	Port      int
	Username  string
	Password  string
	TLSConfig *tls.Config
	Timeout   time.Duration
}

func (m *SMTPMailer) Provider() string { return "smtp" }

func (m *SMTPMailer) tlsConfig() *tls.Config {
	if m.TLSConfig != nil {
		return m.TLSConfig
	}
	return &tls.Config{ServerName: m.Host}
}

func (m *SMTPMailer) auth() smtp.Auth {
	if m.Username == "" {
		return nil
	}
	return smtp.PlainAuth("", m.Username, m.Password, m.Host)
}

// Send uses implicit TLS on 465 and STARTTLS (when offered) elsewhere.
func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if m.Host == "" || len(email.To) == 0 {
		return ErrNotConfigured
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	addr := net.JoinHostPort(m.Host, fmt.Sprint(m.Port))
	dialer := &net.Dialer{Timeout: timeout}

	var conn net.Conn
	var err error
	if m.Port == 465 {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, m.tlsConfig())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	_ = conn.SetDeadline(time.Now().Add(timeout))

	c, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	if m.Port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(m.tlsConfig()); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if auth := m.auth(); auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(email.From); err != nil {
		return err
	}
	for _, recipient := range email.To {
		if err := c.Rcpt(recipient); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMessage(email)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(email Email) []byte {
	headers := map[string]string{
		"From":         email.From,
		"To":           strings.Join(email.To, ", "),
		"Subject":      mimeSubject(email.Subject),
		"MIME-Version": "1.0",
	}
	if email.HTML != "" {
		headers["Content-Type"] = "text/html; charset=\"UTF-8\""
	} else {
		headers["Content-Type"] = "text/plain; charset=\"UTF-8\""
	}
	for k, v := range email.Headers {
		headers[k] = v
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msg strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&msg, "%s: %s\r\n", k, headers[k])
	}
	msg.WriteString("\r\n")
	if email.HTML != "" {
		msg.WriteString(email.HTML)
	} else {
		msg.WriteString(email.Text)
	}
	return []byte(msg.String())
}

// mimeSubject encodes non-ASCII subjects ("[CRÍTICO] ...") per RFC 2047.
func mimeSubject(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.QEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
