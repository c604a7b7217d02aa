// internal/service/email/service.go
package email

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// Sender delivers a single HTML email.
type Sender interface {
	Send(to, subject, bodyHTML string) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	FromName string
	// Secure selects implicit TLS (port 465) over STARTTLS (port 587).
	Secure bool
}

// Configured reports whether enough is set to attempt delivery.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Port != "" && c.Username != ""
}

// EmailSender handles outgoing emails via SMTP.
type EmailSender struct {
	cfg SMTPConfig
}

func NewEmailSender(cfg SMTPConfig) *EmailSender {
	if cfg.FromName == "" {
		cfg.FromName = "PaySandbox"
	}
	return &EmailSender{cfg: cfg}
}

// Send sends an email with a subject and body (HTML supported).
func (e *EmailSender) Send(to, subject, bodyHTML string) error {
	msg := e.message(to, subject, bodyHTML)
	addr := e.cfg.Host + ":" + e.cfg.Port
	auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)

	if !e.cfg.Secure {
		if err := smtp.SendMail(addr, auth, e.cfg.Username, []string{to}, msg); err != nil {
			return fmt.Errorf("send mail failed: %w", err)
		}
		return nil
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: e.cfg.Host})
	if err != nil {
		return fmt.Errorf("tls dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth failed: %w", err)
	}
	return e.deliver(client, to, msg)
}

func (e *EmailSender) message(to, subject, bodyHTML string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", e.cfg.FromName, e.cfg.Username)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(layout(e.cfg.FromName, bodyHTML))
	return []byte(b.String())
}

func (e *EmailSender) deliver(client *smtp.Client, to string, msg []byte) error {
	if err := client.Mail(e.cfg.Username); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return w.Close()
}

func layout(brand, content string) string {
	return `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8" />
	<title>` + brand + `</title>
	<style>
		body { font-family: Arial, sans-serif; background-color: #f6f8fa; padding: 30px; }
		.container { max-width: 600px; margin: auto; background: #fff; border-radius: 10px; }
		.header { background: #0b7a5a; color: white; text-align: center; padding: 20px; font-size: 20px; }
		.body { padding: 25px; color: #333; line-height: 1.6; }
		.footer { background: #f1f1f1; color: #555; text-align: center; padding: 12px; font-size: 12px; }
	</style>
</head>
<body>
<div class="container">
	<div class="header">` + brand + `</div>
	<div class="body">` + strings.TrimSpace(content) + `</div>
	<div class="footer">Sandbox notification. No real money was moved.</div>
</div>
</body>
</html>`
}
