package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/currency-exchange-api/internal/config"
	"github.com/currency-exchange-api/internal/pkg/id"
)

// Mailer sends plain-text emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type mailer struct {
	addr     string
	host     string
	from     mail.Address
	username string
	password string
	nowF     func() time.Time
}

// NewMailer returns an SMTP mailer, or a mailer that only logs when no SMTP
// host is configured.
func NewMailer(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return &logMailer{logger: slog.Default()}
	}
	from := mail.Address{Address: cfg.SMTPFrom}
	if parsed, err := mail.ParseAddress(cfg.SMTPFrom); err == nil {
		from = *parsed
	}
	return &mailer{
		addr:     net.JoinHostPort(cfg.SMTPHost, cfg.SMTPPort),
		host:     cfg.SMTPHost,
		from:     from,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		nowF:     time.Now,
	}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("smtp: bad recipient %q: %w", to, err)
	}
	msg, err := m.buildMessage(rcpt, subject, body)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := smtp.SendMail(m.addr, auth, m.from.Address, []string{rcpt.Address}, msg); err != nil {
		return fmt.Errorf("smtp: send to %s: %w", rcpt.Address, err)
	}
	return nil
}

// buildMessage renders a UTF-8 text/plain message with CRLF line endings.
func (m *mailer) buildMessage(to *mail.Address, subject, body string) ([]byte, error) {
	if strings.ContainsAny(subject, "\r\n") {
		return nil, fmt.Errorf("smtp: subject contains a line break")
	}
	domainPart := m.host
	if _, d, ok := strings.Cut(m.from.Address, "@"); ok {
		domainPart = d
	}

	var b strings.Builder
	header := func(k, v string) { b.WriteString(k + ": " + v + "\r\n") }
	header("From", m.from.String())
	header("To", to.String())
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", m.nowF().Format(time.RFC1123Z))
	header("Message-ID", "<"+id.New()+"@"+domainPart+">")
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String()), nil
}

type logMailer struct {
	logger *slog.Logger
}

// The body carries the code and is logged only at debug level.
func (m *logMailer) SendEmail(to, subject, body string) error {
	m.logger.Info("email not sent, smtp disabled", "to", to, "subject", subject)
	m.logger.Log(context.Background(), slog.LevelDebug, "email body", "to", to, "body", body)
	return nil
}
