package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chbs/lead-outreach/internal/core"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// SMTPMailer delivers messages through an SMTP relay. One connection per
// message: the dispatcher throttles well below any connection-reuse payoff.
type SMTPMailer struct {
	addr     string
	username string
	password string
	from     string
	logger   *zap.Logger
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(host string, port int, username, password, from string, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		addr:     fmt.Sprintf("%s:%d", host, port),
		username: username,
		password: password,
		from:     from,
		logger:   logger,
	}
}

// Send delivers a rendered message to a single recipient. The context
// deadline bounds the whole SMTP exchange; expiry surfaces as the attempt's
// failure reason.
func (m *SMTPMailer) Send(ctx context.Context, msg *core.OutboundMessage) error {
	var auth sasl.Client
	if m.username != "" {
		auth = sasl.NewPlainClient("", m.username, m.password)
	}

	payload := m.buildMessage(msg)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(m.addr, auth, m.from, []string{msg.To}, strings.NewReader(payload))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
		m.logger.Debug("Message delivered",
			zap.String("recipient", msg.To),
			zap.String("subject", msg.Subject))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send timed out: %w", ctx.Err())
	}
}

// buildMessage assembles the RFC 5322 payload
func (m *SMTPMailer) buildMessage(msg *core.OutboundMessage) string {
	var b strings.Builder
	from := m.from
	if msg.Sender.Name != "" {
		from = fmt.Sprintf("%s <%s>", msg.Sender.Name, m.from)
	}
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return b.String()
}
