package mail

import (
	"context"

	"github.com/chbs/lead-outreach/internal/core"
	"go.uber.org/zap"
)

// LogMailer is a dry-run implementation of the Mailer interface that logs
// messages instead of delivering them
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a new log mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message and reports success
func (m *LogMailer) Send(ctx context.Context, msg *core.OutboundMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("Dry-run send",
		zap.String("recipient", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)))
	return nil
}
