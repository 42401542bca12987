package factory

import (
	"fmt"

	"github.com/chbs/lead-outreach/internal/adapters/mail"
	"github.com/chbs/lead-outreach/internal/config"
	"github.com/chbs/lead-outreach/internal/core"
	"go.uber.org/zap"
)

// MailerFactory creates mailers based on configuration
type MailerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailerFactory creates a new mailer factory
func NewMailerFactory(cfg *config.Config, logger *zap.Logger) *MailerFactory {
	return &MailerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailer creates a mailer based on the configuration
func (f *MailerFactory) CreateMailer() (core.Mailer, error) {
	mailerType := f.cfg.GetString("mailer.type")

	switch mailerType {
	case "log":
		return mail.NewLogMailer(f.logger), nil
	case "smtp":
		from := f.cfg.GetString("mailer.smtp.from")
		if from == "" {
			return nil, fmt.Errorf("mailer.smtp.from is required for the smtp mailer")
		}
		return mail.NewSMTPMailer(
			f.cfg.GetString("mailer.smtp.host"),
			f.cfg.GetInt("mailer.smtp.port"),
			f.cfg.GetString("mailer.smtp.username"),
			f.cfg.GetString("mailer.smtp.password"),
			from,
			f.logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported mailer type: %s", mailerType)
	}
}
