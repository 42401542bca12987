package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/chbs/lead-outreach/internal/config"
	"github.com/chbs/lead-outreach/internal/core"
	"github.com/chbs/lead-outreach/internal/csv"
	"github.com/chbs/lead-outreach/internal/factory"
	"github.com/chbs/lead-outreach/internal/logging"
	"github.com/chbs/lead-outreach/internal/template"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailerFactory); err != nil {
		return nil, err
	}

	// Register store backend
	if err := container.Provide(func(f *factory.StoreFactory) (factory.Backend, error) {
		return f.CreateBackend()
	}); err != nil {
		return nil, err
	}

	// Register mailer
	if err := container.Provide(func(f *factory.MailerFactory) (core.Mailer, error) {
		return f.CreateMailer()
	}); err != nil {
		return nil, err
	}

	// Register normalizer and templates
	if err := container.Provide(csv.NewNormalizer); err != nil {
		return nil, err
	}
	if err := container.Provide(template.NewRenderer); err != nil {
		return nil, err
	}

	// Register outreach service
	if err := container.Provide(func(
		cfg *config.Config,
		backend factory.Backend,
		mailer core.Mailer,
		normalizer *csv.Normalizer,
		renderer *template.Renderer,
		logger *zap.Logger,
	) (*core.OutreachService, error) {
		interval, err := cfg.GetDuration("dispatch.interval")
		if err != nil {
			return nil, err
		}
		timeout, err := cfg.GetDuration("dispatch.timeout")
		if err != nil {
			return nil, err
		}
		return core.NewOutreachService(backend, mailer, backend, normalizer, renderer, logger, interval, timeout), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
