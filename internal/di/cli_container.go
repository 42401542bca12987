package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/chbs/lead-outreach/internal/config"
	"github.com/chbs/lead-outreach/internal/core"
	"github.com/chbs/lead-outreach/internal/csv"
	"github.com/chbs/lead-outreach/internal/factory"
	"github.com/chbs/lead-outreach/internal/logging"
	"github.com/chbs/lead-outreach/internal/template"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Action flags
	InputFile     string
	Preview       bool
	Persist       bool
	Send          bool
	ListFollowUps bool
	SendFollowUps bool

	// Sender identity flags
	SenderName    string
	SenderCompany string
	SenderPhone   string

	// Store flags
	StoreType  string
	SQLitePath string
	MySQLDSN   string

	// Mailer flags
	MailerType   string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Dispatch flags
	Interval string
	Timeout  string

	// Output flags
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Action flags
	flag.StringVar(&flags.InputFile, "file", "", "CSV file to import (use stdin if not specified)")
	flag.BoolVar(&flags.Preview, "preview", false, "Parse the import and print the records without persisting or sending")
	flag.BoolVar(&flags.Persist, "persist", false, "Persist imported records to the contact store")
	flag.BoolVar(&flags.Send, "send", false, "Send the outreach email to imported records")
	flag.BoolVar(&flags.ListFollowUps, "followups", false, "List contacts due for a follow-up")
	flag.BoolVar(&flags.SendFollowUps, "send-followups", false, "Send the follow-up email to every due contact")

	// Sender identity flags
	flag.StringVar(&flags.SenderName, "sender-name", "", "Sender name attached to outgoing messages")
	flag.StringVar(&flags.SenderCompany, "sender-company", "", "Sender company attached to outgoing messages")
	flag.StringVar(&flags.SenderPhone, "sender-phone", "", "Sender phone attached to outgoing messages")

	// Store flags
	flag.StringVar(&flags.StoreType, "store", "memory", "Contact store backend (memory, sqlite, mysql)")
	flag.StringVar(&flags.SQLitePath, "sqlite-path", "./lead_outreach.db", "SQLite database path")
	flag.StringVar(&flags.MySQLDSN, "mysql-dsn", "", "MySQL DSN")

	// Mailer flags
	flag.StringVar(&flags.MailerType, "mailer", "log", "Mailer backend (log, smtp)")
	flag.StringVar(&flags.SMTPHost, "smtp-host", "localhost", "SMTP host")
	flag.IntVar(&flags.SMTPPort, "smtp-port", 587, "SMTP port")
	flag.StringVar(&flags.SMTPUsername, "smtp-username", "", "SMTP username")
	flag.StringVar(&flags.SMTPPassword, "smtp-password", "", "SMTP password")
	flag.StringVar(&flags.SMTPFrom, "smtp-from", "", "SMTP envelope sender address")

	// Dispatch flags
	flag.StringVar(&flags.Interval, "interval", "3s", "Minimum spacing between send attempts")
	flag.StringVar(&flags.Timeout, "timeout", "30s", "Per-attempt mailer timeout")

	// Output flags
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
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

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Store configuration
	v.Set("store.type", flags.StoreType)
	v.Set("store.sqlite_path", flags.SQLitePath)
	if flags.MySQLDSN != "" {
		v.Set("store.mysql_dsn", flags.MySQLDSN)
	}

	// Mailer configuration
	v.Set("mailer.type", flags.MailerType)
	v.Set("mailer.smtp.host", flags.SMTPHost)
	v.Set("mailer.smtp.port", flags.SMTPPort)
	v.Set("mailer.smtp.username", flags.SMTPUsername)
	v.Set("mailer.smtp.password", flags.SMTPPassword)
	v.Set("mailer.smtp.from", flags.SMTPFrom)

	// Dispatch configuration
	v.Set("dispatch.interval", flags.Interval)
	v.Set("dispatch.timeout", flags.Timeout)

	return config.NewFromViper(v)
}
