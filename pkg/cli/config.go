package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/adapter"
	"github.com/m-mizutani/seochat/pkg/repository"
	"github.com/m-mizutani/seochat/pkg/usecase/session"
	"github.com/m-mizutani/seochat/pkg/usecase/transcript"
	"github.com/m-mizutani/seochat/pkg/utils/logging"
	"github.com/m-mizutani/seochat/pkg/validator"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"
)

const (
	storageFile      = "file"
	storageSQLite    = "sqlite"
	storageGCS       = "gcs"
	storageFirestore = "firestore"
	storageMemory    = "memory"
)

// config holds configuration values
type config struct {
	configFile string

	// Webhook
	webhookURL     string
	chatWebhookURL string
	webhookTimeout time.Duration
	lenientURL     bool

	// Storage
	storage           string
	storageDir        string
	sqlitePath        string
	gcsBucket         string
	gcsPrefix         string
	gcpProject        string
	firestoreDatabase string
	gcpCredentials    string
	historyTTL        time.Duration

	// Logging and reporting
	logLevel  string
	logFormat string
	sentryDSN string
	sentryEnv string

	messages session.Messages
}

// fileConfig is the layout of the optional YAML config file
type fileConfig struct {
	WebhookURL     string           `yaml:"webhook_url"`
	ChatWebhookURL string           `yaml:"chat_webhook_url"`
	Messages       session.Messages `yaml:"messages"`
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML config file",
			Sources:     cli.EnvVars("SEOCHAT_CONFIG"),
			Destination: &cfg.configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Category:    "logging",
			Usage:       "Set log level [debug|info|warn|error]",
			Value:       "warn",
			Sources:     cli.EnvVars("SEOCHAT_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Category:    "logging",
			Usage:       "Set log format [console|json]",
			Value:       "console",
			Sources:     cli.EnvVars("SEOCHAT_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN",
			Category:    "Sentry",
			Sources:     cli.EnvVars("SEOCHAT_SENTRY_DSN"),
			Destination: &cfg.sentryDSN,
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment",
			Category:    "Sentry",
			Sources:     cli.EnvVars("SEOCHAT_SENTRY_ENV"),
			Destination: &cfg.sentryEnv,
		},
	}
}

// storageFlags returns flags selecting where the transcript is kept
func storageFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage",
			Category:    "storage",
			Usage:       "Transcript storage [file|sqlite|gcs|firestore|memory]",
			Value:       storageFile,
			Sources:     cli.EnvVars("SEOCHAT_STORAGE"),
			Destination: &cfg.storage,
		},
		&cli.StringFlag{
			Name:        "storage-dir",
			Category:    "storage",
			Usage:       "Directory for file storage (default: user config dir)",
			Sources:     cli.EnvVars("SEOCHAT_STORAGE_DIR"),
			Destination: &cfg.storageDir,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Category:    "storage",
			Usage:       "SQLite database file (default: seochat.db in storage dir)",
			Sources:     cli.EnvVars("SEOCHAT_SQLITE_PATH"),
			Destination: &cfg.sqlitePath,
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Category:    "storage",
			Usage:       "Cloud Storage bucket name",
			Sources:     cli.EnvVars("SEOCHAT_GCS_BUCKET"),
			Destination: &cfg.gcsBucket,
		},
		&cli.StringFlag{
			Name:        "gcs-prefix",
			Category:    "storage",
			Usage:       "Object name prefix in the bucket",
			Value:       "seochat/",
			Sources:     cli.EnvVars("SEOCHAT_GCS_PREFIX"),
			Destination: &cfg.gcsPrefix,
		},
		&cli.StringFlag{
			Name:        "gcp-project",
			Aliases:     []string{"p"},
			Category:    "storage",
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("SEOCHAT_GCP_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.gcpProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Category:    "storage",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("SEOCHAT_FIRESTORE_DATABASE", "FIRESTORE_DATABASE_ID"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "gcp-credentials",
			Category:    "storage",
			Usage:       "Service account key file for Cloud Storage and Firestore",
			Sources:     cli.EnvVars("SEOCHAT_GCP_CREDENTIALS"),
			Destination: &cfg.gcpCredentials,
		},
		&cli.DurationFlag{
			Name:        "history-ttl",
			Category:    "storage",
			Usage:       "How long a saved conversation can be resumed",
			Value:       transcript.DefaultTTL,
			Sources:     cli.EnvVars("SEOCHAT_HISTORY_TTL"),
			Destination: &cfg.historyTTL,
		},
	}
}

// webhookFlags returns flags for the analysis webhook
func webhookFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "webhook-url",
			Aliases:     []string{"w"},
			Category:    "webhook",
			Usage:       "Webhook URL for analysis requests",
			Sources:     cli.EnvVars("SEOCHAT_WEBHOOK_URL"),
			Destination: &cfg.webhookURL,
		},
		&cli.StringFlag{
			Name:        "chat-webhook-url",
			Category:    "webhook",
			Usage:       "Webhook URL for chat messages (default: same as --webhook-url)",
			Sources:     cli.EnvVars("SEOCHAT_CHAT_WEBHOOK_URL"),
			Destination: &cfg.chatWebhookURL,
		},
		&cli.DurationFlag{
			Name:        "webhook-timeout",
			Category:    "webhook",
			Usage:       "Timeout of a webhook request, 0 for none",
			Sources:     cli.EnvVars("SEOCHAT_WEBHOOK_TIMEOUT"),
			Destination: &cfg.webhookTimeout,
		},
		&cli.BoolFlag{
			Name:        "lenient-url",
			Category:    "webhook",
			Usage:       "Accept website URLs without scheme and assume https://",
			Sources:     cli.EnvVars("SEOCHAT_LENIENT_URL"),
			Destination: &cfg.lenientURL,
		},
	}
}

// setup loads the config file and configures logging and Sentry. closer must be called even on error.
func (cfg *config) setup(ctx context.Context, w io.Writer) (context.Context, func(), error) {
	closer := func() {}

	format := logging.FormatConsole
	switch cfg.logFormat {
	case "", string(logging.FormatConsole):
	case string(logging.FormatJSON):
		format = logging.FormatJSON
	default:
		return ctx, closer, goerr.New("invalid log format", goerr.V("format", cfg.logFormat))
	}

	logger := logging.New(cfg.logLevel, w, logging.WithFormat(format))
	logging.SetDefault(logger)
	ctx = logging.With(ctx, logger)

	if err := cfg.loadFile(); err != nil {
		return ctx, closer, err
	}

	if cfg.sentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.sentryDSN,
			Environment: cfg.sentryEnv,
		}); err != nil {
			return ctx, closer, goerr.Wrap(err, "failed to initialize sentry")
		}
		closer = func() { sentry.Flush(2 * time.Second) }
	}

	logger.Debug("configured", slog.Group("config",
		slog.String("storage", cfg.storage),
		slog.Duration("history_ttl", cfg.historyTTL),
		slog.Duration("webhook_timeout", cfg.webhookTimeout),
		slog.Bool("lenient_url", cfg.lenientURL),
		slog.String("secret_webhook_url", cfg.webhookURL),
	))

	return ctx, closer, nil
}

// loadFile reads the YAML config file. Values given by flags or env vars take precedence.
func (cfg *config) loadFile() error {
	if cfg.configFile == "" {
		return nil
	}

	content, err := os.ReadFile(cfg.configFile)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("file", cfg.configFile))
	}

	var fc fileConfig
	if err := yaml.Unmarshal(content, &fc); err != nil {
		return goerr.Wrap(err, "failed to parse YAML config", goerr.V("file", cfg.configFile))
	}

	if cfg.webhookURL == "" {
		cfg.webhookURL = fc.WebhookURL
	}
	if cfg.chatWebhookURL == "" {
		cfg.chatWebhookURL = fc.ChatWebhookURL
	}
	cfg.messages = fc.Messages
	return nil
}

func (cfg *config) clientOptions() []option.ClientOption {
	if cfg.gcpCredentials == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.gcpCredentials)}
}

func (cfg *config) dataDir() (string, error) {
	if cfg.storageDir != "" {
		return cfg.storageDir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", goerr.Wrap(err, "failed to find user config directory, set --storage-dir")
	}
	return filepath.Join(base, "seochat"), nil
}

// newRepository creates the transcript repository for the selected storage. closer releases the backend.
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, func(), error) {
	noop := func() {}

	switch cfg.storage {
	case storageFile, "":
		dir, err := cfg.dataDir()
		if err != nil {
			return nil, noop, err
		}
		storage, err := adapter.NewFileStorage(dir)
		if err != nil {
			return nil, noop, err
		}
		return repository.NewStorage(storage), noop, nil

	case storageSQLite:
		path := cfg.sqlitePath
		if path == "" {
			dir, err := cfg.dataDir()
			if err != nil {
				return nil, noop, err
			}
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, noop, goerr.Wrap(err, "failed to create storage directory", goerr.V("dir", dir))
			}
			path = filepath.Join(dir, "seochat.db")
		}
		storage, err := adapter.NewSQLiteStorage(ctx, path)
		if err != nil {
			return nil, noop, err
		}
		return repository.NewStorage(storage), func() { _ = storage.Close() }, nil

	case storageGCS:
		if cfg.gcsBucket == "" {
			return nil, noop, goerr.New("gcs-bucket is required for gcs storage")
		}
		storage, err := adapter.NewCloudStorage(ctx, cfg.gcsBucket, cfg.gcsPrefix, cfg.clientOptions()...)
		if err != nil {
			return nil, noop, goerr.Wrap(err, "failed to create storage")
		}
		return repository.NewStorage(storage), noop, nil

	case storageFirestore:
		if cfg.gcpProject == "" {
			return nil, noop, goerr.New("gcp-project is required for firestore storage")
		}
		if cfg.firestoreDatabase == "" {
			return nil, noop, goerr.New("firestore-database is required for firestore storage")
		}
		repo, err := repository.NewFirestore(ctx, cfg.gcpProject, cfg.firestoreDatabase, cfg.clientOptions()...)
		if err != nil {
			return nil, noop, goerr.Wrap(err, "failed to create repository")
		}
		return repo, func() { _ = repo.Close() }, nil

	case storageMemory:
		return repository.NewStorage(adapter.NewMemoryStorage()), noop, nil

	default:
		return nil, noop, goerr.New("unknown storage", goerr.V("storage", cfg.storage))
	}
}

// newStore creates the transcript store on the selected storage
func (cfg *config) newStore(ctx context.Context) (*transcript.Store, func(), error) {
	repo, closer, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, closer, err
	}

	var opts []transcript.Option
	if cfg.historyTTL > 0 {
		opts = append(opts, transcript.WithTTL(cfg.historyTTL))
	}
	return transcript.New(repo, opts...), closer, nil
}

// newController creates the session controller. The webhook URL is required here.
func (cfg *config) newController(store *transcript.Store) (*session.Controller, error) {
	if cfg.webhookURL == "" {
		return nil, goerr.New("webhook-url is required")
	}

	policy := validator.Strict
	if cfg.lenientURL {
		policy = validator.Lenient
	}

	var opts []adapter.WebhookOption
	if cfg.webhookTimeout > 0 {
		opts = append(opts, adapter.WithTimeout(cfg.webhookTimeout))
	}

	ctrl, err := session.New(session.NewInput{
		Store:           store,
		Webhook:         adapter.NewWebhook(opts...),
		Validator:       validator.NewURL(policy),
		AnalyzeEndpoint: cfg.webhookURL,
		ChatEndpoint:    cfg.chatWebhookURL,
		Messages:        cfg.messages,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create session")
	}
	return ctrl, nil
}
