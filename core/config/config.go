package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/m3rciful/studybot/internal/catalog"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	// AdminUsername is shown in the /info signature.
	AdminUsername string `yaml:"admin_username" envconfig:"ADMIN_USERNAME"`
	RunMode       string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// HTTPTimeout bounds one Bot API request, document uploads included.
	HTTPTimeout time.Duration `yaml:"http_timeout" envconfig:"TELEGRAM_HTTP_TIMEOUT"`
	// HTTPRetries is how many times a request failing at the network level is replayed.
	HTTPRetries int `yaml:"http_retries" envconfig:"TELEGRAM_HTTP_RETRIES"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// DatabaseConfig holds the optional upload ledger connection settings.
// The ledger is disabled when Host is empty.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// MigrationsDir defaults to ./migrations.
	MigrationsDir string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// Enabled reports whether a database was configured.
func (c DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

// ResourcesConfig locates the files served by the bot.
type ResourcesConfig struct {
	Root string `yaml:"root" envconfig:"RESOURCES_ROOT"`
	// Watch keeps the inventory current through filesystem notifications.
	Watch bool `yaml:"watch" envconfig:"RESOURCES_WATCH"`
}

// HistoryConfig controls the in-memory navigation history.
type HistoryConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl" envconfig:"HISTORY_IDLE_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"HISTORY_SWEEP_INTERVAL"`
}

// MetricsConfig exposes Prometheus metrics when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// Config aggregates the bot configuration.
type Config struct {
	Telegram  TelegramConfig     `yaml:"telegram"`
	Webhook   WebhookConfig      `yaml:"webhook"`
	Logging   LoggingConfig      `yaml:"logging"`
	RateLimit RateLimitConfig    `yaml:"rate_limit"`
	Database  DatabaseConfig     `yaml:"database"`
	Resources ResourcesConfig    `yaml:"resources"`
	History   HistoryConfig      `yaml:"history"`
	Metrics   MetricsConfig      `yaml:"metrics"`
	Catalog   catalog.Definition `yaml:"catalog"`
}

const (
	defaultHTTPTimeout   = 2 * time.Minute
	defaultHTTPRetries   = 3
	defaultResourcesRoot = "./resources"
	defaultIdleTTL       = 24 * time.Hour
	defaultSweepInterval = 10 * time.Minute
	minimumSweepInterval = time.Second
)

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read parses the YAML file and applies environment overrides without validation.
func Read(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	switch {
	case cfg.Telegram.HTTPTimeout < 0:
		return fmt.Errorf("telegram.http_timeout must be >= 0")
	case cfg.Telegram.HTTPTimeout == 0:
		cfg.Telegram.HTTPTimeout = defaultHTTPTimeout
	}
	switch {
	case cfg.Telegram.HTTPRetries < 0:
		return fmt.Errorf("telegram.http_retries must be >= 0")
	case cfg.Telegram.HTTPRetries == 0:
		cfg.Telegram.HTTPRetries = defaultHTTPRetries
	}

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	return NormalizeContent(cfg)
}

// NormalizeContent applies defaults to the sections that do not depend on Telegram
// credentials. Offline tooling such as catalog checks relies on it alone.
func NormalizeContent(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg.Resources.Root = strings.TrimSpace(cfg.Resources.Root)
	if cfg.Resources.Root == "" {
		cfg.Resources.Root = defaultResourcesRoot
	}

	if cfg.History.IdleTTL < 0 {
		return fmt.Errorf("history.idle_ttl must be >= 0")
	}
	if cfg.History.IdleTTL == 0 {
		cfg.History.IdleTTL = defaultIdleTTL
	}
	if cfg.History.SweepInterval == 0 {
		cfg.History.SweepInterval = defaultSweepInterval
	}
	if cfg.History.SweepInterval < minimumSweepInterval {
		return fmt.Errorf("history.sweep_interval must be >= %s", minimumSweepInterval)
	}

	if cfg.Database.Enabled() {
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
		if strings.TrimSpace(cfg.Database.MigrationsDir) == "" {
			cfg.Database.MigrationsDir = "migrations"
		}
	}

	if len(cfg.Catalog.Semesters) == 0 {
		return fmt.Errorf("catalog.semesters must declare at least one semester")
	}
	return nil
}

// CoreConfig lets *Config serve as its own config carrier.
func (c *Config) CoreConfig() *Config {
	return c
}
