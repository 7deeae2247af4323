package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ESCROWDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv             = "ESCROWDESK_APP_ENV"
	EnvPort               = "ESCROWDESK_APP_PORT"
	EnvJWTSecret          = "ESCROWDESK_JWT_SECRET"
	EnvJWTIssuer          = "ESCROWDESK_JWT_ISSUER"
	EnvRedisURL           = "ESCROWDESK_REDIS_URL"
	EnvBackendBaseURL     = "ESCROWDESK_BACKEND_BASE_URL"
	EnvBackendTimeout     = "ESCROWDESK_BACKEND_TIMEOUT"
	EnvStripeAPIKey       = "ESCROWDESK_STRIPE_API_KEY"
	EnvDBDriver           = "ESCROWDESK_DB_DRIVER"
	EnvDBDSN              = "ESCROWDESK_DB_DSN"
	EnvPayPalTTL          = "ESCROWDESK_PAYPAL_CORRELATION_TTL"
	EnvCORSOrigins        = "ESCROWDESK_CORS_ALLOWED_ORIGINS"
	EnvManualMethods      = "ESCROWDESK_MANUAL_PAYMENT_METHODS"
	EnvJournalEnabled     = "ESCROWDESK_JOURNAL_ENABLED"
	EnvJournalRetention   = "ESCROWDESK_JOURNAL_RETENTION_DAYS"
	EnvPayoutLockTTL      = "ESCROWDESK_PAYOUT_ACTION_LOCK_TTL"
	EnvPaymentInFlightTTL = "ESCROWDESK_PAYMENT_INFLIGHT_TTL"
)

type Config struct {
	App      AppConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Backend  BackendConfig
	Stripe   StripeConfig
	Payments PaymentsConfig
	Payouts  PayoutsConfig
	DB       DBConfig
	Journal  JournalConfig
	CORS     CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	if err := cfg.DB.validate(cfg.Journal.Enabled); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ESCROWDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"ESCROWDESK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ESCROWDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ESCROWDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// JWTConfig verifies the bearer tokens issued by the marketplace backend.
type JWTConfig struct {
	Secret string `envconfig:"ESCROWDESK_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"ESCROWDESK_JWT_ISSUER" required:"true"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ESCROWDESK_REDIS_URL"`
	Address      string        `envconfig:"ESCROWDESK_REDIS_ADDR"`
	Password     string        `envconfig:"ESCROWDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ESCROWDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ESCROWDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ESCROWDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ESCROWDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ESCROWDESK_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"ESCROWDESK_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// BackendConfig points at the marketplace REST API that owns every record.
type BackendConfig struct {
	BaseURL   string        `envconfig:"ESCROWDESK_BACKEND_BASE_URL" required:"true"`
	Timeout   time.Duration `envconfig:"ESCROWDESK_BACKEND_TIMEOUT" default:"15s"`
	UserAgent string        `envconfig:"ESCROWDESK_BACKEND_USER_AGENT" default:"escrowdesk"`
}

func (b *BackendConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(b.BaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", EnvBackendBaseURL)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvBackendTimeout)
	}
	b.BaseURL = strings.TrimRight(parsed.String(), "/")
	return nil
}

type StripeConfig struct {
	APIKey string `envconfig:"ESCROWDESK_STRIPE_API_KEY"`
	Env    string `envconfig:"ESCROWDESK_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PaymentsConfig struct {
	InFlightTTL          time.Duration `envconfig:"ESCROWDESK_PAYMENT_INFLIGHT_TTL" default:"2m"`
	PayPalCorrelationTTL time.Duration `envconfig:"ESCROWDESK_PAYPAL_CORRELATION_TTL" default:"3h"`
	ManualMethods        []string      `envconfig:"ESCROWDESK_MANUAL_PAYMENT_METHODS" default:"bank_transfer,cash,check"`
}

type PayoutsConfig struct {
	ActionLockTTL time.Duration `envconfig:"ESCROWDESK_PAYOUT_ACTION_LOCK_TTL" default:"1m"`
}

type DBConfig struct {
	Driver string `envconfig:"ESCROWDESK_DB_DRIVER" default:"postgres"`
	DSN    string `envconfig:"ESCROWDESK_DB_DSN"`

	MaxOpenConns    int           `envconfig:"ESCROWDESK_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"ESCROWDESK_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"ESCROWDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ESCROWDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) validate(required bool) error {
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	switch db.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("%s must be postgres or sqlite, got %q", EnvDBDriver, db.Driver)
	}
	if required && strings.TrimSpace(db.DSN) == "" {
		return fmt.Errorf("%s is required when the journal is enabled", EnvDBDSN)
	}
	return nil
}

type JournalConfig struct {
	Enabled       bool          `envconfig:"ESCROWDESK_JOURNAL_ENABLED" default:"true"`
	AutoMigrate   bool          `envconfig:"ESCROWDESK_JOURNAL_AUTO_MIGRATE" default:"false"`
	RetentionDays int           `envconfig:"ESCROWDESK_JOURNAL_RETENTION_DAYS" default:"180"`
	PruneInterval time.Duration `envconfig:"ESCROWDESK_JOURNAL_PRUNE_INTERVAL" default:"24h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ESCROWDESK_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}
