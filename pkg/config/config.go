package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Backend      BackendConfig
	Poller       PollerConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Terminal     TerminalConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Terminal.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LUMAPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"LUMAPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LUMAPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LUMAPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver string `envconfig:"LUMAPAY_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"LUMAPAY_DB_DSN" default:"file:lumapay-pos.db"`

	MaxOpenConns    int           `envconfig:"LUMAPAY_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"LUMAPAY_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"LUMAPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LUMAPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) validate() error {
	switch db.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("db driver must be sqlite or postgres, got %q", db.Driver)
	}
	if db.DSN == "" {
		return fmt.Errorf("%s is required", EnvDBDSN)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"LUMAPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LUMAPAY_REDIS_ADDR"`
	Password     string        `envconfig:"LUMAPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUMAPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LUMAPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUMAPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUMAPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUMAPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUMAPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LUMAPAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LUMAPAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LUMAPAY_JWT_EXPIRATION_MINUTES" default:"720"`
}

// BackendConfig points the daemon at the payment backend per operating mode.
type BackendConfig struct {
	SandboxBaseURL string        `envconfig:"LUMAPAY_BACKEND_SANDBOX_URL" default:"https://api.sandbox.lumapay.io"`
	LiveBaseURL    string        `envconfig:"LUMAPAY_BACKEND_LIVE_URL" default:"https://api.lumapay.io"`
	APIKey         string        `envconfig:"LUMAPAY_BACKEND_API_KEY" required:"true"`
	RequestTimeout time.Duration `envconfig:"LUMAPAY_BACKEND_REQUEST_TIMEOUT" default:"10s"`

	// NativeCurrency is the settlement unit that needs no backend
	// confirmation loop; receipts in it render locally.
	NativeCurrency string `envconfig:"LUMAPAY_BACKEND_NATIVE_CURRENCY" default:"USDL"`

	DynamicSessionTTL time.Duration `envconfig:"LUMAPAY_BACKEND_DYNAMIC_SESSION_TTL" default:"5m"`
	StaticSessionTTL  time.Duration `envconfig:"LUMAPAY_BACKEND_STATIC_SESSION_TTL" default:"720h"`
}

type PollerConfig struct {
	Interval       time.Duration `envconfig:"LUMAPAY_POLL_INTERVAL" default:"4s"`
	ProbeCacheTTL  time.Duration `envconfig:"LUMAPAY_PROBE_CACHE_TTL" default:"5s"`
	TxCacheTTL     time.Duration `envconfig:"LUMAPAY_TX_CACHE_TTL" default:"30s"`
	RequestTimeout time.Duration `envconfig:"LUMAPAY_POLL_REQUEST_TIMEOUT" default:"3s"`
}

type RateLimitConfig struct {
	SessionWindow  time.Duration `envconfig:"LUMAPAY_RATE_LIMIT_SESSION_WINDOW" default:"1m"`
	SessionIPLimit int           `envconfig:"LUMAPAY_RATE_LIMIT_SESSION_IP_LIMIT" default:"30"`
	LoginWindow    time.Duration `envconfig:"LUMAPAY_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit   int           `envconfig:"LUMAPAY_RATE_LIMIT_LOGIN_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate  bool `envconfig:"LUMAPAY_AUTO_MIGRATE" default:"true"`
	DrainOnStart bool `envconfig:"LUMAPAY_OFFLINE_DRAIN_ON_START" default:"false"`
}

// TerminalConfig identifies this terminal to the UI auth flow.
type TerminalConfig struct {
	ID          string `envconfig:"LUMAPAY_TERMINAL_ID" required:"true"`
	Secret      string `envconfig:"LUMAPAY_TERMINAL_SECRET" required:"true"`
	DefaultMode string `envconfig:"LUMAPAY_TERMINAL_DEFAULT_MODE" default:"sandbox"`
}

func (t TerminalConfig) validate() error {
	switch t.DefaultMode {
	case "sandbox", "live":
		return nil
	default:
		return fmt.Errorf("terminal default mode must be sandbox or live, got %q", t.DefaultMode)
	}
}
