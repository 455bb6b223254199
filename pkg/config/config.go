package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Asaas        AsaasConfig
	AdminJWT     AdminJWTConfig
	Password     PasswordConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"AMORIZE_APP_ENV" required:"true"`
	Port         string   `envconfig:"AMORIZE_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"AMORIZE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"AMORIZE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"AMORIZE_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AMORIZE_DB_DSN"`
	Driver string `envconfig:"AMORIZE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"AMORIZE_DB_HOST"`
	Port     int    `envconfig:"AMORIZE_DB_PORT" default:"5432"`
	User     string `envconfig:"AMORIZE_DB_USER"`
	Password string `envconfig:"AMORIZE_DB_PASSWORD"`
	Name     string `envconfig:"AMORIZE_DB_NAME"`
	SSLMode  string `envconfig:"AMORIZE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AMORIZE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AMORIZE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AMORIZE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AMORIZE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AMORIZE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AMORIZE_REDIS_ADDR"`
	Password     string        `envconfig:"AMORIZE_REDIS_PASSWORD"`
	DB           int           `envconfig:"AMORIZE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AMORIZE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AMORIZE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AMORIZE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AMORIZE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AMORIZE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AsaasConfig holds the payment gateway credentials. The client validates these
// at construction so a missing key fails before any network call.
type AsaasConfig struct {
	APIKey       string        `envconfig:"AMORIZE_ASAAS_API_KEY"`
	BaseURL      string        `envconfig:"AMORIZE_ASAAS_BASE_URL"`
	Env          string        `envconfig:"AMORIZE_ASAAS_ENV" default:"sandbox"`
	HTTPTimeout  time.Duration `envconfig:"AMORIZE_ASAAS_HTTP_TIMEOUT" default:"30s"`
	WebhookToken string        `envconfig:"AMORIZE_ASAAS_WEBHOOK_TOKEN"`
}

// Environment returns the normalized Asaas environment (sandbox/production).
func (a AsaasConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(a.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type AdminJWTConfig struct {
	Secret            string `envconfig:"AMORIZE_ADMIN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AMORIZE_ADMIN_JWT_ISSUER" default:"amorize"`
	ExpirationMinutes int    `envconfig:"AMORIZE_ADMIN_JWT_EXPIRATION_MINUTES" default:"720"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AMORIZE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AMORIZE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AMORIZE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AMORIZE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AMORIZE_ARGON_KEY_LEN" default:"32"`
}

type CheckoutConfig struct {
	EmailCacheTTL      time.Duration `envconfig:"AMORIZE_CHECKOUT_EMAIL_CACHE_TTL" default:"5m"`
	WebhookEventTTL    time.Duration `envconfig:"AMORIZE_WEBHOOK_EVENT_TTL" default:"720h"`
	StatusPollInterval time.Duration `envconfig:"AMORIZE_STATUS_POLL_INTERVAL" default:"5s"`
	StatusPollCeiling  time.Duration `envconfig:"AMORIZE_STATUS_POLL_CEILING" default:"10m"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"AMORIZE_CRON_INTERVAL" default:"24h"`
	LockTTL     time.Duration `envconfig:"AMORIZE_CRON_LOCK_TTL" default:"25h"`
	MetricsPort string        `envconfig:"AMORIZE_CRON_METRICS_PORT" default:"9091"`
	WarmupURLs  []string      `envconfig:"AMORIZE_CRON_WARMUP_URLS"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AMORIZE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AMORIZE_AUTO_MIGRATE" default:"false"`
	ExpandKits  bool `envconfig:"AMORIZE_EXPAND_KITS" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	checks := []struct {
		env   string
		value string
	}{
		{"AMORIZE_DB_HOST", db.Host},
		{"AMORIZE_DB_USER", db.User},
		{"AMORIZE_DB_NAME", db.Name},
	}
	for _, check := range checks {
		if check.value == "" {
			missing = append(missing, check.env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either AMORIZE_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
