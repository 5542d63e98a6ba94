package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	PortOne      PortOneConfig
	Billing      BillingConfig
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
	if err := cfg.Billing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MAGPRESS_APP_ENV" required:"true"`
	Port         string `envconfig:"MAGPRESS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MAGPRESS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MAGPRESS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MAGPRESS_DB_DSN"`
	Driver string `envconfig:"MAGPRESS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MAGPRESS_DB_HOST"`
	LegacyPort     int    `envconfig:"MAGPRESS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MAGPRESS_DB_USER"`
	LegacyPassword string `envconfig:"MAGPRESS_DB_PASSWORD"`
	LegacyName     string `envconfig:"MAGPRESS_DB_NAME"`
	LegacySSLMode  string `envconfig:"MAGPRESS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MAGPRESS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MAGPRESS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MAGPRESS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MAGPRESS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MAGPRESS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MAGPRESS_REDIS_ADDR"`
	Password     string        `envconfig:"MAGPRESS_REDIS_PASSWORD"`
	DB           int           `envconfig:"MAGPRESS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MAGPRESS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MAGPRESS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MAGPRESS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MAGPRESS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MAGPRESS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MAGPRESS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MAGPRESS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MAGPRESS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PortOneConfig struct {
	APISecret string        `envconfig:"MAGPRESS_PORTONE_API_SECRET" required:"true"`
	BaseURL   string        `envconfig:"MAGPRESS_PORTONE_BASE_URL" default:"https://api.portone.io"`
	StoreID   string        `envconfig:"MAGPRESS_PORTONE_STORE_ID"`
	Timeout   time.Duration `envconfig:"MAGPRESS_PORTONE_TIMEOUT" default:"10s"`
}

// BillingConfig controls the subscription window math applied by the webhook
// handler. The jitter spreads next-cycle charges across the schedule hour.
type BillingConfig struct {
	PeriodDays         int           `envconfig:"MAGPRESS_BILLING_PERIOD_DAYS" default:"30"`
	GraceDays          int           `envconfig:"MAGPRESS_BILLING_GRACE_DAYS" default:"1"`
	ScheduleHour       int           `envconfig:"MAGPRESS_BILLING_SCHEDULE_HOUR" default:"10"`
	JitterMinutes      int           `envconfig:"MAGPRESS_BILLING_JITTER_MINUTES" default:"60"`
	Currency           string        `envconfig:"MAGPRESS_BILLING_CURRENCY" default:"KRW"`
	WebhookDedupTTL    time.Duration `envconfig:"MAGPRESS_BILLING_WEBHOOK_DEDUP_TTL" default:"72h"`
	ScheduleLookaround time.Duration `envconfig:"MAGPRESS_BILLING_SCHEDULE_LOOKAROUND" default:"24h"`
}

func (b BillingConfig) validate() error {
	if b.PeriodDays <= 0 {
		return fmt.Errorf("billing period days must be positive")
	}
	if b.GraceDays < 0 {
		return fmt.Errorf("billing grace days must not be negative")
	}
	if b.ScheduleHour < 0 || b.ScheduleHour > 23 {
		return fmt.Errorf("billing schedule hour must be within 0-23")
	}
	if b.JitterMinutes < 0 || b.JitterMinutes > 60 {
		return fmt.Errorf("billing jitter minutes must be within 0-60")
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MAGPRESS_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
