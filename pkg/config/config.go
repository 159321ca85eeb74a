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
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	Checkout     CheckoutConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Notify       NotifyConfig
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
	Env          string `envconfig:"NISHKAR_APP_ENV" required:"true"`
	Port         string `envconfig:"NISHKAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NISHKAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NISHKAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"NISHKAR_DB_DSN"`
	Driver string `envconfig:"NISHKAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NISHKAR_DB_HOST"`
	LegacyPort     int    `envconfig:"NISHKAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NISHKAR_DB_USER"`
	LegacyPassword string `envconfig:"NISHKAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"NISHKAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"NISHKAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NISHKAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NISHKAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NISHKAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NISHKAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NISHKAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NISHKAR_REDIS_ADDR"`
	Password     string        `envconfig:"NISHKAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"NISHKAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NISHKAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NISHKAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NISHKAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NISHKAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NISHKAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"NISHKAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NISHKAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NISHKAR_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NISHKAR_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL  time.Duration `envconfig:"NISHKAR_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookIdempotencyTTL time.Duration `envconfig:"NISHKAR_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type CheckoutConfig struct {
	Currency            string        `envconfig:"NISHKAR_CHECKOUT_CURRENCY" default:"INR"`
	TrackingCodeRetries int           `envconfig:"NISHKAR_TRACKING_CODE_RETRIES" default:"5"`
	WebhookLookupBudget time.Duration `envconfig:"NISHKAR_WEBHOOK_LOOKUP_BUDGET" default:"5s"`
	SuccessURL          string        `envconfig:"NISHKAR_CHECKOUT_SUCCESS_URL" default:"http://localhost:4000/success"`
	CancelURL           string        `envconfig:"NISHKAR_CHECKOUT_CANCEL_URL" default:"http://localhost:4000/cancel"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"NISHKAR_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"NISHKAR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"NISHKAR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"NISHKAR_PUBSUB_ORDERS_TOPIC" default:"nk-order-events"`
	NotificationSubscription string `envconfig:"NISHKAR_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"nk-order-events-notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"NISHKAR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"NISHKAR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"NISHKAR_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey string `envconfig:"NISHKAR_STRIPE_API_KEY"`
	Secret string `envconfig:"NISHKAR_STRIPE_SECRET"`
	Env    string `envconfig:"NISHKAR_STRIPE_ENV" default:"test"`
}

type NotifyConfig struct {
	MaxAttempts int    `envconfig:"NISHKAR_NOTIFY_MAX_ATTEMPTS" default:"3"`
	FromAddress string `envconfig:"NISHKAR_NOTIFY_FROM" default:"support@nishkar.com"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
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
