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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Razorpay     RazorpayConfig
	Shipping     ShippingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env            string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port           string   `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel       string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack   bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	AllowedOrigins []string `envconfig:"STOREFRONT_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite engine.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type RateLimitConfig struct {
	Window        time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_WINDOW" default:"1m"`
	CheckoutLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT" default:"10"`
	PaymentLimit  int           `envconfig:"STOREFRONT_RATE_LIMIT_PAYMENT" default:"20"`
	WebhookLimit  int           `envconfig:"STOREFRONT_RATE_LIMIT_WEBHOOK" default:"600"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type RazorpayConfig struct {
	KeyID         string        `envconfig:"STOREFRONT_RAZORPAY_KEY_ID"`
	KeySecret     string        `envconfig:"STOREFRONT_RAZORPAY_KEY_SECRET"`
	WebhookSecret string        `envconfig:"STOREFRONT_RAZORPAY_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"STOREFRONT_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Timeout       time.Duration `envconfig:"STOREFRONT_RAZORPAY_TIMEOUT" default:"10s"`
	Currency      string        `envconfig:"STOREFRONT_RAZORPAY_CURRENCY" default:"INR"`
}

// Configured reports whether gateway credentials are present.
func (r RazorpayConfig) Configured() bool {
	return strings.TrimSpace(r.KeyID) != "" && strings.TrimSpace(r.KeySecret) != ""
}

type ShippingConfig struct {
	LeadTimeDays int    `envconfig:"STOREFRONT_SHIPPING_LEAD_TIME_DAYS" default:"5"`
	Carrier      string `envconfig:"STOREFRONT_SHIPPING_CARRIER" default:"Storefront Express"`
}

// LeadTime returns the configured delivery lead time.
func (s ShippingConfig) LeadTime() time.Duration {
	if s.LeadTimeDays <= 0 {
		return 0
	}
	return time.Duration(s.LeadTimeDays) * 24 * time.Hour
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"sf-order-events"`
	OrdersSubscription string `envconfig:"STOREFRONT_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"STOREFRONT_KAFKA_BROKERS"`
	Topic        string        `envconfig:"STOREFRONT_KAFKA_TOPIC" default:"storefront.orders"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Sink           string `envconfig:"STOREFRONT_OUTBOX_SINK" default:"pubsub"`
}

func (o OutboxConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Sink)) {
	case OutboxSinkPubSub, OutboxSinkKafka:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvOutboxSink, OutboxSinkPubSub, OutboxSinkKafka)
	}
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"5m"`
	PendingOrderTTL     time.Duration `envconfig:"STOREFRONT_CRON_PENDING_ORDER_TTL" default:"48h"`
	OutboxRetention     time.Duration `envconfig:"STOREFRONT_CRON_OUTBOX_RETENTION" default:"720h"`
	DeadLetterRetention time.Duration `envconfig:"STOREFRONT_CRON_DEAD_LETTER_RETENTION" default:"2160h"`
	LockTTL             time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"4m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:storefront.db?cache=shared"
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
