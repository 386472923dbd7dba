package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	OutboxSinkPubSub = "pubsub"
	OutboxSinkKafka  = "kafka"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN    = "STOREFRONT_DB_DSN"
	EnvDBDriver = "STOREFRONT_DB_DRIVER"
	EnvDBHost   = "STOREFRONT_DB_HOST"
	EnvDBUser   = "STOREFRONT_DB_USER"
	EnvDBName   = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvRazorpayKeyID         = "STOREFRONT_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret     = "STOREFRONT_RAZORPAY_KEY_SECRET"
	EnvRazorpayWebhookSecret = "STOREFRONT_RAZORPAY_WEBHOOK_SECRET"

	EnvShippingLeadTimeDays = "STOREFRONT_SHIPPING_LEAD_TIME_DAYS"

	EnvKafkaBrokers = "STOREFRONT_KAFKA_BROKERS"
	EnvOutboxSink   = "STOREFRONT_OUTBOX_SINK"

	EnvCronPendingOrderTTL = "STOREFRONT_CRON_PENDING_ORDER_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
