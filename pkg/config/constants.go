package config

// EnvPrefix is the envconfig prefix shared by every variable.
const EnvPrefix = "NISHKAR"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "NISHKAR_APP_ENV"
	EnvPort   = "NISHKAR_APP_PORT"

	EnvDBDSN  = "NISHKAR_DB_DSN"
	EnvDBHost = "NISHKAR_DB_HOST"
	EnvDBUser = "NISHKAR_DB_USER"
	EnvDBName = "NISHKAR_DB_NAME"

	EnvRedisURL     = "NISHKAR_REDIS_URL"
	EnvJWTSecret    = "NISHKAR_JWT_SECRET"
	EnvJWTIssuer    = "NISHKAR_JWT_ISSUER"
	EnvGCPProjectID = "NISHKAR_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic     = "NISHKAR_PUBSUB_ORDERS_TOPIC"
	EnvPubSubNotificationSub = "NISHKAR_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

// legacyDBEnvVars are required when NISHKAR_DB_DSN is not set directly.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
