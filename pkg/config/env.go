package config

const EnvPrefix = "TAPIFY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "TAPIFY_APP_ENV"
	EnvPort     = "TAPIFY_APP_PORT"
	EnvLogLevel = "TAPIFY_LOG_LEVEL"

	EnvDBDSN  = "TAPIFY_DB_DSN"
	EnvDBHost = "TAPIFY_DB_HOST"
	EnvDBUser = "TAPIFY_DB_USER"
	EnvDBName = "TAPIFY_DB_NAME"

	EnvRedisURL = "TAPIFY_REDIS_URL"

	EnvJWTSecret  = "TAPIFY_JWT_SECRET"
	EnvJWTIssuer  = "TAPIFY_JWT_ISSUER"
	EnvJWTExpMins = "TAPIFY_JWT_EXPIRATION_MINUTES"

	EnvPayoutsRecentOrderLimit = "TAPIFY_PAYOUTS_RECENT_ORDER_LIMIT"
	EnvPayoutsTriggerTimeout   = "TAPIFY_PAYOUTS_TRIGGER_TIMEOUT"
	EnvPayoutsBatchConcurrency = "TAPIFY_PAYOUTS_BATCH_CONCURRENCY"
	EnvPayoutsMaxBatchSize     = "TAPIFY_PAYOUTS_MAX_BATCH_SIZE"

	EnvDisbursementBaseURL = "TAPIFY_DISBURSEMENT_BASE_URL"
	EnvDisbursementAPIKey  = "TAPIFY_DISBURSEMENT_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
