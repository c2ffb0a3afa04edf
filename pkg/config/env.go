package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:storefront.db?cache=shared&_foreign_keys=on"
)

const (
	PaymentProviderStripe = "stripe"
	PaymentProviderSquare = "square"
)

const (
	EnvAppEnv       = "STOREFRONT_APP_ENV"
	EnvPort         = "STOREFRONT_APP_PORT"
	EnvDBDSN        = "STOREFRONT_DB_DSN"
	EnvDBDriver     = "STOREFRONT_DB_DRIVER"
	EnvDBHost       = "STOREFRONT_DB_HOST"
	EnvDBUser       = "STOREFRONT_DB_USER"
	EnvDBName       = "STOREFRONT_DB_NAME"
	EnvDBPassword   = "STOREFRONT_DB_PASSWORD"
	EnvRedisURL     = "STOREFRONT_REDIS_URL"
	EnvJWTSecret    = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer    = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins   = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvCORSOrigins  = "STOREFRONT_CORS_ALLOWED_ORIGINS"
	EnvSlackToken   = "STOREFRONT_SLACK_BOT_TOKEN"
	EnvSlackChannel = "STOREFRONT_SLACK_CHANNEL"

	EnvPaymentsProvider = "STOREFRONT_PAYMENTS_PROVIDER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
