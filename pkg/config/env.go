package config

const EnvPrefix = "CARTA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:carta.db?_foreign_keys=on"
)

const (
	EnvAppEnv                 = "CARTA_APP_ENV"
	EnvPort                   = "CARTA_APP_PORT"
	EnvLogLevel               = "CARTA_LOG_LEVEL"
	EnvDBDSN                  = "CARTA_DB_DSN"
	EnvDBDriver               = "CARTA_DB_DRIVER"
	EnvDBHost                 = "CARTA_DB_HOST"
	EnvDBUser                 = "CARTA_DB_USER"
	EnvDBName                 = "CARTA_DB_NAME"
	EnvRedisURL               = "CARTA_REDIS_URL"
	EnvJWTSecret              = "CARTA_JWT_SECRET"
	EnvJWTIssuer              = "CARTA_JWT_ISSUER"
	EnvJWTExpMins             = "CARTA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CARTA_REFRESH_TOKEN_TTL_MINUTES"
	EnvCORSOrigins            = "CARTA_CORS_ORIGINS"
	EnvUploadDir              = "CARTA_UPLOAD_DIR"
	EnvLowStockServings       = "CARTA_AVAILABILITY_LOW_STOCK_SERVINGS"
	EnvBootstrapAdminEmail    = "CARTA_BOOTSTRAP_ADMIN_EMAIL"
	EnvBootstrapAdminPassword = "CARTA_BOOTSTRAP_ADMIN_PASSWORD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
