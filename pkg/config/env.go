package config

// EnvPrefix is passed to envconfig; the struct tags carry full names so
// the prefix only matters for variables without explicit tags.
const EnvPrefix = "QUARTERMASTER"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv     = "QUARTERMASTER_APP_ENV"
	EnvPort       = "QUARTERMASTER_APP_PORT"
	EnvDBDSN      = "QUARTERMASTER_DB_DSN"
	EnvDBHost     = "QUARTERMASTER_DB_HOST"
	EnvDBUser     = "QUARTERMASTER_DB_USER"
	EnvDBName     = "QUARTERMASTER_DB_NAME"
	EnvRedisURL   = "QUARTERMASTER_REDIS_URL"
	EnvJWTSecret  = "QUARTERMASTER_JWT_SECRET"
	EnvJWTIssuer  = "QUARTERMASTER_JWT_ISSUER"
	EnvS3Bucket   = "QUARTERMASTER_S3_BUCKET"
	EnvS3Region   = "QUARTERMASTER_S3_REGION"
	EnvURLExpiry  = "QUARTERMASTER_S3_DOWNLOAD_URL_EXPIRY"
	EnvCORSOrigin = "QUARTERMASTER_CORS_ORIGIN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
