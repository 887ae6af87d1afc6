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
	S3           S3Config
	Media        MediaConfig
	Export       ExportConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
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
	Env          string `envconfig:"QUARTERMASTER_APP_ENV" required:"true"`
	Port         string `envconfig:"QUARTERMASTER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"QUARTERMASTER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QUARTERMASTER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"QUARTERMASTER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"QUARTERMASTER_DB_DSN"`
	Driver string `envconfig:"QUARTERMASTER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"QUARTERMASTER_DB_HOST"`
	LegacyPort     int    `envconfig:"QUARTERMASTER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QUARTERMASTER_DB_USER"`
	LegacyPassword string `envconfig:"QUARTERMASTER_DB_PASSWORD"`
	LegacyName     string `envconfig:"QUARTERMASTER_DB_NAME"`
	LegacySSLMode  string `envconfig:"QUARTERMASTER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUARTERMASTER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUARTERMASTER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUARTERMASTER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUARTERMASTER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUARTERMASTER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"QUARTERMASTER_REDIS_ADDR"`
	Password     string        `envconfig:"QUARTERMASTER_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUARTERMASTER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUARTERMASTER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUARTERMASTER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUARTERMASTER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUARTERMASTER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUARTERMASTER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes how bearer tokens from the external identity
// provider are verified. The API never mints tokens itself.
type JWTConfig struct {
	Secret string `envconfig:"QUARTERMASTER_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"QUARTERMASTER_JWT_ISSUER" required:"true"`
}

type S3Config struct {
	Bucket            string        `envconfig:"QUARTERMASTER_S3_BUCKET" required:"true"`
	Region            string        `envconfig:"QUARTERMASTER_S3_REGION" default:"us-east-1"`
	Endpoint          string        `envconfig:"QUARTERMASTER_S3_ENDPOINT"`
	AccessKeyID       string        `envconfig:"QUARTERMASTER_S3_ACCESS_KEY_ID"`
	SecretAccessKey   string        `envconfig:"QUARTERMASTER_S3_SECRET_ACCESS_KEY"`
	UsePathStyle      bool          `envconfig:"QUARTERMASTER_S3_USE_PATH_STYLE" default:"false"`
	DownloadURLExpiry time.Duration `envconfig:"QUARTERMASTER_S3_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"QUARTERMASTER_MAX_UPLOAD_MB" default:"20"`
}

type ExportConfig struct {
	Timeout time.Duration `envconfig:"QUARTERMASTER_EXPORT_TIMEOUT" default:"2m"`
}

type RateLimitConfig struct {
	MutationWindow time.Duration `envconfig:"QUARTERMASTER_RATE_LIMIT_MUTATION_WINDOW" default:"1m"`
	MutationLimit  int           `envconfig:"QUARTERMASTER_RATE_LIMIT_MUTATION_LIMIT" default:"120"`
	IdempotencyTTL time.Duration `envconfig:"QUARTERMASTER_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"QUARTERMASTER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"QUARTERMASTER_AUTO_MIGRATE" default:"false"`
	SeedRoles   bool `envconfig:"QUARTERMASTER_SEED_ROLES" default:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"QUARTERMASTER_CORS_ORIGIN" default:"*"`
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
