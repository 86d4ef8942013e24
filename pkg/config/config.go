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
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	Payouts      PayoutsConfig
	Disbursement DisbursementConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payouts.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDatabase reads only the app and database groups, for tooling that
// never serves traffic.
func LoadDatabase() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg.App); err != nil {
		return nil, fmt.Errorf("parsing app config: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.DB); err != nil {
		return nil, fmt.Errorf("parsing db config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TAPIFY_APP_ENV" required:"true"`
	Port         string `envconfig:"TAPIFY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TAPIFY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TAPIFY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TAPIFY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TAPIFY_DB_DSN"`
	Driver string `envconfig:"TAPIFY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TAPIFY_DB_HOST"`
	LegacyPort     int    `envconfig:"TAPIFY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TAPIFY_DB_USER"`
	LegacyPassword string `envconfig:"TAPIFY_DB_PASSWORD"`
	LegacyName     string `envconfig:"TAPIFY_DB_NAME"`
	LegacySSLMode  string `envconfig:"TAPIFY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TAPIFY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TAPIFY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TAPIFY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TAPIFY_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"TAPIFY_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
	LogQueries         bool          `envconfig:"TAPIFY_DB_LOG_QUERIES" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TAPIFY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TAPIFY_REDIS_ADDR"`
	Password     string        `envconfig:"TAPIFY_REDIS_PASSWORD"`
	DB           int           `envconfig:"TAPIFY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TAPIFY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TAPIFY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TAPIFY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TAPIFY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TAPIFY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TAPIFY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TAPIFY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TAPIFY_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TAPIFY_AUTO_MIGRATE" default:"false"`
	// RequireSession rejects tokens whose session key is missing from Redis.
	RequireSession bool `envconfig:"TAPIFY_REQUIRE_SESSION" default:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"TAPIFY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// PayoutsConfig bounds the ledger read and the provider dispatch.
type PayoutsConfig struct {
	RecentOrderLimit    int           `envconfig:"TAPIFY_PAYOUTS_RECENT_ORDER_LIMIT" default:"200"`
	TriggerTimeout      time.Duration `envconfig:"TAPIFY_PAYOUTS_TRIGGER_TIMEOUT" default:"30s"`
	BatchConcurrency    int           `envconfig:"TAPIFY_PAYOUTS_BATCH_CONCURRENCY" default:"5"`
	MaxBatchSize        int           `envconfig:"TAPIFY_PAYOUTS_MAX_BATCH_SIZE" default:"200"`
	IdempotencyKeyTTL   time.Duration `envconfig:"TAPIFY_PAYOUTS_IDEMPOTENCY_TTL" default:"24h"`
	CommissionUpdateTTL time.Duration `envconfig:"TAPIFY_COMMISSION_IDEMPOTENCY_TTL" default:"1h"`
	TriggerRateLimit    int64         `envconfig:"TAPIFY_PAYOUTS_TRIGGER_RATE_LIMIT" default:"30"`
	TriggerRateWindow   time.Duration `envconfig:"TAPIFY_PAYOUTS_TRIGGER_RATE_WINDOW" default:"1m"`
}

func (p PayoutsConfig) validate() error {
	if p.RecentOrderLimit <= 0 {
		return fmt.Errorf("%s must be positive", EnvPayoutsRecentOrderLimit)
	}
	if p.TriggerTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvPayoutsTriggerTimeout)
	}
	if p.BatchConcurrency <= 0 {
		return fmt.Errorf("%s must be positive", EnvPayoutsBatchConcurrency)
	}
	if p.MaxBatchSize <= 0 {
		return fmt.Errorf("%s must be positive", EnvPayoutsMaxBatchSize)
	}
	return nil
}

// DisbursementConfig points at the external payout execution endpoint.
type DisbursementConfig struct {
	BaseURL     string `envconfig:"TAPIFY_DISBURSEMENT_BASE_URL" required:"true"`
	APIKey      string `envconfig:"TAPIFY_DISBURSEMENT_API_KEY" required:"true"`
	ExecutePath string `envconfig:"TAPIFY_DISBURSEMENT_EXECUTE_PATH" default:"/payouts/execute"`
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
