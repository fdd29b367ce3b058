package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "HARDWARE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "HARDWARE_APP_ENV"
	EnvPort   = "PORT"
	EnvDBDSN  = "HARDWARE_DB_DSN"
	EnvDBHost = "HARDWARE_DB_HOST"
	EnvDBUser = "HARDWARE_DB_USER"
	EnvDBName = "HARDWARE_DB_NAME"

	EnvDBDriver     = "HARDWARE_DB_DRIVER"
	EnvRedisURL     = "HARDWARE_REDIS_URL"
	EnvJWTSecret    = "HARDWARE_JWT_SECRET"
	EnvJWTExpMins   = "HARDWARE_JWT_EXPIRATION_MINUTES"
	EnvKafkaBrokers = "HARDWARE_KAFKA_BROKERS"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Outbox       OutboxConfig
	Kafka        KafkaConfig
	Metrics      MetricsConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HARDWARE_APP_ENV" required:"true"`
	Port         string `envconfig:"HARDWARE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"HARDWARE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HARDWARE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"HARDWARE_LOG_FORMAT" default:"json"`
	CORSOrigins  string `envconfig:"HARDWARE_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	origins := []string{}
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

type DBConfig struct {
	DSN    string `envconfig:"HARDWARE_DB_DSN"`
	Driver string `envconfig:"HARDWARE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HARDWARE_DB_HOST"`
	LegacyPort     int    `envconfig:"HARDWARE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HARDWARE_DB_USER"`
	LegacyPassword string `envconfig:"HARDWARE_DB_PASSWORD"`
	LegacyName     string `envconfig:"HARDWARE_DB_NAME"`
	LegacySSLMode  string `envconfig:"HARDWARE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HARDWARE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HARDWARE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HARDWARE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HARDWARE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// Statements slower than this are logged at warn. Zero disables it.
	SlowQueryThreshold time.Duration `envconfig:"HARDWARE_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"HARDWARE_REDIS_URL"`
	Address      string        `envconfig:"HARDWARE_REDIS_ADDR"`
	Password     string        `envconfig:"HARDWARE_REDIS_PASSWORD"`
	DB           int           `envconfig:"HARDWARE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HARDWARE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HARDWARE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HARDWARE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HARDWARE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HARDWARE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"HARDWARE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"HARDWARE_JWT_ISSUER" default:"hardware-backend"`
	ExpirationMinutes      int    `envconfig:"HARDWARE_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"HARDWARE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"HARDWARE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"HARDWARE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"HARDWARE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"HARDWARE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"HARDWARE_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	LoginWindow             time.Duration `envconfig:"HARDWARE_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIdentifierLimit    int           `envconfig:"HARDWARE_RATE_LIMIT_LOGIN_IDENTIFIER_LIMIT" default:"5"`
	LoginIPLimit            int           `envconfig:"HARDWARE_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow          time.Duration `envconfig:"HARDWARE_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIdentifierLimit int           `envconfig:"HARDWARE_RATE_LIMIT_REGISTER_IDENTIFIER_LIMIT" default:"3"`
	RegisterIPLimit         int           `envconfig:"HARDWARE_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HARDWARE_AUTO_MIGRATE" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"HARDWARE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HARDWARE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HARDWARE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MaxBackoffMS   int `envconfig:"HARDWARE_OUTBOX_MAX_BACKOFF_MS" default:"60000"`
}

type KafkaConfig struct {
	Brokers      string        `envconfig:"HARDWARE_KAFKA_BROKERS" default:"localhost:9092"`
	TopicPrefix  string        `envconfig:"HARDWARE_KAFKA_TOPIC_PREFIX" default:"hardware"`
	ClientID     string        `envconfig:"HARDWARE_KAFKA_CLIENT_ID" default:"hardware-outbox"`
	WriteTimeout time.Duration `envconfig:"HARDWARE_KAFKA_WRITE_TIMEOUT" default:"10s"`

	// When set the publisher creates missing topics on startup instead of
	// relying on broker-side auto creation.
	CreateTopics      bool `envconfig:"HARDWARE_KAFKA_CREATE_TOPICS" default:"false"`
	TopicPartitions   int  `envconfig:"HARDWARE_KAFKA_TOPIC_PARTITIONS" default:"3"`
	ReplicationFactor int  `envconfig:"HARDWARE_KAFKA_REPLICATION_FACTOR" default:"1"`
}

// BrokerList returns the configured brokers as a slice.
func (k KafkaConfig) BrokerList() []string {
	brokers := []string{}
	for _, broker := range strings.Split(k.Brokers, ",") {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"HARDWARE_CRON_INTERVAL" default:"1h"`
	LockTTL             time.Duration `envconfig:"HARDWARE_CRON_LOCK_TTL" default:"55m"`
	OutboxRetentionDays int           `envconfig:"HARDWARE_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"HARDWARE_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"HARDWARE_METRICS_PATH" default:"/metrics"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:hardware.db?cache=shared"
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
