package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=15s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestBodyBytes   int64         `env:"MAX_REQUEST_BODY_BYTES,default=26214400"`

	// document store: memory, postgres, sqlite or dynamodb
	StoreBackend string `env:"STORE_BACKEND,default=memory"`

	// postgres settings
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS,default=4"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS,default=0"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME,default=60m"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME,default=30m"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT,default=10s"`

	// sqlite settings
	SQLitePath string `env:"SQLITE_PATH,default=docsign.db"`

	// AWS settings (dynamodb store and s3 ciphertext offload)
	AWSRegion      string `env:"AWS_REGION,default=us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"`
	DynamoDBTable  string `env:"DYNAMODB_TABLE,default=documents"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3Prefix       string `env:"S3_PREFIX,default=documents/"`

	// per-document lock: local or redis
	LockBackend   string        `env:"LOCK_BACKEND,default=local"`
	RedisAddr     string        `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB,default=0"`
	LockTTL       time.Duration `env:"LOCK_TTL,default=10s"`

	// bearer token verification (tokens are issued elsewhere)
	TokenSecret   string `env:"TOKEN_SECRET,required=true"`
	TokenIssuer   string `env:"TOKEN_ISSUER"`
	TokenJWKSURL  string `env:"TOKEN_JWKS_URL"`
	TokenAudience string `env:"TOKEN_AUDIENCE"`

	// notification sink: log, webhook or smtp
	NotifySink       string        `env:"NOTIFY_SINK,default=log"`
	NotifyWebhookURL string        `env:"NOTIFY_WEBHOOK_URL"`
	NotifyTimeout    time.Duration `env:"NOTIFY_TIMEOUT,default=5s"`
	SMTPAddr         string        `env:"SMTP_ADDR"`
	SMTPFrom         string        `env:"SMTP_FROM"`
	SMTPUsername     string        `env:"SMTP_USERNAME"`
	SMTPPassword     string        `env:"SMTP_PASSWORD"`

	// workflow settings
	ExpiryWindow       time.Duration `env:"EXPIRY_WINDOW,default=168h"`
	DelayExtension     time.Duration `env:"DELAY_EXTENSION,default=168h"`
	RejectBackdate     time.Duration `env:"REJECT_BACKDATE,default=24h"`
	MaxConflictRetries int           `env:"MAX_CONFLICT_RETRIES,default=3"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

var validStoreBackends = map[string]bool{
	"memory":   true,
	"postgres": true,
	"sqlite":   true,
	"dynamodb": true,
}

var validNotifySinks = map[string]bool{
	"log":     true,
	"webhook": true,
	"smtp":    true,
}

// minTokenSecretLength is the minimum HS256 secret length (bytes).
const minTokenSecretLength = 32

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil

}

// validateConfig checks for required env variables
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	if cfg.MaxRequestBodyBytes < 1 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be at least 1")
	}

	if !validStoreBackends[cfg.StoreBackend] {
		return fmt.Errorf("invalid STORE_BACKEND: %s", cfg.StoreBackend)
	}
	switch cfg.StoreBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_BACKEND=sqlite")
		}
	case "dynamodb":
		if cfg.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required when STORE_BACKEND=dynamodb")
		}
	}

	// Validate database pool configuration
	if cfg.DBMaxConnections < 1 {
		return fmt.Errorf("DB_MAX_CONNECTIONS must be at least 1")
	}
	if cfg.DBMinConnections < 0 {
		return fmt.Errorf("DB_MIN_CONNECTIONS must be 0 or greater")
	}
	if cfg.DBMinConnections > cfg.DBMaxConnections {
		return fmt.Errorf("DB_MIN_CONNECTIONS (%d) cannot be greater than DB_MAX_CONNECTIONS (%d)",
			cfg.DBMinConnections, cfg.DBMaxConnections)
	}

	switch cfg.LockBackend {
	case "local":
	case "redis":
		if cfg.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when LOCK_BACKEND=redis")
		}
	default:
		return fmt.Errorf("invalid LOCK_BACKEND: %s", cfg.LockBackend)
	}
	if cfg.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}

	if len(cfg.TokenSecret) < minTokenSecretLength {
		return fmt.Errorf("TOKEN_SECRET must be at least %d bytes", minTokenSecretLength)
	}

	if !validNotifySinks[cfg.NotifySink] {
		return fmt.Errorf("invalid NOTIFY_SINK: %s", cfg.NotifySink)
	}
	if cfg.NotifySink == "webhook" && cfg.NotifyWebhookURL == "" {
		return fmt.Errorf("NOTIFY_WEBHOOK_URL is required when NOTIFY_SINK=webhook")
	}
	if cfg.NotifySink == "smtp" && (cfg.SMTPAddr == "" || cfg.SMTPFrom == "") {
		return fmt.Errorf("SMTP_ADDR and SMTP_FROM are required when NOTIFY_SINK=smtp")
	}

	if cfg.ExpiryWindow <= 0 {
		return fmt.Errorf("EXPIRY_WINDOW must be positive")
	}
	if cfg.DelayExtension <= 0 {
		return fmt.Errorf("DELAY_EXTENSION must be positive")
	}
	if cfg.RejectBackdate <= 0 {
		return fmt.Errorf("REJECT_BACKDATE must be positive")
	}
	if cfg.MaxConflictRetries < 0 {
		return fmt.Errorf("MAX_CONFLICT_RETRIES must be 0 or greater")
	}

	return nil
}
