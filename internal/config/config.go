package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string // receipts are skipped when empty
	SNSRegion      string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	RateAPIBaseURL string
	RateAPIKey     string
	RateAPITimeout time.Duration
	RateCacheTTL   time.Duration
	ReservationTTL time.Duration
	RateStreamTick time.Duration

	VerificationBackend string // "memory" | "redis"
	VerificationCodeTTL time.Duration
	ResendCooldown      time.Duration
	ExposeCodes         bool // echo codes in responses; refused in production
	RedisAddr           string
	RedisPassword       string
	RedisDB             int

	KafkaBrokers []string
	KafkaTopic   string

	AllowedOrigins []string // CORS allowed origins
	TrustProxy     bool     // take the client IP from X-Forwarded-For / X-Real-Ip
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users        string
	Currencies   string
	Transactions string
	Watchlists   string
	RateAlerts   string
	Reservations string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:        getEnv("DYNAMO_TABLE_USERS", "users"),
			Currencies:   getEnv("DYNAMO_TABLE_CURRENCIES", "currencies"),
			Transactions: getEnv("DYNAMO_TABLE_TRANSACTIONS", "exchange_transactions"),
			Watchlists:   getEnv("DYNAMO_TABLE_WATCHLISTS", "watchlists"),
			RateAlerts:   getEnv("DYNAMO_TABLE_RATE_ALERTS", "rate_alerts"),
			Reservations: getEnv("DYNAMO_TABLE_RESERVATIONS", "rate_reservations"),
		},
		S3BucketName:        getEnv("S3_BUCKET_NAME", "exchange-receipts"),
		SNSRegion:           getEnv("SNS_REGION", "us-east-1"),
		JWTPrivateKeyPath:   getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:    getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:           getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),
		SMTPHost:            getEnv("SMTP_HOST", "localhost"),
		SMTPPort:            getEnv("SMTP_PORT", "1025"),
		SMTPFrom:            getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		RateAPIBaseURL:      getEnv("RATE_API_BASE_URL", "https://v6.exchangerate-api.com/v6"),
		RateAPIKey:          getEnv("RATE_API_KEY", ""),
		RateAPITimeout:      getEnvDuration("RATE_API_TIMEOUT", 10*time.Second),
		RateCacheTTL:        getEnvDuration("RATE_CACHE_TTL", time.Minute),
		ReservationTTL:      getEnvDuration("RATE_RESERVATION_TTL", 15*time.Minute),
		RateStreamTick:      getEnvDuration("RATE_STREAM_INTERVAL", 10*time.Second),
		VerificationBackend: getEnv("VERIFICATION_BACKEND", "memory"),
		VerificationCodeTTL: getEnvDuration("VERIFICATION_CODE_TTL", 5*time.Minute),
		ResendCooldown:      getEnvDuration("VERIFICATION_RESEND_COOLDOWN", time.Minute),
		ExposeCodes:         getEnvBool("VERIFICATION_EXPOSE_CODES", false),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		KafkaBrokers:        splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "exchange-transactions"),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "*")),
		TrustProxy:          getEnvBool("TRUST_PROXY", false),
	}
	if cfg.AppEnv == "production" {
		cfg.ExposeCodes = false
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "15m"); invalid or
// non-positive values fall back.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
