package config

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTSecret string
	JWTExpiry time.Duration

	OTPExpiry time.Duration

	RegisterLimit RateLimit
	ResendLimit   RateLimit
	ForgotLimit   RateLimit

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users string
	OTPs  string
}

// RateLimit bounds attempts per key to Limit within a trailing Window.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

// Load reads all configuration from environment variables.
// When JWT_SECRET is unset a random one is generated for the process
// lifetime; issued tokens then do not survive a restart.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "8000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users: getEnv("DYNAMO_TABLE_USERS", "users"),
			OTPs:  getEnv("DYNAMO_TABLE_OTPS", "otps"),
		},

		JWTSecret: loadJWTSecret(),
		JWTExpiry: time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,

		OTPExpiry: time.Duration(getEnvInt("OTP_EXPIRY_MINUTES", 10)) * time.Minute,

		RegisterLimit: RateLimit{
			Limit:  getEnvInt("REGISTER_RATE_LIMIT", 5),
			Window: time.Duration(getEnvInt("REGISTER_RATE_WINDOW_MINUTES", 15)) * time.Minute,
		},
		ResendLimit: RateLimit{
			Limit:  getEnvInt("RESEND_RATE_LIMIT", 3),
			Window: time.Duration(getEnvInt("RESEND_RATE_WINDOW_MINUTES", 5)) * time.Minute,
		},
		ForgotLimit: RateLimit{
			Limit:  getEnvInt("FORGOT_RATE_LIMIT", 3),
			Window: time.Duration(getEnvInt("FORGOT_RATE_WINDOW_MINUTES", 15)) * time.Minute,
		},

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "noreply@example.com"),

		AllowedOrigins: strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
	}
}

func loadJWTSecret() string {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return s
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	slog.Warn("JWT_SECRET not set; generated an ephemeral secret; tokens will not survive a restart")
	return hex.EncodeToString(b)
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
