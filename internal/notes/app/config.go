package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/notes/internal/notes/mail"
	"github.com/aussiebroadwan/notes/pkg/googleid"
	"github.com/aussiebroadwan/notes/pkg/jwtx"
)

// devJWTSecret is only accepted outside production.
const devJWTSecret = "notes-dev-secret-change-me-notes-dev-secret"

type Config struct {
	DatabaseURL string // sqlite file path, or a postgres:// URL (default: notes.db)

	JWTSecret string        // HS256 session secret, at least 32 bytes
	JWTIssuer string        // iss claim (default: notes-api)
	TokenTTL  time.Duration // session lifetime (default: 1h)

	GoogleClientID        string        // Google sign-in is disabled when empty
	GoogleJWKSURL         string        // default: Google's v3 certs endpoint
	GoogleRefreshInterval time.Duration // background key refresh (default: 1h)

	SMTPHost string // log mailer when empty
	SMTPPort int    // default: 587
	SMTPUser string
	SMTPPass string
	AppOwner string // sender address (default: no-reply@localhost)

	TOTPIssuer        string // authenticator label (default: Noteapp)
	TOTPEncryptionKey string // sealing key material (default: JWTSecret)

	AllowedOrigins []string // CORS origins (default: *)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 5000)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory if one exists.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL: getEnvOrDefault("DATABASE_URL", "notes.db"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getEnvOrDefault("JWT_ISSUER", "notes-api"),
		TokenTTL:  getEnvDurationOrDefault("JWT_TTL", jwtx.DefaultSessionTTL),

		GoogleClientID:        os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleJWKSURL:         getEnvOrDefault("GOOGLE_JWKS_URL", googleid.DefaultJWKSURL),
		GoogleRefreshInterval: getEnvDurationOrDefault("GOOGLE_JWKS_REFRESH_INTERVAL", time.Hour),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnvIntOrDefault("SMTP_PORT", mail.DefaultPort),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		AppOwner: getEnvOrDefault("APP_OWNER", "no-reply@localhost"),

		TOTPIssuer:        getEnvOrDefault("TOTP_ISSUER", "Noteapp"),
		TOTPEncryptionKey: os.Getenv("TOTP_ENCRYPTION_KEY"),

		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 5000),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	return cfg
}

// Validate fills defaults that depend on the environment and rejects unsafe
// production settings.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if c.Env == "prod" {
			return errors.New("JWT_SECRET is required when ENV=prod")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.Env == "prod" && c.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must not be the development default when ENV=prod")
	}
	if len(c.JWTSecret) < jwtx.MinSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", jwtx.MinSecretLen)
	}
	if c.TOTPEncryptionKey == "" {
		c.TOTPEncryptionKey = c.JWTSecret
	}
	if c.TokenTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	return nil
}

// UsesPostgres reports whether DatabaseURL names a postgres server.
func (c Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
