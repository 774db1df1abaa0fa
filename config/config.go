package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort                      = "8080"
	DefaultAccessTokenExpiryMin      = 15
	DefaultRefreshTokenExpiryMin     = 10080
	DefaultMaxActiveRefreshTokens    = 10
	DefaultLoginMaxAttempts          = 5
	DefaultLoginWindowMinutes        = 15
	DefaultLockoutDurationMinutes    = 30
	DefaultEmailVerificationExpiry   = 1440
	DefaultPasswordResetExpiry       = 60
	DefaultLoginAttemptRetentionDays = 90
	DefaultCleanupIntervalMinutes    = 60
	DefaultRateLimitMax              = 20
	DefaultRateLimitWindowSeconds    = 60
	DefaultMailDriver                = "log"
	DefaultAppURL                    = "http://localhost:3000"
	DefaultMailFrom                  = "noreply@example.com"
	DefaultSupportEmail              = "support@example.com"
)

type Config struct {
	Env                string
	Port               string
	DBURL              string
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessExpiryMin    int
	RefreshExpiryMin   int

	MaxActiveRefreshTokens int
	LoginMaxAttempts       int
	LoginWindowMinutes     int
	LockoutDurationMinutes int

	EmailVerificationExpiryMin int
	PasswordResetExpiryMin     int

	LoginAttemptRetentionDays int
	CleanupIntervalMinutes    int

	RedisURL               string
	RateLimitMax           int
	RateLimitWindowSeconds int

	AppURL       string
	MailDriver   string
	MailFrom     string
	AWSRegion    string
	SupportEmail string

	CORSOrigins []string
	LogLevel    string
}

// Load reads config/.env.dev (or config/.env.prod when ENV=production) and
// then the process environment, which takes precedence over file values.
func Load() *Config {
	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}
	loadEnvFile(env)

	return &Config{
		Env:                env,
		Port:               getEnv("PORT", DefaultPort),
		DBURL:              mustGetEnv("DB_URL"),
		AccessTokenSecret:  mustGetEnv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: mustGetEnv("REFRESH_TOKEN_SECRET"),
		AccessExpiryMin:    getEnvAsInt("ACCESS_TOKEN_EXPIRY", DefaultAccessTokenExpiryMin),
		RefreshExpiryMin:   getEnvAsInt("REFRESH_TOKEN_EXPIRY", DefaultRefreshTokenExpiryMin),

		MaxActiveRefreshTokens: getEnvAsInt("MAX_ACTIVE_REFRESH_TOKENS", DefaultMaxActiveRefreshTokens),
		LoginMaxAttempts:       getEnvAsInt("LOGIN_MAX_ATTEMPTS", DefaultLoginMaxAttempts),
		LoginWindowMinutes:     getEnvAsInt("LOGIN_WINDOW_MINUTES", DefaultLoginWindowMinutes),
		LockoutDurationMinutes: getEnvAsInt("LOCKOUT_DURATION_MINUTES", DefaultLockoutDurationMinutes),

		EmailVerificationExpiryMin: getEnvAsInt("EMAIL_VERIFICATION_EXPIRY", DefaultEmailVerificationExpiry),
		PasswordResetExpiryMin:     getEnvAsInt("PASSWORD_RESET_EXPIRY", DefaultPasswordResetExpiry),

		LoginAttemptRetentionDays: getEnvAsInt("LOGIN_ATTEMPT_RETENTION_DAYS", DefaultLoginAttemptRetentionDays),
		CleanupIntervalMinutes:    getEnvAsInt("CLEANUP_INTERVAL_MINUTES", DefaultCleanupIntervalMinutes),

		RedisURL:               lookup("REDIS_URL"),
		RateLimitMax:           getEnvAsInt("RATE_LIMIT_MAX", DefaultRateLimitMax),
		RateLimitWindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", DefaultRateLimitWindowSeconds),

		AppURL:       getEnv("APP_URL", DefaultAppURL),
		MailDriver:   getEnv("MAIL_DRIVER", DefaultMailDriver),
		MailFrom:     getEnv("MAIL_FROM", DefaultMailFrom),
		AWSRegion:    lookup("AWS_REGION"),
		SupportEmail: getEnv("SUPPORT_EMAIL", DefaultSupportEmail),

		CORSOrigins: getEnvAsList("CORS_ORIGINS"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// fileValues holds the values read from the active .env file. They are kept
// out of the process environment so a real variable always wins.
var fileValues map[string]string

func loadEnvFile(env string) {
	fileValues = nil

	filename := ".env.dev"
	if env == "production" {
		filename = ".env.prod"
	}

	path := filepath.Join("config", filename)
	if _, err := os.Stat(path); err != nil {
		return
	}

	values, err := godotenv.Read(path)
	if err != nil {
		log.Printf("Failed to read %s: %v", path, err)
		return
	}
	fileValues = values
}

func lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fileValues[key]
}

func getEnv(key string, defaultVal string) string {
	if value := lookup(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := lookup(key); value != "" {
		return value
	}
	log.Fatalf("Missing required config: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := lookup(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(lookup(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
