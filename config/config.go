package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadENV loads variables from .env when GO_ENV is unset or "development"
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	GO_ENV    string
	PORT      int
	LOG_LEVEL string
	APP_URL   string

	// Database
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string

	// JWT
	JWT_SECRET string
	JWT_ISSUER string

	// Redis
	REDIS_URL string

	// Rate limiting
	RATE_LIMIT_STORE           string // memory | redis
	RATE_LIMIT_REQUESTS        int
	RATE_LIMIT_WINDOW_SECONDS  int
	RATE_LIMIT_TRUSTED_PROXIES []string // peers allowed to set X-User-ID

	// MoMo wallet
	MOMO_PARTNER_CODE string
	MOMO_ACCESS_KEY   string
	MOMO_SECRET_KEY   string
	MOMO_ENDPOINT     string
	MOMO_REDIRECT_URL string
	MOMO_IPN_URL      string

	// SMTP
	SMTP_HOST     string
	SMTP_PORT     int
	SMTP_USERNAME string
	SMTP_PASSWORD string
	SMTP_FROM     string

	// S3-compatible receipt storage
	SPACES_ACCESS_KEY string
	SPACES_SECRET_KEY string
	SPACES_BUCKET     string
	SPACES_REGION     string
	SPACES_ENDPOINT   string
	SPACES_CDN_URL    string

	CRON_ENABLED    bool
	ALLOWED_ORIGINS string
}

// IsProduction reports whether GO_ENV is "production"
func (e *EnvironmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}

func Get() (*EnvironmentVariable, error) {
	envVariables := &EnvironmentVariable{
		GO_ENV:    os.Getenv("GO_ENV"),
		PORT:      getInt("PORT", 8080),
		LOG_LEVEL: getOrDefault("LOG_LEVEL", "info"),
		APP_URL:   getOrDefault("APP_URL", "http://localhost:3000"),

		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getOrDefault("DB_HOST", "localhost"),
		DB_PORT:      getOrDefault("DB_PORT", "5432"),
		DB_SSL_MODE:  getOrDefault("DB_SSL_MODE", "disable"),

		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: getOrDefault("JWT_ISSUER", "lessionprm-api"),

		REDIS_URL: getOrDefault("REDIS_URL", "redis://localhost:6379/0"),

		RATE_LIMIT_STORE:           strings.ToLower(getOrDefault("RATE_LIMIT_STORE", "memory")),
		RATE_LIMIT_REQUESTS:        getInt("RATE_LIMIT_REQUESTS", 60),
		RATE_LIMIT_WINDOW_SECONDS:  getInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RATE_LIMIT_TRUSTED_PROXIES: getList("RATE_LIMIT_TRUSTED_PROXIES"),

		MOMO_PARTNER_CODE: os.Getenv("MOMO_PARTNER_CODE"),
		MOMO_ACCESS_KEY:   os.Getenv("MOMO_ACCESS_KEY"),
		MOMO_SECRET_KEY:   os.Getenv("MOMO_SECRET_KEY"),
		MOMO_ENDPOINT:     getOrDefault("MOMO_ENDPOINT", "https://test-payment.momo.vn/v2/gateway/api/create"),
		MOMO_REDIRECT_URL: os.Getenv("MOMO_REDIRECT_URL"),
		MOMO_IPN_URL:      os.Getenv("MOMO_IPN_URL"),

		SMTP_HOST:     getOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTP_PORT:     getInt("SMTP_PORT", 587),
		SMTP_USERNAME: os.Getenv("SMTP_USERNAME"),
		SMTP_PASSWORD: os.Getenv("SMTP_PASSWORD"),
		SMTP_FROM:     getOrDefault("SMTP_FROM", "noreply@lessionprm.app"),

		SPACES_ACCESS_KEY: os.Getenv("SPACES_ACCESS_KEY"),
		SPACES_SECRET_KEY: os.Getenv("SPACES_SECRET_KEY"),
		SPACES_BUCKET:     os.Getenv("SPACES_BUCKET"),
		SPACES_REGION:     os.Getenv("SPACES_REGION"),
		SPACES_ENDPOINT:   os.Getenv("SPACES_ENDPOINT"),
		SPACES_CDN_URL:    os.Getenv("SPACES_CDN_URL"),

		CRON_ENABLED:    os.Getenv("CRON_ENABLED") != "false",
		ALLOWED_ORIGINS: getOrDefault("ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	return envVariables, nil
}

func getOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getInt(key string, defaultVal int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}
