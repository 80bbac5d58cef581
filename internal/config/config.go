package config

import (
	"os"
	"strconv"
)

// OpenEdXConfig holds connection settings for the Open edX LMS APIs.
type OpenEdXConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	VerifySSL    bool
	TimeoutSec   int
}

// StripeConfig holds Stripe payment settings.
type StripeConfig struct {
	SecretKey     string
	PublicKey     string
	WebhookSecret string
	Currency      string
}

// DatabaseConfig holds MySQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	UseTLS   bool
}

// AdminConfig holds credentials for the seeded admin account.
// Seeding is skipped when the email is empty.
type AdminConfig struct {
	Username string
	Email    string
	Password string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port                string
	Env                 string
	MaintenanceSchedule string
	Database            DatabaseConfig
	OpenEdX             OpenEdXConfig
	Stripe              StripeConfig
	Admin               AdminConfig
}

// Load reads configuration from environment variables.
// A .env file can be loaded beforehand with godotenv; real environment
// variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port:                getEnv("PORT", "5000"),
		Env:                 getEnv("APP_ENV", "development"),
		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "@hourly"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "edx_store"),
			UseTLS:   getEnvBool("DB_USE_TLS", false),
		},
		OpenEdX: OpenEdXConfig{
			BaseURL:      getEnv("OPENEDX_URL", ""),
			ClientID:     getEnv("OPENEDX_CLIENT_ID", ""),
			ClientSecret: getEnv("OPENEDX_CLIENT_SECRET", ""),
			VerifySSL:    getEnvBool("VERIFY_SSL", false),
			TimeoutSec:   getEnvInt("OPENEDX_TIMEOUT_SEC", 10),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			PublicKey:     getEnv("STRIPE_PUBLIC_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:      getEnv("STRIPE_CURRENCY", "usd"),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
