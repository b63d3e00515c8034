package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration. It is built once at
// process start and treated as immutable afterwards.
type Config struct {
	// API contains API server configuration
	API APIConfig
	// Auth contains authentication configuration
	Auth AuthConfig
	// Database contains database configuration
	Database DatabaseConfig
	// Email contains email service configuration
	Email EmailConfig
	// Security contains the account security policy
	Security SecurityConfig
	// Maintenance contains the background maintenance schedule
	Maintenance MaintenanceConfig
}

// APIConfig contains API server settings
type APIConfig struct {
	// Port is the server port to listen on
	Port string
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	// JWTSecret is the secret key used to sign JWT tokens
	JWTSecret string
	// AccessTokenDuration is the lifetime of access tokens
	AccessTokenDuration time.Duration
	// RefreshTokenDuration is the lifetime of refresh tokens
	RefreshTokenDuration time.Duration
	// RegistrationOpen determines if self-registration is allowed
	RegistrationOpen bool
}

// SecurityConfig contains the account blocking and anomaly policy.
// The defaults mirror the documented policy: three strikes, 30 minute
// block, doubled under detected anomaly.
type SecurityConfig struct {
	// MaxFailedAttempts is the consecutive failure count that blocks an account
	MaxFailedAttempts int
	// BlockDuration is the temporary block length for a clean auto-block
	BlockDuration time.Duration
	// AnomalyBlockDuration is used instead when anomaly flags fired at block time
	AnomalyBlockDuration time.Duration
	// PasswordExpiry is the advisory password age limit (not a hard login block)
	PasswordExpiry time.Duration
	// FailureDedupWindow collapses duplicate failure handling per account+IP
	FailureDedupWindow time.Duration
}

// MaintenanceConfig contains the token-purge scheduler settings
type MaintenanceConfig struct {
	// Enabled determines if the cron scheduler runs
	Enabled bool
	// Schedule is the cron expression for the token purge job
	Schedule string
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// EmailConfig contains email service settings
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromAddress  string
	AppURL       string
}

// LoadFromEnv retrieves configuration from environment variables
func (c *Config) LoadFromEnv() error {
	c.API = APIConfig{
		Port: getEnvOrDefault("API_PORT", "8080"),
	}
	c.Database = DatabaseConfig{
		Host:           getEnvOrDefault("DB_HOST", "localhost"),
		Port:           getEnvAsInt("DB_PORT", 5432),
		User:           getEnvOrDefault("DB_USER", "postgres"),
		Password:       getEnvOrDefault("DB_PASSWORD", "postgres"),
		DBName:         getEnvOrDefault("DB_NAME", "finwatch"),
		SSLMode:        getEnvOrDefault("DB_SSL_MODE", "disable"),
		MigrationsPath: getEnvOrDefault("DB_MIGRATIONS_PATH", "migrations"),
	}
	c.Auth = AuthConfig{
		JWTSecret:            os.Getenv("JWT_SECRET"),
		AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
		RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
		RegistrationOpen:     getEnvAsBool("REGISTRATION_OPEN", true),
	}
	c.Security = SecurityConfig{
		MaxFailedAttempts:    getEnvAsInt("SECURITY_MAX_FAILED_ATTEMPTS", 3),
		BlockDuration:        getEnvAsDuration("SECURITY_BLOCK_DURATION", 30*time.Minute),
		AnomalyBlockDuration: getEnvAsDuration("SECURITY_ANOMALY_BLOCK_DURATION", 60*time.Minute),
		PasswordExpiry:       getEnvAsDuration("SECURITY_PASSWORD_EXPIRY", 90*24*time.Hour),
		FailureDedupWindow:   getEnvAsDuration("SECURITY_FAILURE_DEDUP_WINDOW", 2*time.Second),
	}
	c.Maintenance = MaintenanceConfig{
		Enabled:  getEnvAsBool("MAINTENANCE_ENABLED", true),
		Schedule: getEnvOrDefault("MAINTENANCE_SCHEDULE", "0 * * * *"),
	}
	c.Email = EmailConfig{
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FromAddress:  os.Getenv("SMTP_FROM"),
		AppURL:       os.Getenv("APP_URL"),
	}

	// Validate required fields
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Security.MaxFailedAttempts < 1 {
		return fmt.Errorf("SECURITY_MAX_FAILED_ATTEMPTS must be at least 1")
	}

	return nil
}

// getEnvAsInt retrieves an environment variable and converts it to an integer
func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvAsBool retrieves an environment variable and converts it to a boolean
func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvAsDuration retrieves an environment variable and parses it as a duration
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvOrDefault(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
