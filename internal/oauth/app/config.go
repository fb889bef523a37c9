package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	BootstrapToken string // Optional: token required to perform bootstrap

	DatabaseFile string // Optional: path to SQLite database file (default: ./grantd.db)
	PepperFile   string // Optional: path to file containing pepper for secret hashing (default: ./pepper)

	AccessTTL  time.Duration // Access token lifetime (default: 10m)
	RefreshTTL time.Duration // Refresh token lifetime, 0 = no expiry (default: 0)

	GrantDefaultScopes bool // Grant the client's full scope set when none requested (default: false)
	RevokePairedAccess bool // Revoke the paired access token on refresh rotation/revocation (default: false)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	HousekeepingGrace    time.Duration // Retention window for expired token rows (default: 24h)
}

func LoadConfig() Config {
	return Config{
		BootstrapToken: os.Getenv("GRANTD_BOOTSTRAP_TOKEN"),

		DatabaseFile: getEnvOrDefault("GRANTD_DATABASE_FILE", "grantd.db"),
		PepperFile:   getEnvOrDefault("GRANTD_PEPPER_FILE", "pepper"),

		AccessTTL:  getEnvDurationOrDefault("GRANTD_ACCESS_TTL", 10*time.Minute),
		RefreshTTL: getEnvDurationOrDefault("GRANTD_REFRESH_TTL", 0),

		GrantDefaultScopes: getEnvBoolOrDefault("GRANTD_GRANT_DEFAULT_SCOPES", false),
		RevokePairedAccess: getEnvBoolOrDefault("GRANTD_REVOKE_PAIRED_ACCESS", false),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("GRANTD_HOUSEKEEPING_INTERVAL", 1*time.Hour),
		HousekeepingGrace:    getEnvDurationOrDefault("GRANTD_HOUSEKEEPING_GRACE", 24*time.Hour),
	}
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
