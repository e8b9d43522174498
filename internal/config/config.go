package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Relay
	RelayHost       string        `env:"RELAY_HOST" default:""`
	RelayPort       int           `env:"RELAY_PORT" default:"9034"`
	RelayToSource   bool          `env:"RELAY_TO_SOURCE" default:"true"`
	IOTimeout       time.Duration `env:"RELAY_IO_TIMEOUT_MS" default:"500"`
	IdleSleep       time.Duration `env:"RELAY_IDLE_SLEEP_MS" default:"10"`
	MaxFrameBytes   int           `env:"RELAY_MAX_FRAME_BYTES" default:"16777216"`
	InjectQueueSize int           `env:"RELAY_INJECT_QUEUE" default:"256"`

	// Admin HTTP API and WebSocket bridge
	AdminEnabled      bool          `env:"ADMIN_ENABLED" default:"false"`
	AdminAddr         string        `env:"ADMIN_ADDR" default:":9035"`
	AdminUsername     string        `env:"ADMIN_USERNAME" default:"admin"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
	AdminTokenTTL     time.Duration `env:"ADMIN_TOKEN_TTL" default:"1h"`
	JWTSecret         string        `env:"JWT_SECRET"`

	// Redis event counters
	RedisURL    string `env:"REDIS_URL"`
	StatsPrefix string `env:"STATS_PREFIX" default:"vrrelay"`

	// Postgres session audit
	DatabaseURL string `env:"DATABASE_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"json"`
}

// LoadConfig loads configuration from the environment, after merging in a
// .env file from the working directory when one exists.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load(".env")

	config := &Config{}

	// Relay
	loadEnvString(&config.RelayHost, "RELAY_HOST", "")
	if err := loadEnvInt(&config.RelayPort, "RELAY_PORT", 9034); err != nil {
		return nil, err
	}
	if err := loadEnvBool(&config.RelayToSource, "RELAY_TO_SOURCE", true); err != nil {
		return nil, err
	}
	if err := loadEnvMillis(&config.IOTimeout, "RELAY_IO_TIMEOUT_MS", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if err := loadEnvMillis(&config.IdleSleep, "RELAY_IDLE_SLEEP_MS", 10*time.Millisecond); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.MaxFrameBytes, "RELAY_MAX_FRAME_BYTES", 16<<20); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.InjectQueueSize, "RELAY_INJECT_QUEUE", 256); err != nil {
		return nil, err
	}

	// Admin
	if err := loadEnvBool(&config.AdminEnabled, "ADMIN_ENABLED", false); err != nil {
		return nil, err
	}
	loadEnvString(&config.AdminAddr, "ADMIN_ADDR", ":9035")
	loadEnvString(&config.AdminUsername, "ADMIN_USERNAME", "admin")
	loadEnvString(&config.AdminPasswordHash, "ADMIN_PASSWORD_HASH", "")
	if err := loadEnvDuration(&config.AdminTokenTTL, "ADMIN_TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}
	loadEnvString(&config.JWTSecret, "JWT_SECRET", "")

	// Storage
	loadEnvString(&config.RedisURL, "REDIS_URL", "")
	loadEnvString(&config.StatsPrefix, "STATS_PREFIX", "vrrelay")
	loadEnvString(&config.DatabaseURL, "DATABASE_URL", "")

	// Logging
	loadEnvString(&config.LogLevel, "LOG_LEVEL", "info")
	loadEnvString(&config.LogFormat, "LOG_FORMAT", "json")

	return config, nil
}

func loadEnvString(target *string, key, defaultValue string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvBool(target *bool, key string, defaultValue bool) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// loadEnvMillis reads a plain millisecond count, or a Go duration string
// such as "250ms".
func loadEnvMillis(target *time.Duration, key string, defaultValue time.Duration) error {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		*target = defaultValue
		return nil
	}
	if ms, err := strconv.Atoi(value); err == nil {
		*target = time.Duration(ms) * time.Millisecond
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid millisecond value for %s: %q", key, value)
	}
	*target = parsed
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.RelayPort < 0 || c.RelayPort > 65535 {
		errors = append(errors, "RELAY_PORT must be between 0 and 65535")
	}
	if c.IOTimeout < 0 {
		errors = append(errors, "RELAY_IO_TIMEOUT_MS must not be negative")
	}
	if c.IdleSleep < 0 {
		errors = append(errors, "RELAY_IDLE_SLEEP_MS must not be negative")
	}
	if c.MaxFrameBytes < 0 || int64(c.MaxFrameBytes) > int64(^uint32(0)) {
		errors = append(errors, "RELAY_MAX_FRAME_BYTES must fit in 32 bits")
	}
	if c.InjectQueueSize < 1 {
		errors = append(errors, "RELAY_INJECT_QUEUE must be at least 1")
	}

	if c.AdminEnabled {
		if _, _, err := net.SplitHostPort(c.AdminAddr); err != nil {
			errors = append(errors, "ADMIN_ADDR must be host:port")
		}
		// HS256 keys shorter than the hash size are weak
		if len(c.JWTSecret) < 32 {
			errors = append(errors, "JWT_SECRET should be at least 32 characters long when ADMIN_ENABLED")
		}
		if c.AdminTokenTTL <= 0 {
			errors = append(errors, "ADMIN_TOKEN_TTL must be positive")
		}
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}
	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// ListenAddr is the relay's TCP listen address.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.RelayHost, strconv.Itoa(c.RelayPort))
}

// SlogLevel maps LOG_LEVEL onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds the process logger described by LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
