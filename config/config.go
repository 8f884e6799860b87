package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Store     StoreConfig     `mapstructure:"store"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
}

// AuthConfig holds the secret seller tokens are signed with
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// StoreConfig selects the listing store
type StoreConfig struct {
	Type        string `mapstructure:"type"` // "memory" or "postgres"
	DatabaseURL string `mapstructure:"database_url"`
}

// MatchingConfig holds duplicate detection settings
type MatchingConfig struct {
	Threshold float64 `mapstructure:"threshold"`
	Debug     bool    `mapstructure:"debug"`
}

// RateLimitConfig holds rate limiting configuration. An empty RedisURL
// disables inbound limiting.
type RateLimitConfig struct {
	PerIP    int           `mapstructure:"per_ip"`
	Window   time.Duration `mapstructure:"window"`
	RedisURL string        `mapstructure:"redis_url"`
}

// ArchiveConfig holds the object storage for uploaded import files. An
// empty Endpoint disables archiving.
type ArchiveConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/readar/")

	// READAR_SERVER_PORT overrides server.port
	v.SetEnvPrefix("READAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env into the process environment without
// overriding variables that are already set. A missing file is fine.
func loadEnvFile() error {
	err := godotenv.Load()
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:*"})
	v.SetDefault("server.max_upload_bytes", 10<<20)

	v.SetDefault("auth.jwt_secret", "")

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.database_url", "")

	// Matching defaults
	v.SetDefault("matching.threshold", 0.6)
	v.SetDefault("matching.debug", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("ratelimit.redis_url", "")

	// Archive defaults
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.access_key", "")
	v.SetDefault("archive.secret_key", "")
	v.SetDefault("archive.bucket", "readar-imports")
	v.SetDefault("archive.use_ssl", false)

	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (set READAR_AUTH_JWT_SECRET)")
	}

	if config.Store.Type != "memory" && config.Store.Type != "postgres" {
		return fmt.Errorf("store type must be 'memory' or 'postgres', got: %s", config.Store.Type)
	}

	if config.Store.Type == "postgres" && config.Store.DatabaseURL == "" {
		return fmt.Errorf("database URL is required when store type is 'postgres'")
	}

	if config.Matching.Threshold <= 0 || config.Matching.Threshold > 1 {
		return fmt.Errorf("matching threshold must be in (0, 1], got: %v", config.Matching.Threshold)
	}

	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got: %d", config.Server.MaxUploadBytes)
	}

	if config.RateLimit.RedisURL != "" && (config.RateLimit.PerIP <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("rate limiting needs a positive per_ip and window")
	}

	if config.Archive.Endpoint != "" && config.Archive.Bucket == "" {
		return fmt.Errorf("archive bucket is required when archive endpoint is set")
	}

	return nil
}
