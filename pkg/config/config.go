package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/praxishq/praxis/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Usage         UsageConfig         `yaml:"usage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for probes and scraping)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL          string        `yaml:"url"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnTimeout  time.Duration `yaml:"conn_timeout"`
}

// RedisConfig holds Redis configuration. Redis backs the usage counters and
// the principal resolver's L2 cache; an empty URL disables both.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig holds authentication configuration.
//
// JWTSecret is required for every auth-dependent path; its absence is a fatal
// configuration error, never a client-facing 401.
type AuthConfig struct {
	JWTSecret             string        `yaml:"jwt_secret"`
	LoginTokenTTL         time.Duration `yaml:"login_token_ttl"`
	ImpersonationTokenTTL time.Duration `yaml:"impersonation_token_ttl"`
	BcryptCost            int           `yaml:"bcrypt_cost"`
	PrincipalCacheSize    int           `yaml:"principal_cache_size"`
	PrincipalCacheTTL     time.Duration `yaml:"principal_cache_ttl"`
}

// UsageConfig holds usage metering configuration
type UsageConfig struct {
	// FlushSchedule is a cron expression for flushing redis counters to postgres
	FlushSchedule string `yaml:"flush_schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel `yaml:"-"`
	LogLevelName   string                 `yaml:"log_level"`
	MetricsEnabled bool                   `yaml:"metrics_enabled"`
}

// Load reads configuration from environment variables, optionally overlaid on
// a YAML file named by PRAXIS_CONFIG_FILE. Environment variables win.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("PRAXIS_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadEnv()
	cfg.Observability.LogLevel = parseLogLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			ConnTimeout:  5 * time.Second,
		},
		Auth: AuthConfig{
			LoginTokenTTL:         24 * time.Hour,
			ImpersonationTokenTTL: 1 * time.Hour,
			BcryptCost:            0, // 0 means bcrypt.DefaultCost
			PrincipalCacheSize:    1024,
			PrincipalCacheTTL:     30 * time.Second,
		},
		Usage: UsageConfig{
			FlushSchedule: "@every 1m",
		},
		Observability: ObservabilityConfig{
			LogLevelName:   "info",
			MetricsEnabled: true,
		},
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadEnv() {
	setString(&c.Server.Host, "PRAXIS_HOST")
	setString(&c.Server.Port, "PRAXIS_PORT")
	setString(&c.Server.HealthPort, "PRAXIS_HEALTH_PORT")
	setDuration(&c.Server.ReadTimeout, "PRAXIS_READ_TIMEOUT")
	setDuration(&c.Server.WriteTimeout, "PRAXIS_WRITE_TIMEOUT")
	setDuration(&c.Server.IdleTimeout, "PRAXIS_IDLE_TIMEOUT")
	setDuration(&c.Server.ShutdownTimeout, "PRAXIS_SHUTDOWN_TIMEOUT")

	setString(&c.Database.URL, "PRAXIS_POSTGRES_URL")
	setInt(&c.Database.MaxOpenConns, "PRAXIS_POSTGRES_MAX_CONNS")
	setInt(&c.Database.MaxIdleConns, "PRAXIS_POSTGRES_IDLE_CONNS")

	setString(&c.Redis.URL, "PRAXIS_REDIS_URL")
	setString(&c.Redis.Password, "PRAXIS_REDIS_PASSWORD")
	setInt(&c.Redis.DB, "PRAXIS_REDIS_DB")

	setString(&c.Auth.JWTSecret, "PRAXIS_JWT_SECRET")
	setDuration(&c.Auth.LoginTokenTTL, "PRAXIS_LOGIN_TOKEN_TTL")
	setDuration(&c.Auth.ImpersonationTokenTTL, "PRAXIS_IMPERSONATION_TOKEN_TTL")
	setInt(&c.Auth.BcryptCost, "PRAXIS_BCRYPT_COST")
	setInt(&c.Auth.PrincipalCacheSize, "PRAXIS_PRINCIPAL_CACHE_SIZE")
	setDuration(&c.Auth.PrincipalCacheTTL, "PRAXIS_PRINCIPAL_CACHE_TTL")

	setString(&c.Usage.FlushSchedule, "PRAXIS_USAGE_FLUSH_SCHEDULE")

	setString(&c.Observability.LogLevelName, "PRAXIS_LOG_LEVEL")
	setBool(&c.Observability.MetricsEnabled, "PRAXIS_METRICS_ENABLED")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT signing secret is required (PRAXIS_JWT_SECRET)")
	}
	// The shorter impersonation tier is a blast-radius control; a config that
	// inverts the tiers would silently defeat it.
	if c.Auth.ImpersonationTokenTTL >= c.Auth.LoginTokenTTL {
		return fmt.Errorf("impersonation token TTL (%s) must be shorter than login token TTL (%s)",
			c.Auth.ImpersonationTokenTTL, c.Auth.LoginTokenTTL)
	}
	return nil
}

func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func setString(dest *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}

func setInt(dest *int, key string) {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			*dest = intVal
		}
	}
}

func setBool(dest *bool, key string) {
	if value := os.Getenv(key); value != "" {
		*dest = strings.ToLower(value) == "true" || value == "1"
	}
}

func setDuration(dest *time.Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			*dest = duration
		}
	}
}
