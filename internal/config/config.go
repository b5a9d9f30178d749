// Package config provides configuration management for the PocketBroker backend.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Market    MarketConfig
	Alerts    AlertsConfig
	Worker    WorkerConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	SSLMode        string
	MaxConnections int
}

// URL returns the connection URL understood by golang-migrate.
func (c PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// ClickHouseConfig holds ClickHouse configuration. The quote event log is
// only written when Enabled is set.
type ClickHouseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// CacheConfig holds the default cache TTL
type CacheConfig struct {
	TTL time.Duration
}

// MarketConfig holds market data provider configuration
type MarketConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	StatsTTL    time.Duration
	TrendingTTL time.Duration
	MoversTTL   time.Duration

	// CallsPerMinute caps upstream calls across all processes sharing Redis.
	// Zero disables the budget. ReservedCalls of it are kept for API traffic.
	CallsPerMinute int
	ReservedCalls  int
}

// AlertsConfig holds the suspicious-transaction thresholds used by the admin alerts report
type AlertsConfig struct {
	GasFeeThreshold float64
	AmountThreshold float64
}

// WorkerConfig holds price alert worker configuration
type WorkerConfig struct {
	Schedule    string
	RunTimeout  time.Duration
	MetricsAddr string // empty disables the worker metrics listener
}

// EmailConfig holds outbound email configuration
type EmailConfig struct {
	ResendAPIKey string
	From         string
	AppName      string
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "pocketbroker"),
				User:           getEnv("POSTGRES_USER", "pocketbroker"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				SSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 25),
			},
			ClickHouse: ClickHouseConfig{
				Enabled:  getEnvAsBool("CLICKHOUSE_ENABLED", false),
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "pocketbroker"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
			},
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 60*time.Second),
		},
		Market: MarketConfig{
			BaseURL:     getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
			APIKey:      getEnv("COINGECKO_API_KEY", ""),
			Timeout:     getEnvAsDuration("COINGECKO_TIMEOUT", 10*time.Second),
			StatsTTL:    getEnvAsDuration("MARKET_STATS_TTL", 60*time.Second),
			TrendingTTL: getEnvAsDuration("MARKET_TRENDING_TTL", 300*time.Second),
			MoversTTL:   getEnvAsDuration("MARKET_MOVERS_TTL", 120*time.Second),

			CallsPerMinute: getEnvAsInt("COINGECKO_CALLS_PER_MINUTE", 30),
			ReservedCalls:  getEnvAsInt("COINGECKO_RESERVED_CALLS", 20),
		},
		Alerts: AlertsConfig{
			GasFeeThreshold: getEnvAsFloat("ALERT_GAS_FEE_THRESHOLD", 100),
			AmountThreshold: getEnvAsFloat("ALERT_AMOUNT_THRESHOLD", 10000),
		},
		Worker: WorkerConfig{
			Schedule:    getEnv("ALERT_EVAL_SCHEDULE", "@every 1m"),
			RunTimeout:  getEnvAsDuration("ALERT_EVAL_TIMEOUT", 50*time.Second),
			MetricsAddr: getEnv("WORKER_METRICS_ADDR", ""),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "PocketBroker <alerts@pocketbroker.app>"),
			AppName:      getEnv("APP_NAME", "PocketBroker"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 20),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT must not be empty")
	}
	if c.Database.Postgres.MaxConnections <= 0 {
		return fmt.Errorf("POSTGRES_MAX_CONNECTIONS must be positive, got %d", c.Database.Postgres.MaxConnections)
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit must be positive (rps=%d, burst=%d)", c.RateLimit.RequestsPerSecond, c.RateLimit.Burst)
	}
	if c.Market.CallsPerMinute < 0 || c.Market.ReservedCalls < 0 ||
		(c.Market.CallsPerMinute > 0 && c.Market.ReservedCalls > c.Market.CallsPerMinute) {
		return fmt.Errorf("market call budget invalid (calls=%d, reserved=%d)", c.Market.CallsPerMinute, c.Market.ReservedCalls)
	}
	if c.Alerts.GasFeeThreshold <= 0 || c.Alerts.AmountThreshold <= 0 {
		return fmt.Errorf("alert thresholds must be positive (gas=%v, amount=%v)", c.Alerts.GasFeeThreshold, c.Alerts.AmountThreshold)
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated variable, dropping blank entries
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
