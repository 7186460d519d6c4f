// Package config loads process configuration from the environment and optional .env files.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"branchstock/internal/core/types"
	"branchstock/internal/infrastructure/storage/postgres"
	"branchstock/pkg/logger"
)

// Config groups the application configuration.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Transfer TransferConfig
	Audit    AuditConfig
	Worker   WorkerConfig
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Env      string // development, staging, production
	LogLevel string
}

// DBConfig holds PostgreSQL settings.
// DatabaseURL, when set, wins over the discrete fields.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string

	MaxConns         int32
	MinConns         int32
	StatementTimeout time.Duration
}

// TransferConfig holds transfer numbering and credit settings.
type TransferConfig struct {
	NumberPrefix      string
	DefaultSpendLimit types.Money
}

// AuditConfig holds audit sink settings.
type AuditConfig struct {
	CompressThreshold int
}

// WorkerConfig holds background report settings.
type WorkerConfig struct {
	Interval          time.Duration
	ExpiryWarningDays int
}

// ConnectionString returns DATABASE_URL if set, otherwise a DSN built from the parts.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// PoolConfig converts the settings into a postgres.PoolConfig.
func (c DBConfig) PoolConfig() postgres.PoolConfig {
	cfg := postgres.DefaultPoolConfig(c.ConnectionString())
	if c.MaxConns > 0 {
		cfg.MaxConns = c.MaxConns
	}
	if c.MinConns > 0 {
		cfg.MinConns = c.MinConns
	}
	return cfg
}

// TxOptions returns serializable transaction options with the configured statement timeout.
func (c DBConfig) TxOptions() postgres.TxOptions {
	return postgres.SerializableTxOptions(c.StatementTimeout)
}

// LoggerConfig returns the logger settings for the environment.
func (c AppConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       c.LogLevel,
		Development: c.Env == "development",
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "branchstock")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("TX_STATEMENT_TIMEOUT", "30s")

	v.SetDefault("TRANSFER_PREFIX", "SAL")
	v.SetDefault("DEFAULT_SPEND_LIMIT", "5000")

	v.SetDefault("AUDIT_COMPRESS_THRESHOLD", 10*1024)

	v.SetDefault("WORKER_INTERVAL", "5m")
	v.SetDefault("EXPIRY_WARNING_DAYS", 30)
}

// Load reads .env or config.env from the working directory when present.
// Environment variables take precedence.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetConfigName(".env")
	if err := v.ReadInConfig(); err != nil {
		v.SetConfigName("config")
		_ = v.ReadInConfig()
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	limit, err := types.NewMoneyFromString(strings.TrimSpace(v.GetString("DEFAULT_SPEND_LIMIT")))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_SPEND_LIMIT: %w", err)
	}
	if limit.IsNegative() {
		return nil, fmt.Errorf("DEFAULT_SPEND_LIMIT must not be negative")
	}

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		DB: DBConfig{
			DatabaseURL:      v.GetString("DATABASE_URL"),
			Host:             v.GetString("DB_HOST"),
			Port:             v.GetInt("DB_PORT"),
			User:             v.GetString("DB_USER"),
			Password:         v.GetString("DB_PASSWORD"),
			DBName:           v.GetString("DB_NAME"),
			SSLMode:          v.GetString("DB_SSLMODE"),
			MaxConns:         v.GetInt32("DB_MAX_CONNS"),
			MinConns:         v.GetInt32("DB_MIN_CONNS"),
			StatementTimeout: v.GetDuration("TX_STATEMENT_TIMEOUT"),
		},
		Transfer: TransferConfig{
			NumberPrefix:      strings.TrimSpace(v.GetString("TRANSFER_PREFIX")),
			DefaultSpendLimit: limit,
		},
		Audit: AuditConfig{
			CompressThreshold: v.GetInt("AUDIT_COMPRESS_THRESHOLD"),
		},
		Worker: WorkerConfig{
			Interval:          v.GetDuration("WORKER_INTERVAL"),
			ExpiryWarningDays: v.GetInt("EXPIRY_WARNING_DAYS"),
		},
	}

	if cfg.Transfer.NumberPrefix == "" {
		return nil, fmt.Errorf("TRANSFER_PREFIX must not be empty")
	}
	if cfg.Worker.Interval <= 0 {
		return nil, fmt.Errorf("WORKER_INTERVAL must be positive")
	}
	return cfg, nil
}
