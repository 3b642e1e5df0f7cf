// Package config loads service configuration from the environment,
// an optional .env file and an optional pharmledger.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"pharmledger/pkg/logger"
)

// Config holds all application configuration.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Asynq    AsynqConfig
	Security SecurityConfig
	Server   ServerConfig
	Alerts   AlertsConfig
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Version     string
	LogLevel    string
	Timezone    string // IANA name; day boundaries for expiry, numbering and reports
}

// Location returns the business timezone. Empty or unknown names fall back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL              string
	MaxConnections   int32
	MinConnections   int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	StatementTimeout time.Duration
	AutoMigrate      bool
	MigrateRetries   int
}

// RedisConfig holds Redis configuration. An empty Addr disables caching.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DashboardTTL time.Duration
}

// AsynqConfig holds background queue configuration.
type AsynqConfig struct {
	Enabled         bool
	Concurrency     int
	Queues          map[string]int // queue name -> priority
	ScanInterval    time.Duration
	ShutdownTimeout time.Duration
}

// SecurityConfig holds authentication configuration.
type SecurityConfig struct {
	JWTSecret      string
	JWTExpiration  time.Duration
	BcryptCost     int
	LoginRateLimit float64 // requests per second per client IP
	LoginRateBurst int
	AdminEmail     string
	AdminPassword  string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

// AlertsConfig holds stock alert rule overrides (CEL expressions by rule name).
type AlertsConfig struct {
	ExpiryWindowDays int
	Rules            map[string]string
}

const devJWTSecret = "development-secret-change-in-production"

// Load reads configuration. In development a .env file is loaded first.
func Load(log *logger.Logger) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	env := v.GetString("app.env")
	if env == "development" || env == "local" {
		if err := godotenv.Load(); err != nil {
			log.Debugw("no .env file found, using environment variables", "error", err)
		} else {
			log.Infow(".env file loaded")
			env = v.GetString("app.env")
		}
	}

	v.SetConfigName("pharmledger")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/pharmledger")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("app.name"),
			Environment: env,
			Version:     v.GetString("app.version"),
			LogLevel:    v.GetString("log.level"),
			Timezone:    v.GetString("app.timezone"),
		},
		Database: DatabaseConfig{
			URL:              v.GetString("database.url"),
			MaxConnections:   v.GetInt32("database.max_connections"),
			MinConnections:   v.GetInt32("database.min_connections"),
			MaxConnLifetime:  v.GetDuration("database.max_conn_lifetime"),
			MaxConnIdleTime:  v.GetDuration("database.max_conn_idle_time"),
			StatementTimeout: v.GetDuration("database.statement_timeout"),
			AutoMigrate:      v.GetBool("database.auto_migrate"),
			MigrateRetries:   v.GetInt("database.migrate_retries"),
		},
		Redis: RedisConfig{
			Addr:         v.GetString("redis.addr"),
			Password:     v.GetString("redis.password"),
			DB:           v.GetInt("redis.db"),
			DashboardTTL: v.GetDuration("redis.dashboard_ttl"),
		},
		Asynq: AsynqConfig{
			Enabled:         v.GetBool("asynq.enabled"),
			Concurrency:     v.GetInt("asynq.concurrency"),
			Queues:          parseQueues(v.GetString("asynq.queues")),
			ScanInterval:    v.GetDuration("asynq.scan_interval"),
			ShutdownTimeout: v.GetDuration("asynq.shutdown_timeout"),
		},
		Security: SecurityConfig{
			JWTSecret:      v.GetString("jwt.secret"),
			JWTExpiration:  v.GetDuration("jwt.expiration"),
			BcryptCost:     v.GetInt("bcrypt.cost"),
			LoginRateLimit: v.GetFloat64("login.rate_limit"),
			LoginRateBurst: v.GetInt("login.rate_burst"),
			AdminEmail:     v.GetString("admin.email"),
			AdminPassword:  v.GetString("admin.password"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetString("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			GracefulTimeout: v.GetDuration("server.graceful_timeout"),
		},
		Alerts: AlertsConfig{
			ExpiryWindowDays: v.GetInt("alerts.expiry_window_days"),
			Rules:            alertRules(v),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Database.MaxConnections < c.Database.MinConnections {
		return errors.New("max connections must be >= min connections")
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 15 {
		return fmt.Errorf("bcrypt cost %d out of range [4,15]", c.Security.BcryptCost)
	}
	if c.Security.LoginRateLimit <= 0 {
		return errors.New("login rate limit must be positive")
	}
	if c.App.Timezone == "Local" {
		return errors.New("APP_TIMEZONE must name an IANA zone, not Local")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.App.Timezone, err)
	}
	if c.IsProduction() {
		if c.Security.JWTSecret == devJWTSecret || len(c.Security.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be set to at least 32 characters in production")
		}
	}
	return nil
}

// ServerAddress returns host:port.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true for development and local environments.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "local"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pharmledger")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("log.level", "info")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.statement_timeout", 30*time.Second)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.migrate_retries", 5)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dashboard_ttl", time.Minute)

	v.SetDefault("asynq.enabled", false)
	v.SetDefault("asynq.concurrency", 5)
	v.SetDefault("asynq.queues", "critical:6,default:3,low:1")
	v.SetDefault("asynq.scan_interval", time.Hour)
	v.SetDefault("asynq.shutdown_timeout", 30*time.Second)

	v.SetDefault("jwt.secret", devJWTSecret)
	v.SetDefault("jwt.expiration", 12*time.Hour)
	v.SetDefault("bcrypt.cost", 10)
	v.SetDefault("login.rate_limit", 1.0)
	v.SetDefault("login.rate_burst", 5)
	v.SetDefault("admin.email", "admin@pharmacy.local")
	v.SetDefault("admin.password", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.graceful_timeout", 30*time.Second)

	v.SetDefault("alerts.expiry_window_days", 30)
}

// alertRules collects ALERTS_RULE_<NAME> overrides for the known rules.
func alertRules(v *viper.Viper) map[string]string {
	rules := make(map[string]string)
	for _, name := range []string{"low_stock", "expiring", "expired"} {
		if expr := v.GetString("alerts.rule." + name); expr != "" {
			rules[name] = expr
		}
	}
	for name, expr := range v.GetStringMapString("alerts.rules") {
		rules[name] = expr
	}
	return rules
}

func parseQueues(s string) map[string]int {
	queues := make(map[string]int)
	for _, pair := range strings.Split(s, ",") {
		name, prio, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		var p int
		if _, err := fmt.Sscanf(strings.TrimSpace(prio), "%d", &p); err == nil && p > 0 {
			queues[strings.TrimSpace(name)] = p
		}
	}
	if len(queues) == 0 {
		queues["default"] = 1
	}
	return queues
}
