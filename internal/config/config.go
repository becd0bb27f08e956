package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Server configuration
	Port            string
	Mode            string
	LogLevel        string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Database configuration
	DatabaseURL     string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Redis configuration (optional)
	RedisURL string

	// Shopify webhook configuration
	WebhookSecret    string
	NickPropertyName string

	// RCON configuration
	RCONHost            string
	RCONPort            int
	RCONPassword        string
	RCONTimeout         time.Duration
	RCONCommandTemplate string
	MaxAttempts         int

	// Admin configuration
	AdminUser string
	AdminPass string

	// Rate limiting
	WebhookRateLimit int
	AdminRateLimit   int
	RateLimitWindow  time.Duration

	// Brevo alert configuration (optional)
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string
	AlertEmail     string
}

const (
	DefaultCommandTemplate = "lp user {identity} parent add {entitlement}"
	DefaultMaxBodyBytes    = 10 << 20
)

// Load reads configuration from the environment, an optional .env file and
// an optional YAML file named by CONFIG_FILE.
func Load() (*Config, error) {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("MAX_BODY_BYTES", DefaultMaxBodyBytes)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_SQLITE_PATH", "rank-api.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SHOPIFY_WEBHOOK_SECRET", "")
	v.SetDefault("NICK_PROPERTY_NAME", "Nick Minecraft")
	v.SetDefault("MC_RCON_HOST", "")
	v.SetDefault("MC_RCON_PORT", 25575)
	v.SetDefault("MC_RCON_PASSWORD", "")
	v.SetDefault("RCON_TIMEOUT", "5s")
	v.SetDefault("RCON_COMMAND_TEMPLATE", DefaultCommandTemplate)
	v.SetDefault("PROVISION_MAX_ATTEMPTS", 3)
	v.SetDefault("ADMIN_USER", "")
	v.SetDefault("ADMIN_PASS", "")
	v.SetDefault("WEBHOOK_RATE_LIMIT", 100)
	v.SetDefault("ADMIN_RATE_LIMIT", 50)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("BREVO_API_KEY", "")
	v.SetDefault("BREVO_FROM_EMAIL", "")
	v.SetDefault("BREVO_FROM_NAME", "Rank Provisioning")
	v.SetDefault("ALERT_EMAIL", "")
	v.SetDefault("CONFIG_FILE", "")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:                v.GetString("PORT"),
		Mode:                v.GetString("GIN_MODE"),
		LogLevel:            strings.ToLower(v.GetString("LOG_LEVEL")),
		ShutdownTimeout:     v.GetDuration("SHUTDOWN_TIMEOUT"),
		MaxBodyBytes:        v.GetInt64("MAX_BODY_BYTES"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		SQLitePath:          v.GetString("DB_SQLITE_PATH"),
		MaxOpenConns:        v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:        v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime:     v.GetDuration("DB_CONN_MAX_LIFETIME"),
		RedisURL:            v.GetString("REDIS_URL"),
		WebhookSecret:       v.GetString("SHOPIFY_WEBHOOK_SECRET"),
		NickPropertyName:    v.GetString("NICK_PROPERTY_NAME"),
		RCONHost:            v.GetString("MC_RCON_HOST"),
		RCONPort:            v.GetInt("MC_RCON_PORT"),
		RCONPassword:        v.GetString("MC_RCON_PASSWORD"),
		RCONTimeout:         v.GetDuration("RCON_TIMEOUT"),
		RCONCommandTemplate: v.GetString("RCON_COMMAND_TEMPLATE"),
		MaxAttempts:         v.GetInt("PROVISION_MAX_ATTEMPTS"),
		AdminUser:           v.GetString("ADMIN_USER"),
		AdminPass:           v.GetString("ADMIN_PASS"),
		WebhookRateLimit:    v.GetInt("WEBHOOK_RATE_LIMIT"),
		AdminRateLimit:      v.GetInt("ADMIN_RATE_LIMIT"),
		RateLimitWindow:     v.GetDuration("RATE_LIMIT_WINDOW"),
		BrevoAPIKey:         v.GetString("BREVO_API_KEY"),
		BrevoFromEmail:      v.GetString("BREVO_FROM_EMAIL"),
		BrevoFromName:       v.GetString("BREVO_FROM_NAME"),
		AlertEmail:          v.GetString("ALERT_EMAIL"),
	}
}

// Validate checks the settings the webhook pipeline cannot run without.
func (c *Config) Validate() error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("SHOPIFY_WEBHOOK_SECRET is required")
	}
	if c.RCONHost == "" {
		return fmt.Errorf("MC_RCON_HOST is required")
	}
	if c.RCONPassword == "" {
		return fmt.Errorf("MC_RCON_PASSWORD is required")
	}
	if c.AdminUser == "" || c.AdminPass == "" {
		return fmt.Errorf("ADMIN_USER and ADMIN_PASS are required")
	}
	if c.RCONTimeout <= 0 {
		return fmt.Errorf("RCON_TIMEOUT must be positive")
	}
	if c.MaxBodyBytes < 1 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("PROVISION_MAX_ATTEMPTS must be at least 1")
	}
	if c.WebhookRateLimit < 1 || c.AdminRateLimit < 1 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limits and RATE_LIMIT_WINDOW must be positive")
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1")
	}
	return nil
}

// RCONAddress returns the host:port pair of the RCON endpoint.
func (c *Config) RCONAddress() string {
	return fmt.Sprintf("%s:%d", c.RCONHost, c.RCONPort)
}

// AlertsEnabled reports whether failure alert e-mails can be sent.
func (c *Config) AlertsEnabled() bool {
	return c.BrevoAPIKey != "" && c.AlertEmail != "" && c.BrevoFromEmail != ""
}
