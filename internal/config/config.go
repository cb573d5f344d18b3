package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Log       LogConfig       `mapstructure:"log"`
	Security  SecurityConfig  `mapstructure:"security"`
	Mail      MailConfig      `mapstructure:"mail"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Trigger   TriggerConfig   `mapstructure:"trigger"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Callable  CallableConfig  `mapstructure:"callable"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MongoConfig holds MongoDB configuration, used when directory.backend is "mongo"
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
}

// RateLimitingConfig holds rate limiting configuration
type RateLimitingConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

// MailConfig holds outbound email configuration
type MailConfig struct {
	// Provider is the transport to use: "smtp" or "gmail"
	Provider string `mapstructure:"provider"`
	// Account is the mailbox emails are sent from
	Account string `mapstructure:"account"`
	// Password is the account credential (an app password for Gmail SMTP)
	Password string `mapstructure:"password"`
	// SenderName is the display name on every outgoing message
	SenderName string `mapstructure:"sender_name"`
	SMTP       SMTPConfig       `mapstructure:"smtp"`
	Gmail      GmailEmailConfig `mapstructure:"gmail"`
}

// Configured reports whether the account identity and credential are both set.
// The gmail provider authenticates with OAuth credentials instead of a password.
func (c MailConfig) Configured() bool {
	if c.Account == "" {
		return false
	}
	if c.Provider == "gmail" {
		return c.Gmail.CredentialsJSON != "" || c.Gmail.RefreshToken != ""
	}
	return c.Password != ""
}

// SMTPConfig holds SMTP relay settings
type SMTPConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	SkipTLSVerify bool   `mapstructure:"skip_tls_verify"`
}

// GmailEmailConfig holds Gmail API configuration
type GmailEmailConfig struct {
	// CredentialsJSON is the service account credentials JSON content
	CredentialsJSON string `mapstructure:"credentials_json"`
	// ClientID for OAuth2 token-based auth (alternative to service account)
	ClientID string `mapstructure:"client_id"`
	// ClientSecret for OAuth2 token-based auth
	ClientSecret string `mapstructure:"client_secret"`
	// RefreshToken for OAuth2 token-based auth
	RefreshToken string `mapstructure:"refresh_token"`
}

// DirectoryConfig selects the user directory backend
type DirectoryConfig struct {
	// Backend is "postgres" or "mongo"
	Backend    string `mapstructure:"backend"`
	Collection string `mapstructure:"collection"`
}

// TriggerConfig holds appointment trigger settings
type TriggerConfig struct {
	// Sources lists the enabled trigger sources: "postgres", "redis"
	Sources         []string      `mapstructure:"sources"`
	PostgresChannel string        `mapstructure:"postgres_channel"`
	RedisChannel    string        `mapstructure:"redis_channel"`
	HandlerTimeout  time.Duration `mapstructure:"handler_timeout"`
	// DedupeTTL is how long a handled appointment id is remembered; 0 disables de-duplication
	DedupeTTL time.Duration `mapstructure:"dedupe_ttl"`
}

// NotifyConfig holds appointment email formatting settings
type NotifyConfig struct {
	Timezone   string `mapstructure:"timezone"`
	DateLayout string `mapstructure:"date_layout"`
}

// CallableConfig holds settings for the manual send-email endpoint
type CallableConfig struct {
	// AuthSecret signs caller tokens; empty leaves the endpoint unauthenticated
	AuthSecret string        `mapstructure:"auth_secret"`
	Issuer     string        `mapstructure:"issuer"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	// A local .env only feeds the environment; real env vars win.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/anc-notifier")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("ANC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "anc")
	v.SetDefault("database.user", "anc")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Mongo defaults
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "anc")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.limit", 30)
	v.SetDefault("security.rate_limiting.window", "1m")

	// Mail defaults
	v.SetDefault("mail.provider", "smtp")
	v.SetDefault("mail.account", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.sender_name", "ANC System")
	v.SetDefault("mail.smtp.host", "smtp.gmail.com")
	v.SetDefault("mail.smtp.port", 587)
	v.SetDefault("mail.smtp.skip_tls_verify", false)

	v.SetDefault("directory.backend", "postgres")
	v.SetDefault("directory.collection", "users")

	// Trigger defaults
	v.SetDefault("trigger.sources", []string{"postgres"})
	v.SetDefault("trigger.postgres_channel", "scheduled_appointment_created")
	v.SetDefault("trigger.redis_channel", "scheduled_appointment.created")
	v.SetDefault("trigger.handler_timeout", "60s")
	v.SetDefault("trigger.dedupe_ttl", "24h")

	v.SetDefault("notify.timezone", "UTC")
	v.SetDefault("notify.date_layout", "1/2/2006, 3:04:05 PM")

	v.SetDefault("callable.auth_secret", "")
	v.SetDefault("callable.issuer", "anc-notifier")
	v.SetDefault("callable.token_ttl", "24h")
}
