// Package config reads config.toml, .env files, flags and environment
// variables into the Config used to wire the application.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configPath       = pflag.String("config", ".", "Directory containing config.toml")
	validLogLevels   = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers   = []string{"sqlite", "postgres"}
	errMissingSecret = errors.New("session.secret must be set")
)

type Config struct {
	LogLevel    string
	Development bool

	Port        int
	Domain      string
	CORSOrigins []string
	RateLimit   int

	SessionSecret string
	SessionSecure bool

	DBDriver string
	DBDSN    string

	SMTP SMTP
	Mail MailQueue

	RenderCacheTTL time.Duration

	BackofficeEmails []string
}

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type MailQueue struct {
	Workers int
	Size    int
	Timeout time.Duration
}

// Setup loads the configuration. A missing config.toml is not an error,
// everything can come from the environment.
func Setup() (*Config, error) {
	_ = godotenv.Load()

	if !pflag.Parsed() {
		pflag.Parse()
	}
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "APP_LOG_LEVEL")
	v.BindEnv("app.development", "APP_DEVELOPMENT")

	v.BindEnv("host.port", "PORT")
	v.BindEnv("host.domain", "DOMAIN")
	v.BindEnv("host.cors", "HOST_CORS")
	v.BindEnv("host.rate_limit", "SECURITY_RATE_LIMIT")

	v.BindEnv("session.secret", "SESSION_SECRET")
	v.BindEnv("session.secure", "SESSION_SECURE")

	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.dsn", "DB_DSN")

	v.BindEnv("smtp.host", "SMTP_HOST")
	v.BindEnv("smtp.port", "SMTP_PORT")
	v.BindEnv("smtp.user", "SMTP_USER")
	v.BindEnv("smtp.password", "SMTP_PASSWORD")
	v.BindEnv("smtp.from", "SMTP_FROM")

	v.BindEnv("mail.workers", "MAIL_WORKERS")
	v.BindEnv("mail.queue_size", "MAIL_QUEUE_SIZE")
	v.BindEnv("mail.timeout", "MAIL_TIMEOUT")

	v.BindEnv("cache.render_ttl", "CACHE_RENDER_TTL")

	v.BindEnv("backoffice.emails", "BACKOFFICE_EMAILS")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.development", false)

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "http://localhost:8080")
	v.SetDefault("host.rate_limit", 5)

	v.SetDefault("session.secure", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "blogpp.db")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "admin@app.com")

	v.SetDefault("mail.workers", 4)
	v.SetDefault("mail.queue_size", 256)
	v.SetDefault("mail.timeout", "10s")

	v.SetDefault("cache.render_ttl", "10m")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file, %w", err)
		}
	}

	return load()
}

func load() (*Config, error) {
	c := &Config{
		LogLevel:         v.GetString("app.log_level"),
		Development:      v.GetBool("app.development"),
		Port:             v.GetInt("host.port"),
		Domain:           strings.TrimRight(v.GetString("host.domain"), "/"),
		CORSOrigins:      splitList(v.GetString("host.cors")),
		RateLimit:        v.GetInt("host.rate_limit"),
		SessionSecret:    v.GetString("session.secret"),
		SessionSecure:    v.GetBool("session.secure"),
		DBDriver:         v.GetString("database.driver"),
		DBDSN:            v.GetString("database.dsn"),
		RenderCacheTTL:   v.GetDuration("cache.render_ttl"),
		BackofficeEmails: splitList(v.GetString("backoffice.emails")),
		SMTP: SMTP{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			User:     v.GetString("smtp.user"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
		},
		Mail: MailQueue{
			Workers: v.GetInt("mail.workers"),
			Size:    v.GetInt("mail.queue_size"),
			Timeout: v.GetDuration("mail.timeout"),
		},
	}

	return c, c.validate()
}

func (c *Config) validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return errors.New("invalid log level provided")
	}

	if c.Port <= 0 {
		return errors.New("invalid port provided")
	}

	if c.SessionSecret == "" {
		return errMissingSecret
	}

	if !slices.Contains(validDBDrivers, c.DBDriver) {
		return errors.New("invalid database driver provided")
	}

	if c.DBDSN == "" {
		return errors.New("database.dsn can't be empty")
	}

	if c.Mail.Workers < 0 {
		return errors.New("mail.workers can't be negative")
	}

	if c.Mail.Size <= 0 {
		return errors.New("mail.queue_size must be bigger than 0")
	}

	if c.Mail.Timeout <= 0 {
		return errors.New("mail.timeout must be bigger than 0")
	}

	// 0 disables the limiter
	if c.RateLimit < 0 {
		return errors.New("host.rate_limit must not be negative")
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
