package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Storage backends understood by repository.New.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	GitLab   GitLabConfig   `mapstructure:"gitlab"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Review   ReviewConfig   `mapstructure:"review"`
}

// Validate ensures required fields are present.
func (c Config) Validate() error {
	if c.Server.Port == 0 {
		return errors.New("server.port is required")
	}
	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Postgres.User == "" || c.Postgres.Password == "" || c.Postgres.DBName == "" {
			return errors.New("postgres credentials are required")
		}
		if c.Postgres.Host == "" {
			return errors.New("postgres.host is required")
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite.path is required")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.GitLab.BaseURL == "" || c.GitLab.Token == "" {
		return errors.New("gitlab.base_url and gitlab.token are required")
	}
	if c.Review.SigningSecret == "" {
		return errors.New("review.signing_secret is required")
	}
	if c.Review.ProtectedBranch == "" {
		return errors.New("review.protected_branch is required")
	}
	if c.Review.TargetBranchRegex != "" {
		if _, err := regexp.Compile(c.Review.TargetBranchRegex); err != nil {
			return fmt.Errorf("review.target_branch_regex: %w", err)
		}
	}
	return nil
}

// ServerAddr returns host:port for HTTP server binding.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// WebhookURL is the address GitLab project hooks post to.
func (c Config) WebhookURL() string {
	return strings.TrimRight(c.Review.PublicURL, "/") + "/webhook"
}

// ServerConfig contains HTTP server options.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HTTPConfig contains transport settings.
type HTTPConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoggingConfig contains logger preferences.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// StorageConfig selects the ledger backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// PostgresConfig describes database connection parameters.
type PostgresConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"db_name"`
	SSLMode        string        `mapstructure:"ssl_mode"`
	MigrationsDir  string        `mapstructure:"migrations_dir"`
	MigrateTimeout time.Duration `mapstructure:"migrate_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	MaxConns       int32         `mapstructure:"max_conns"`
	MinConns       int32         `mapstructure:"min_conns"`
}

// DSN returns a Postgres connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// SQLiteConfig describes the embedded database file.
type SQLiteConfig struct {
	Path          string `mapstructure:"path"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// DSN returns a go-sqlite3 data source name with foreign keys and a busy timeout.
func (s SQLiteConfig) DSN() string {
	return "file:" + s.Path + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
}

// GitLabConfig describes the GitLab API connection.
type GitLabConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	WebURL         string        `mapstructure:"web_url"`
	Token          string        `mapstructure:"token"`
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// PublicWebURL is the browser-facing GitLab address used in emails.
func (g GitLabConfig) PublicWebURL() string {
	if g.WebURL != "" {
		return strings.TrimRight(g.WebURL, "/")
	}
	return strings.TrimRight(g.BaseURL, "/")
}

// SMTPConfig describes outbound mail delivery.
type SMTPConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	StartTLS  bool   `mapstructure:"start_tls"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
}

// Enabled reports whether mail delivery is configured.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.Port > 0
}

// ReviewConfig holds the review workflow policy.
type ReviewConfig struct {
	PublicURL           string        `mapstructure:"public_url"`
	SigningSecret       string        `mapstructure:"signing_secret"`
	ProtectedBranch     string        `mapstructure:"protected_branch"`
	DefaultTargetBranch string        `mapstructure:"default_target_branch"`
	TargetBranchRegex   string        `mapstructure:"target_branch_regex"`
	DefaultReviewers    string        `mapstructure:"default_reviewers"`
	EventTimeout        time.Duration `mapstructure:"event_timeout"`
}
