// Package config loads application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envFile = "config/.env"

// NewConfig loads configuration from environment using viper with typed defaults and validation.
func NewConfig() (*Config, error) {
	v := viper.New()
	if envMap, err := godotenv.Read(envFile); err == nil {
		for k, v := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, v)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("http.request_timeout", 10*time.Second)

	v.SetDefault("storage.backend", BackendPostgres)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.db_name", "simple_cr")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.migrations_dir", "db/migrations/postgres")
	v.SetDefault("postgres.migrate_timeout", 10*time.Second)
	v.SetDefault("postgres.query_timeout", 2*time.Second)
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)

	v.SetDefault("sqlite.path", "dbdata/simple-cr.db")
	v.SetDefault("sqlite.migrations_dir", "db/migrations/sqlite")

	v.SetDefault("gitlab.base_url", "https://gitlab.com")
	v.SetDefault("gitlab.request_timeout", 5*time.Second)

	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 25)
	v.SetDefault("smtp.from_email", "noreply@localhost")
	v.SetDefault("smtp.from_name", "GitLab Code Review")

	v.SetDefault("review.public_url", "http://localhost:8080")
	v.SetDefault("review.protected_branch", "master")
	v.SetDefault("review.default_target_branch", "master")
	v.SetDefault("review.event_timeout", 30*time.Second)
}

func bindEnvs(v *viper.Viper) {
	keys := []string{
		"logging.level",
		"server.host",
		"server.port",
		"server.shutdown_timeout",
		"http.request_timeout",
		"storage.backend",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.db_name",
		"postgres.ssl_mode",
		"postgres.migrations_dir",
		"postgres.migrate_timeout",
		"postgres.query_timeout",
		"postgres.max_conns",
		"postgres.min_conns",
		"sqlite.path",
		"sqlite.migrations_dir",
		"gitlab.base_url",
		"gitlab.web_url",
		"gitlab.token",
		"gitlab.webhook_secret",
		"gitlab.request_timeout",
		"smtp.host",
		"smtp.port",
		"smtp.username",
		"smtp.password",
		"smtp.start_tls",
		"smtp.from_email",
		"smtp.from_name",
		"review.public_url",
		"review.signing_secret",
		"review.protected_branch",
		"review.default_target_branch",
		"review.target_branch_regex",
		"review.default_reviewers",
		"review.event_timeout",
	}

	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}
