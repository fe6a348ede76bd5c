package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8080},
		Storage:  StorageConfig{Backend: BackendSQLite},
		SQLite:   SQLiteConfig{Path: "x.db"},
		GitLab:   GitLabConfig{BaseURL: "https://gitlab.example.com", Token: "t"},
		Review:   ReviewConfig{SigningSecret: "s", ProtectedBranch: "master", PublicURL: "https://cr.example.com/"},
		Postgres: PostgresConfig{},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.Review.SigningSecret = ""
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Storage.Backend = "mysql"
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Storage.Backend = BackendPostgres
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Review.TargetBranchRegex = "("
	require.Error(t, cfg.Validate())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("GITLAB_TOKEN", "token")
	t.Setenv("REVIEW_SIGNING_SECRET", "secret")
	t.Setenv("REVIEW_DEFAULT_REVIEWERS", "a@example.com,b@example.com")

	cfg, err := NewConfig()
	require.NoError(t, err)
	require.Equal(t, BackendSQLite, cfg.Storage.Backend)
	require.Equal(t, "master", cfg.Review.ProtectedBranch)
	require.Equal(t, "a@example.com,b@example.com", cfg.Review.DefaultReviewers)
	require.Equal(t, 8080, cfg.Server.Port)
}

func TestURLs(t *testing.T) {
	cfg := validConfig()
	require.Equal(t, "https://cr.example.com/webhook", cfg.WebhookURL())
	require.Equal(t, "https://gitlab.example.com", cfg.GitLab.PublicWebURL())

	cfg.GitLab.WebURL = "https://web.example.com/"
	require.Equal(t, "https://web.example.com", cfg.GitLab.PublicWebURL())
}
