package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gmessner/simple-cr/internal/entities"
)

const projectConfigColumns = `id, created_at, project_id, hook_id, enabled, branch_regex, target_branch_regex,
mail_to, additional_mail_to, exclude_mail_to, include_default_mail_to`

const (
	selectProjectConfigQuery = `SELECT ` + projectConfigColumns + ` FROM project_configs WHERE project_id=?`
	listProjectConfigsQuery  = `SELECT ` + projectConfigColumns + ` FROM project_configs ORDER BY created_at, id`
	insertProjectConfigQuery = `INSERT INTO project_configs
(created_at, project_id, hook_id, enabled, branch_regex, target_branch_regex, mail_to, additional_mail_to, exclude_mail_to, include_default_mail_to)
VALUES (?,?,?,?,NULLIF(?,''),NULLIF(?,''),?,NULLIF(?,''),NULLIF(?,''),?)
RETURNING ` + projectConfigColumns
	updateProjectConfigQuery = `UPDATE project_configs
SET enabled=?, branch_regex=NULLIF(?,''), target_branch_regex=NULLIF(?,''), mail_to=?,
    additional_mail_to=NULLIF(?,''), exclude_mail_to=NULLIF(?,''), include_default_mail_to=?
WHERE project_id=?
RETURNING ` + projectConfigColumns
	deleteProjectConfigQuery = `DELETE FROM project_configs WHERE project_id=?`
)

func scanProjectConfig(row rowScanner) (entities.ProjectConfig, error) {
	var (
		c                 entities.ProjectConfig
		branchRegex       sql.NullString
		targetBranchRegex sql.NullString
		mailTo            string
		additional        sql.NullString
		excluded          sql.NullString
	)
	if err := row.Scan(
		&c.ID, &c.CreatedAt, &c.ProjectID, &c.HookID, &c.Enabled, &branchRegex, &targetBranchRegex,
		&mailTo, &additional, &excluded, &c.IncludeDefaultReviewers,
	); err != nil {
		return entities.ProjectConfig{}, err
	}

	mode, err := entities.ParseReviewerMode(mailTo)
	if err != nil {
		return entities.ProjectConfig{}, fmt.Errorf("project %d: %w", c.ProjectID, err)
	}
	c.ReviewerMode = mode
	c.BranchRegex = branchRegex.String
	c.TargetBranchRegex = targetBranchRegex.String
	c.AdditionalReviewers = entities.ParseAddressList(additional.String)
	c.ExcludedReviewers = entities.ParseAddressList(excluded.String)
	return c, nil
}

func (s *SQLite) ProjectConfig(ctx context.Context, projectID int) (*entities.ProjectConfig, error) {
	cfg, err := scanProjectConfig(s.db.QueryRowContext(ctx, selectProjectConfigQuery, projectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.log.Errorw("failed to select project config", "error", err, "project_id", projectID)
		return nil, fmt.Errorf("get project config: %w", err)
	}
	return &cfg, nil
}

func (s *SQLite) ListProjectConfigs(ctx context.Context) ([]entities.ProjectConfig, error) {
	rows, err := s.db.QueryContext(ctx, listProjectConfigsQuery)
	if err != nil {
		return nil, fmt.Errorf("list project configs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	res := make([]entities.ProjectConfig, 0)
	for rows.Next() {
		cfg, err := scanProjectConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project config: %w", err)
		}
		res = append(res, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project configs: %w", err)
	}
	return res, nil
}

func (s *SQLite) InsertProjectConfig(ctx context.Context, cfg entities.ProjectConfig) (*entities.ProjectConfig, error) {
	created, err := scanProjectConfig(s.db.QueryRowContext(ctx, insertProjectConfigQuery,
		time.Now().UTC(), cfg.ProjectID, cfg.HookID, cfg.Enabled, cfg.BranchRegex, cfg.TargetBranchRegex,
		string(cfg.ReviewerMode), entities.JoinAddressList(cfg.AdditionalReviewers),
		entities.JoinAddressList(cfg.ExcludedReviewers), cfg.IncludeDefaultReviewers,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, entities.ErrProjectExists
		}
		s.log.Errorw("failed to insert project config", "error", err, "project_id", cfg.ProjectID)
		return nil, fmt.Errorf("insert project config: %w", err)
	}

	s.log.Infow("project config created", "project_id", cfg.ProjectID, "hook_id", cfg.HookID)
	return &created, nil
}

func (s *SQLite) UpdateProjectConfig(ctx context.Context, cfg entities.ProjectConfig) (*entities.ProjectConfig, error) {
	updated, err := scanProjectConfig(s.db.QueryRowContext(ctx, updateProjectConfigQuery,
		cfg.Enabled, cfg.BranchRegex, cfg.TargetBranchRegex, string(cfg.ReviewerMode),
		entities.JoinAddressList(cfg.AdditionalReviewers), entities.JoinAddressList(cfg.ExcludedReviewers),
		cfg.IncludeDefaultReviewers, cfg.ProjectID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrProjectNotManaged
		}
		s.log.Errorw("failed to update project config", "error", err, "project_id", cfg.ProjectID)
		return nil, fmt.Errorf("update project config: %w", err)
	}

	s.log.Infow("project config updated", "project_id", cfg.ProjectID)
	return &updated, nil
}

func (s *SQLite) DeleteProjectConfig(ctx context.Context, projectID int) error {
	res, err := s.db.ExecContext(ctx, deleteProjectConfigQuery, projectID)
	if err != nil {
		s.log.Errorw("failed to delete project config", "error", err, "project_id", projectID)
		return fmt.Errorf("delete project config: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entities.ErrProjectNotManaged
	}

	s.log.Infow("project config deleted", "project_id", projectID)
	return nil
}
