package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gmessner/simple-cr/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const projectConfigColumns = `id, created_at, project_id, hook_id, enabled, branch_regex, target_branch_regex,
mail_to, additional_mail_to, exclude_mail_to, include_default_mail_to`

const (
	selectProjectConfigQuery = `SELECT ` + projectConfigColumns + ` FROM project_configs WHERE project_id=$1`
	listProjectConfigsQuery  = `SELECT ` + projectConfigColumns + ` FROM project_configs ORDER BY created_at, id`
	insertProjectConfigQuery = `INSERT INTO project_configs
(project_id, hook_id, enabled, branch_regex, target_branch_regex, mail_to, additional_mail_to, exclude_mail_to, include_default_mail_to)
VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),$6,NULLIF($7,''),NULLIF($8,''),$9)
RETURNING ` + projectConfigColumns
	updateProjectConfigQuery = `UPDATE project_configs
SET enabled=$2, branch_regex=NULLIF($3,''), target_branch_regex=NULLIF($4,''), mail_to=$5,
    additional_mail_to=NULLIF($6,''), exclude_mail_to=NULLIF($7,''), include_default_mail_to=$8
WHERE project_id=$1
RETURNING ` + projectConfigColumns
	deleteProjectConfigQuery = `DELETE FROM project_configs WHERE project_id=$1`
)

func scanProjectConfig(row rowScanner) (entities.ProjectConfig, error) {
	var (
		c                 entities.ProjectConfig
		branchRegex       *string
		targetBranchRegex *string
		mailTo            string
		additional        *string
		excluded          *string
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
	if branchRegex != nil {
		c.BranchRegex = *branchRegex
	}
	if targetBranchRegex != nil {
		c.TargetBranchRegex = *targetBranchRegex
	}
	if additional != nil {
		c.AdditionalReviewers = entities.ParseAddressList(*additional)
	}
	if excluded != nil {
		c.ExcludedReviewers = entities.ParseAddressList(*excluded)
	}
	return c, nil
}

// ProjectConfig returns the policy for projectID, or nil when unmanaged.
func (p *Postgres) ProjectConfig(ctx context.Context, projectID int) (*entities.ProjectConfig, error) {
	cfg, err := scanProjectConfig(p.db.QueryRow(ctx, selectProjectConfigQuery, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		p.log.Errorw("failed to select project config", "error", err, "project_id", projectID)
		return nil, fmt.Errorf("get project config: %w", err)
	}
	return &cfg, nil
}

// ListProjectConfigs returns every managed project in registration order.
func (p *Postgres) ListProjectConfigs(ctx context.Context) ([]entities.ProjectConfig, error) {
	rows, err := p.db.Query(ctx, listProjectConfigsQuery)
	if err != nil {
		return nil, fmt.Errorf("list project configs: %w", err)
	}
	defer rows.Close()

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

// InsertProjectConfig registers a project.
func (p *Postgres) InsertProjectConfig(ctx context.Context, cfg entities.ProjectConfig) (*entities.ProjectConfig, error) {
	created, err := scanProjectConfig(p.db.QueryRow(ctx, insertProjectConfigQuery,
		cfg.ProjectID, cfg.HookID, cfg.Enabled, cfg.BranchRegex, cfg.TargetBranchRegex, string(cfg.ReviewerMode),
		entities.JoinAddressList(cfg.AdditionalReviewers), entities.JoinAddressList(cfg.ExcludedReviewers),
		cfg.IncludeDefaultReviewers,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, entities.ErrProjectExists
		}
		p.log.Errorw("failed to insert project config", "error", err, "project_id", cfg.ProjectID)
		return nil, fmt.Errorf("insert project config: %w", err)
	}

	p.log.Infow("project config created", "project_id", cfg.ProjectID, "hook_id", cfg.HookID)
	return &created, nil
}

// UpdateProjectConfig overwrites the mutable policy fields of a project.
func (p *Postgres) UpdateProjectConfig(ctx context.Context, cfg entities.ProjectConfig) (*entities.ProjectConfig, error) {
	updated, err := scanProjectConfig(p.db.QueryRow(ctx, updateProjectConfigQuery,
		cfg.ProjectID, cfg.Enabled, cfg.BranchRegex, cfg.TargetBranchRegex, string(cfg.ReviewerMode),
		entities.JoinAddressList(cfg.AdditionalReviewers), entities.JoinAddressList(cfg.ExcludedReviewers),
		cfg.IncludeDefaultReviewers,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrProjectNotManaged
		}
		p.log.Errorw("failed to update project config", "error", err, "project_id", cfg.ProjectID)
		return nil, fmt.Errorf("update project config: %w", err)
	}

	p.log.Infow("project config updated", "project_id", cfg.ProjectID)
	return &updated, nil
}

// DeleteProjectConfig unregisters a project.
func (p *Postgres) DeleteProjectConfig(ctx context.Context, projectID int) error {
	tag, err := p.db.Exec(ctx, deleteProjectConfigQuery, projectID)
	if err != nil {
		p.log.Errorw("failed to delete project config", "error", err, "project_id", projectID)
		return fmt.Errorf("delete project config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrProjectNotManaged
	}

	p.log.Infow("project config deleted", "project_id", projectID)
	return nil
}
