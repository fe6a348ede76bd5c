package domain

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gmessner/simple-cr/internal/entities"
)

// ProjectConfig returns the policy of the project at "group/project".
func (u *Usecase) ProjectConfig(ctx context.Context, path string) (*entities.ProjectConfig, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	_, cfg, err := u.managedProject(ctx, path)
	return cfg, err
}

// ListProjects returns every managed project.
func (u *Usecase) ListProjects(ctx context.Context) ([]entities.ProjectConfig, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	return u.repo.ListProjectConfigs(ctx)
}

// AddProject registers the project at path and installs the webhook.
// Unset patch fields default to an enabled project mailing its members.
func (u *Usecase) AddProject(ctx context.Context, path string, patch entities.ProjectConfigPatch) (*entities.ProjectConfig, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	cfg := entities.ProjectConfig{Enabled: true, ReviewerMode: entities.ReviewerModeProject}
	if err := applyPatch(&cfg, patch); err != nil {
		return nil, err
	}

	project, err := u.projectByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	existing, err := u.repo.ProjectConfig(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrProjectExists, path)
	}

	hookID, err := u.gitlab.AddProjectHook(ctx, project.ID, u.settings.WebhookURL, u.settings.WebhookSecret)
	if err != nil {
		return nil, err
	}

	cfg.ProjectID = project.ID
	cfg.HookID = hookID
	created, err := u.repo.InsertProjectConfig(ctx, cfg)
	if err != nil {
		if derr := u.gitlab.DeleteProjectHook(ctx, project.ID, hookID); derr != nil {
			u.log.Errorw("failed to remove hook after insert failure", "project_id", project.ID, "hook_id", hookID, "error", derr)
		}
		return nil, err
	}

	u.log.Infow("project added", "path", path, "project_id", project.ID, "hook_id", hookID)
	return created, nil
}

// UpdateProject applies patch to the policy of the project at path.
func (u *Usecase) UpdateProject(ctx context.Context, path string, patch entities.ProjectConfigPatch) (*entities.ProjectConfig, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	_, cfg, err := u.managedProject(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := applyPatch(cfg, patch); err != nil {
		return nil, err
	}

	updated, err := u.repo.UpdateProjectConfig(ctx, *cfg)
	if err != nil {
		return nil, err
	}
	u.log.Infow("project updated", "path", path, "project_id", cfg.ProjectID)
	return updated, nil
}

// DeleteProject removes the webhook and then the policy.
func (u *Usecase) DeleteProject(ctx context.Context, path string) error {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	project, cfg, err := u.managedProject(ctx, path)
	if err != nil {
		return err
	}
	if cfg.HookID > 0 {
		if err := u.gitlab.DeleteProjectHook(ctx, project.ID, cfg.HookID); err != nil {
			return err
		}
	}
	if err := u.repo.DeleteProjectConfig(ctx, project.ID); err != nil {
		return err
	}

	u.log.Infow("project deleted", "path", path, "project_id", project.ID)
	return nil
}

func (u *Usecase) projectByPath(ctx context.Context, path string) (*entities.Project, error) {
	path = strings.Trim(path, "/")
	if path == "" || !strings.Contains(path, "/") {
		return nil, fmt.Errorf("%w: project path must be group/project", entities.ErrInvalidArgument)
	}
	return u.gitlab.ProjectByPath(ctx, path)
}

func (u *Usecase) managedProject(ctx context.Context, path string) (*entities.Project, *entities.ProjectConfig, error) {
	project, err := u.projectByPath(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := u.repo.ProjectConfig(ctx, project.ID)
	if err != nil {
		return nil, nil, err
	}
	if cfg == nil {
		return nil, nil, fmt.Errorf("%w: %s", entities.ErrProjectNotManaged, path)
	}
	return project, cfg, nil
}

func applyPatch(cfg *entities.ProjectConfig, patch entities.ProjectConfigPatch) error {
	if patch.Enabled != nil {
		cfg.Enabled = *patch.Enabled
	}
	if patch.BranchRegex != nil {
		if err := checkRegex("branch_regex", *patch.BranchRegex); err != nil {
			return err
		}
		cfg.BranchRegex = *patch.BranchRegex
	}
	if patch.TargetBranchRegex != nil {
		if err := checkRegex("target_branch_regex", *patch.TargetBranchRegex); err != nil {
			return err
		}
		cfg.TargetBranchRegex = *patch.TargetBranchRegex
	}
	if patch.ReviewerMode != nil {
		mode, err := entities.ParseReviewerMode(*patch.ReviewerMode)
		if err != nil {
			return err
		}
		cfg.ReviewerMode = mode
	}
	if patch.AdditionalReviewers != nil {
		cfg.AdditionalReviewers = entities.ParseAddressList(*patch.AdditionalReviewers)
	}
	if patch.ExcludedReviewers != nil {
		cfg.ExcludedReviewers = entities.ParseAddressList(*patch.ExcludedReviewers)
	}
	if patch.IncludeDefaultReviewers != nil {
		cfg.IncludeDefaultReviewers = *patch.IncludeDefaultReviewers
	}
	return nil
}

func checkRegex(field, pattern string) error {
	if pattern == "" {
		return nil
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("%w: %s: %w", entities.ErrInvalidArgument, field, err)
	}
	return nil
}
