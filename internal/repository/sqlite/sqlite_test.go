package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gmessner/simple-cr/config"
	"github.com/gmessner/simple-cr/internal/entities"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPushLedger(t *testing.T) {
	ctx := context.Background()

	repo := startRepo(t)
	key := entities.PushKey{UserID: 7, ProjectID: 42, Branch: "feature/x"}

	open, err := repo.FindOpenPush(ctx, key)
	require.NoError(t, err)
	require.Nil(t, open)

	push, err := repo.InsertPush(ctx, key, "a1", "b2")
	require.NoError(t, err)
	require.True(t, push.IsOpen())
	require.False(t, push.ReceivedAt.IsZero())

	_, err = repo.InsertPush(ctx, key, "b2", "c3")
	require.ErrorIs(t, err, entities.ErrDuplicatePush)

	other, err := repo.InsertPush(ctx, entities.PushKey{UserID: 8, ProjectID: 42, Branch: "feature/x"}, "a1", "b2")
	require.NoError(t, err)
	require.NotEqual(t, push.ID, other.ID)

	require.NoError(t, repo.AttachMergeRequest(ctx, push.ID, 11))
	require.ErrorIs(t, repo.AttachMergeRequest(ctx, push.ID, 12), entities.ErrMergeRequestAttached)
	require.ErrorIs(t, repo.AttachMergeRequest(ctx, 999, 12), entities.ErrPushNotFound)
	require.ErrorIs(t, repo.AttachMergeRequest(ctx, push.ID, 0), entities.ErrInvalidArgument)

	pending, err := repo.FindPendingReviews(ctx, key)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, 11, pending[0].MergeRequestID)
	require.True(t, pending[0].IsPendingReview())

	byMR, err := repo.FindByMergeRequest(ctx, key, 11)
	require.NoError(t, err)
	require.Len(t, byMR, 1)

	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	changed, err := repo.ResolvePush(ctx, push.ID, when, "", entities.MergeStateClosed, 0)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = repo.ResolvePush(ctx, push.ID, when, "", entities.MergeStateClosed, 0)
	require.NoError(t, err)
	require.False(t, changed)

	_, err = repo.ResolvePush(ctx, push.ID, when, "can_be_merged", entities.MergeStateMerged, 3)
	require.ErrorIs(t, err, entities.ErrPushResolved)

	_, err = repo.ResolvePush(ctx, push.ID, when, "", entities.MergeStateNone, 0)
	require.ErrorIs(t, err, entities.ErrInvalidArgument)

	history, err := repo.PushHistory(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, entities.MergeStateClosed, history[0].MergeState)
	require.Nil(t, history[0].MergeStatus)
	require.NotNil(t, history[0].MergeStatusDate)
	require.True(t, when.Equal(*history[0].MergeStatusDate))

	pending, err = repo.FindPendingReviews(ctx, key)
	require.NoError(t, err)
	require.Empty(t, pending)

	again, err := repo.InsertPush(ctx, key, "c3", "d4")
	require.NoError(t, err)

	history, err = repo.PushHistory(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, again.ID, history[0].ID)
}

func TestConcurrentInsertKeepsOneOpenPush(t *testing.T) {
	ctx := context.Background()

	repo := startRepo(t)
	key := entities.PushKey{UserID: 7, ProjectID: 42, Branch: "race"}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.InsertPush(ctx, key, "a", "b")
		}(i)
	}
	wg.Wait()

	inserted := 0
	for _, err := range errs {
		if err == nil {
			inserted++
			continue
		}
		require.ErrorIs(t, err, entities.ErrDuplicatePush)
	}
	require.Equal(t, 1, inserted)
}

func TestProjectConfig(t *testing.T) {
	ctx := context.Background()

	repo := startRepo(t)

	cfg := entities.ProjectConfig{
		ProjectID:               42,
		HookID:                  5,
		Enabled:                 true,
		TargetBranchRegex:       "^(master|main)$",
		ReviewerMode:            entities.ReviewerModeProject,
		ExcludedReviewers:       []string{"bot@example.com"},
		IncludeDefaultReviewers: true,
	}
	created, err := repo.InsertProjectConfig(ctx, cfg)
	require.NoError(t, err)
	require.Positive(t, created.ID)
	require.True(t, created.Enabled)
	require.True(t, created.IncludeDefaultReviewers)
	require.Empty(t, created.BranchRegex)
	require.Empty(t, created.AdditionalReviewers)
	require.Equal(t, []string{"bot@example.com"}, created.ExcludedReviewers)

	_, err = repo.InsertProjectConfig(ctx, cfg)
	require.ErrorIs(t, err, entities.ErrProjectExists)

	created.ReviewerMode = entities.ReviewerModeNone
	created.AdditionalReviewers = []string{"lead@example.com"}
	updated, err := repo.UpdateProjectConfig(ctx, *created)
	require.NoError(t, err)
	require.Equal(t, entities.ReviewerModeNone, updated.ReviewerMode)
	require.Equal(t, []string{"lead@example.com"}, updated.AdditionalReviewers)

	_, err = repo.UpdateProjectConfig(ctx, entities.ProjectConfig{ProjectID: 99, ReviewerMode: entities.ReviewerModeNone})
	require.ErrorIs(t, err, entities.ErrProjectNotManaged)

	list, err := repo.ListProjectConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.DeleteProjectConfig(ctx, 42))
	require.ErrorIs(t, repo.DeleteProjectConfig(ctx, 42), entities.ErrProjectNotManaged)

	missing, err := repo.ProjectConfig(ctx, 42)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func startRepo(t *testing.T) *SQLite {
	t.Helper()
	ctx := context.Background()

	migrationsDir, err := filepath.Abs(filepath.Join("..", "..", "..", "db", "migrations", "sqlite"))
	require.NoError(t, err)
	require.DirExists(t, migrationsDir)

	cfg := &config.Config{
		SQLite: config.SQLiteConfig{
			Path:          filepath.Join(t.TempDir(), "data", "simple-cr.db"),
			MigrationsDir: migrationsDir,
		},
	}

	l, _ := zap.NewDevelopment()
	t.Cleanup(func() { _ = l.Sync() })

	repo := New(ctx, l.Sugar(), cfg)
	require.NoError(t, repo.OnStart(ctx))
	t.Cleanup(func() { _ = repo.OnStop(ctx) })
	return repo
}

func TestReopenKeepsLedger(t *testing.T) {
	ctx := context.Background()

	repo := startRepo(t)
	k := entities.PushKey{UserID: 7, ProjectID: 42, Branch: "feature-x"}
	push, err := repo.InsertPush(ctx, k, "a1", "b2")
	require.NoError(t, err)
	require.NoError(t, repo.OnStop(ctx))

	reopened := New(ctx, zap.NewNop().Sugar(), &config.Config{SQLite: repo.cfg})
	require.NoError(t, reopened.OnStart(ctx))
	t.Cleanup(func() { _ = reopened.OnStop(ctx) })

	open, err := reopened.FindOpenPush(ctx, k)
	require.NoError(t, err)
	require.NotNil(t, open)
	require.Equal(t, push.ID, open.ID)
}

func TestStartFailsWithoutMigrations(t *testing.T) {
	ctx := context.Background()

	repo := New(ctx, zap.NewNop().Sugar(), &config.Config{
		SQLite: config.SQLiteConfig{
			Path:          filepath.Join(t.TempDir(), "simple-cr.db"),
			MigrationsDir: filepath.Join(t.TempDir(), "missing"),
		},
	})
	require.Error(t, repo.OnStart(ctx))
}
