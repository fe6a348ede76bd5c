package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gmessner/simple-cr/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pushColumns = `id, received_at, user_id, project_id, branch, before_sha, after_sha,
merge_request_id, merge_status_date, merge_state, merge_status, merged_by_id`

const (
	insertPushQuery = `INSERT INTO pushes(user_id, project_id, branch, before_sha, after_sha)
VALUES ($1,$2,$3,$4,$5) RETURNING ` + pushColumns
	selectOpenPushQuery = `SELECT ` + pushColumns + ` FROM pushes
WHERE user_id=$1 AND project_id=$2 AND branch=$3 AND merge_request_id=0 AND merge_state IS NULL
ORDER BY received_at DESC, id DESC LIMIT 1`
	selectPendingPushesQuery = `SELECT ` + pushColumns + ` FROM pushes
WHERE user_id=$1 AND project_id=$2 AND branch=$3 AND merge_request_id>0 AND merge_status IS NULL AND merge_state IS NULL
ORDER BY received_at DESC, id DESC`
	selectPushesByMRQuery = `SELECT ` + pushColumns + ` FROM pushes
WHERE user_id=$1 AND project_id=$2 AND branch=$3 AND merge_request_id=$4
ORDER BY received_at DESC, id DESC`
	selectPushHistoryQuery = `SELECT ` + pushColumns + ` FROM pushes
WHERE user_id=$1 AND project_id=$2 AND branch=$3
ORDER BY received_at DESC, id DESC`
	attachMergeRequestQuery  = `UPDATE pushes SET merge_request_id=$2 WHERE id=$1 AND merge_request_id=0 AND merge_state IS NULL`
	selectPushExistsQuery    = `SELECT merge_request_id FROM pushes WHERE id=$1`
	selectPushForUpdateQuery = `SELECT merge_state FROM pushes WHERE id=$1 FOR UPDATE`
	resolvePushQuery         = `UPDATE pushes
SET merge_status_date=$2, merge_status=NULLIF($3,''), merge_state=$4, merged_by_id=$5
WHERE id=$1 AND merge_state IS NULL`
)

const uniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPush(row rowScanner) (entities.Push, error) {
	var (
		p          entities.Push
		before     *string
		after      *string
		mergeState *string
		mergedBy   *int
	)
	if err := row.Scan(
		&p.ID, &p.ReceivedAt, &p.UserID, &p.ProjectID, &p.Branch, &before, &after,
		&p.MergeRequestID, &p.MergeStatusDate, &mergeState, &p.MergeStatus, &mergedBy,
	); err != nil {
		return entities.Push{}, err
	}
	if before != nil {
		p.BeforeSHA = *before
	}
	if after != nil {
		p.AfterSHA = *after
	}
	if mergeState != nil {
		p.MergeState = entities.MergeState(*mergeState)
	}
	if mergedBy != nil {
		p.MergedByID = *mergedBy
	}
	return p, nil
}

// InsertPush records a new open push for key.
func (p *Postgres) InsertPush(ctx context.Context, key entities.PushKey, beforeSHA, afterSHA string) (*entities.Push, error) {
	row := p.db.QueryRow(ctx, insertPushQuery, key.UserID, key.ProjectID, key.Branch, beforeSHA, afterSHA)
	push, err := scanPush(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, entities.ErrDuplicatePush
		}
		p.log.Errorw("failed to insert push", "error", err, "user_id", key.UserID, "project_id", key.ProjectID, "branch", key.Branch)
		return nil, fmt.Errorf("insert push: %w", err)
	}

	p.log.Infow("push recorded", "push_id", push.ID, "user_id", key.UserID, "project_id", key.ProjectID, "branch", key.Branch)
	return &push, nil
}

// FindOpenPush returns the newest open push for key.
func (p *Postgres) FindOpenPush(ctx context.Context, key entities.PushKey) (*entities.Push, error) {
	push, err := scanPush(p.db.QueryRow(ctx, selectOpenPushQuery, key.UserID, key.ProjectID, key.Branch))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open push: %w", err)
	}
	return &push, nil
}

// FindPendingReviews returns submitted, unresolved pushes for key.
func (p *Postgres) FindPendingReviews(ctx context.Context, key entities.PushKey) ([]entities.Push, error) {
	return p.queryPushes(ctx, "find pending reviews", selectPendingPushesQuery, key.UserID, key.ProjectID, key.Branch)
}

// FindByMergeRequest returns pushes for key carrying mergeRequestID.
func (p *Postgres) FindByMergeRequest(ctx context.Context, key entities.PushKey, mergeRequestID int) ([]entities.Push, error) {
	return p.queryPushes(ctx, "find by merge request", selectPushesByMRQuery, key.UserID, key.ProjectID, key.Branch, mergeRequestID)
}

// PushHistory returns every push for key.
func (p *Postgres) PushHistory(ctx context.Context, key entities.PushKey) ([]entities.Push, error) {
	return p.queryPushes(ctx, "push history", selectPushHistoryQuery, key.UserID, key.ProjectID, key.Branch)
}

// AttachMergeRequest moves an open push to pending review.
func (p *Postgres) AttachMergeRequest(ctx context.Context, pushID int64, mergeRequestID int) error {
	if mergeRequestID <= 0 {
		return fmt.Errorf("%w: merge request id must be positive", entities.ErrInvalidArgument)
	}

	tag, err := p.db.Exec(ctx, attachMergeRequestQuery, pushID, mergeRequestID)
	if err != nil {
		p.log.Errorw("failed to attach merge request", "error", err, "push_id", pushID)
		return fmt.Errorf("attach merge request: %w", err)
	}
	if tag.RowsAffected() == 1 {
		p.log.Infow("merge request attached", "push_id", pushID, "merge_request_id", mergeRequestID)
		return nil
	}

	var current int
	if err := p.db.QueryRow(ctx, selectPushExistsQuery, pushID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entities.ErrPushNotFound
		}
		return fmt.Errorf("attach merge request: %w", err)
	}
	return fmt.Errorf("%w: push %d has merge request %d", entities.ErrMergeRequestAttached, pushID, current)
}

// ResolvePush records the terminal merge state exactly once.
func (p *Postgres) ResolvePush(
	ctx context.Context,
	pushID int64,
	when time.Time,
	status string,
	state entities.MergeState,
	mergedByID int,
) (bool, error) {
	if !state.Terminal() {
		return false, fmt.Errorf("%w: merge state %q is not terminal", entities.ErrInvalidArgument, state)
	}

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current *string
	if err := tx.QueryRow(ctx, selectPushForUpdateQuery, pushID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, entities.ErrPushNotFound
		}
		p.log.Errorw("failed to select push for update", "error", err, "push_id", pushID)
		return false, fmt.Errorf("get push: %w", err)
	}

	if current != nil {
		if entities.MergeState(*current) == state {
			return false, nil
		}
		return false, fmt.Errorf("%w: push %d is %s", entities.ErrPushResolved, pushID, *current)
	}

	if _, err := tx.Exec(ctx, resolvePushQuery, pushID, when, status, string(state), mergedByID); err != nil {
		p.log.Errorw("failed to resolve push", "error", err, "push_id", pushID)
		return false, fmt.Errorf("resolve push: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	p.log.Infow("push resolved", "push_id", pushID, "merge_state", state, "merge_status", status, "merged_by_id", mergedByID)
	return true, nil
}

func (p *Postgres) queryPushes(ctx context.Context, op, query string, args ...any) ([]entities.Push, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	pushes := make([]entities.Push, 0)
	for rows.Next() {
		push, err := scanPush(rows)
		if err != nil {
			p.log.Errorw("failed to scan push", "error", err, "op", op)
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		pushes = append(pushes, push)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return pushes, nil
}
