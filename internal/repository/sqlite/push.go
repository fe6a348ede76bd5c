package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gmessner/simple-cr/internal/entities"

	"github.com/mattn/go-sqlite3"
)

const pushColumns = `id, received_at, user_id, project_id, branch, before_sha, after_sha,
merge_request_id, merge_status_date, merge_state, merge_status, merged_by_id`

const (
	insertPushQuery = `INSERT INTO pushes(received_at, user_id, project_id, branch, before_sha, after_sha)
VALUES (?,?,?,?,?,?) RETURNING ` + pushColumns
	selectOpenPushQuery = `SELECT ` + pushColumns + ` FROM pushes
WHERE user_id=? AND project_id=? AND branch=? AND merge_request_id=0 AND merge_state IS NULL
ORDER BY received_at DESC, id DESC LIMIT 1`
	selectPendingPushesQuery = `SELECT ` + pushColumns + ` FROM pushes
WHERE user_id=? AND project_id=? AND branch=? AND merge_request_id>0 AND merge_status IS NULL AND merge_state IS NULL
ORDER BY received_at DESC, id DESC`
	selectPushesByMRQuery = `SELECT ` + pushColumns + ` FROM pushes
WHERE user_id=? AND project_id=? AND branch=? AND merge_request_id=?
ORDER BY received_at DESC, id DESC`
	selectPushHistoryQuery = `SELECT ` + pushColumns + ` FROM pushes
WHERE user_id=? AND project_id=? AND branch=?
ORDER BY received_at DESC, id DESC`
	attachMergeRequestQuery = `UPDATE pushes SET merge_request_id=? WHERE id=? AND merge_request_id=0 AND merge_state IS NULL`
	selectPushExistsQuery   = `SELECT merge_request_id FROM pushes WHERE id=?`
	selectPushStateQuery    = `SELECT merge_state FROM pushes WHERE id=?`
	resolvePushQuery        = `UPDATE pushes
SET merge_status_date=?, merge_status=NULLIF(?,''), merge_state=?, merged_by_id=?
WHERE id=? AND merge_state IS NULL`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var sqlErr sqlite3.Error
	return errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func scanPush(row rowScanner) (entities.Push, error) {
	var (
		p          entities.Push
		before     sql.NullString
		after      sql.NullString
		statusDate sql.NullTime
		mergeState sql.NullString
		status     sql.NullString
		mergedBy   sql.NullInt64
	)
	if err := row.Scan(
		&p.ID, &p.ReceivedAt, &p.UserID, &p.ProjectID, &p.Branch, &before, &after,
		&p.MergeRequestID, &statusDate, &mergeState, &status, &mergedBy,
	); err != nil {
		return entities.Push{}, err
	}
	p.BeforeSHA = before.String
	p.AfterSHA = after.String
	p.MergeState = entities.MergeState(mergeState.String)
	p.MergedByID = int(mergedBy.Int64)
	if statusDate.Valid {
		t := statusDate.Time
		p.MergeStatusDate = &t
	}
	if status.Valid {
		s := status.String
		p.MergeStatus = &s
	}
	return p, nil
}

// InsertPush records a new open push for key.
func (s *SQLite) InsertPush(ctx context.Context, key entities.PushKey, beforeSHA, afterSHA string) (*entities.Push, error) {
	row := s.db.QueryRowContext(ctx, insertPushQuery,
		time.Now().UTC(), key.UserID, key.ProjectID, key.Branch, beforeSHA, afterSHA)
	push, err := scanPush(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, entities.ErrDuplicatePush
		}
		s.log.Errorw("failed to insert push", "error", err, "user_id", key.UserID, "project_id", key.ProjectID, "branch", key.Branch)
		return nil, fmt.Errorf("insert push: %w", err)
	}

	s.log.Infow("push recorded", "push_id", push.ID, "user_id", key.UserID, "project_id", key.ProjectID, "branch", key.Branch)
	return &push, nil
}

// FindOpenPush returns the newest open push for key.
func (s *SQLite) FindOpenPush(ctx context.Context, key entities.PushKey) (*entities.Push, error) {
	push, err := scanPush(s.db.QueryRowContext(ctx, selectOpenPushQuery, key.UserID, key.ProjectID, key.Branch))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open push: %w", err)
	}
	return &push, nil
}

func (s *SQLite) FindPendingReviews(ctx context.Context, key entities.PushKey) ([]entities.Push, error) {
	return s.queryPushes(ctx, "find pending reviews", selectPendingPushesQuery, key.UserID, key.ProjectID, key.Branch)
}

func (s *SQLite) FindByMergeRequest(ctx context.Context, key entities.PushKey, mergeRequestID int) ([]entities.Push, error) {
	return s.queryPushes(ctx, "find by merge request", selectPushesByMRQuery, key.UserID, key.ProjectID, key.Branch, mergeRequestID)
}

func (s *SQLite) PushHistory(ctx context.Context, key entities.PushKey) ([]entities.Push, error) {
	return s.queryPushes(ctx, "push history", selectPushHistoryQuery, key.UserID, key.ProjectID, key.Branch)
}

// AttachMergeRequest moves an open push to pending review.
func (s *SQLite) AttachMergeRequest(ctx context.Context, pushID int64, mergeRequestID int) error {
	if mergeRequestID <= 0 {
		return fmt.Errorf("%w: merge request id must be positive", entities.ErrInvalidArgument)
	}

	res, err := s.db.ExecContext(ctx, attachMergeRequestQuery, mergeRequestID, pushID)
	if err != nil {
		s.log.Errorw("failed to attach merge request", "error", err, "push_id", pushID)
		return fmt.Errorf("attach merge request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		s.log.Infow("merge request attached", "push_id", pushID, "merge_request_id", mergeRequestID)
		return nil
	}

	var current int
	if err := s.db.QueryRowContext(ctx, selectPushExistsQuery, pushID).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.ErrPushNotFound
		}
		return fmt.Errorf("attach merge request: %w", err)
	}
	return fmt.Errorf("%w: push %d has merge request %d", entities.ErrMergeRequestAttached, pushID, current)
}

// ResolvePush records the terminal merge state exactly once. The DSN opens
// transactions with BEGIN IMMEDIATE so the read and the write share one lock.
func (s *SQLite) ResolvePush(
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var current sql.NullString
	if err := tx.QueryRowContext(ctx, selectPushStateQuery, pushID).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, entities.ErrPushNotFound
		}
		s.log.Errorw("failed to select push state", "error", err, "push_id", pushID)
		return false, fmt.Errorf("get push: %w", err)
	}

	if current.Valid {
		if entities.MergeState(current.String) == state {
			return false, nil
		}
		return false, fmt.Errorf("%w: push %d is %s", entities.ErrPushResolved, pushID, current.String)
	}

	if _, err := tx.ExecContext(ctx, resolvePushQuery, when.UTC(), status, string(state), mergedByID, pushID); err != nil {
		s.log.Errorw("failed to resolve push", "error", err, "push_id", pushID)
		return false, fmt.Errorf("resolve push: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	s.log.Infow("push resolved", "push_id", pushID, "merge_state", state, "merge_status", status, "merged_by_id", mergedByID)
	return true, nil
}

func (s *SQLite) queryPushes(ctx context.Context, op, query string, args ...any) ([]entities.Push, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	pushes := make([]entities.Push, 0)
	for rows.Next() {
		push, err := scanPush(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		pushes = append(pushes, push)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return pushes, nil
}
