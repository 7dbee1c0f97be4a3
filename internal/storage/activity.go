package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atlet99/git-activity-hook/internal/activity"
)

// ActivityRepository implements activity.Store
type ActivityRepository struct {
	db  *DB
	now func() time.Time
}

var _ activity.Store = (*ActivityRepository)(nil)

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db, now: time.Now}
}

// Create validates and inserts a new record, returning its id
func (r *ActivityRepository) Create(ctx context.Context, rec *activity.Record) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	createdOn := rec.CreatedOn
	if createdOn.IsZero() {
		createdOn = r.now()
	}
	createdOn = createdOn.UTC()

	query := r.db.rebind(`
		INSERT INTO git_histories (issue_id, user_id, notes, created_on)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		nullInt64(rec.IssueID),
		nullInt64(rec.UserID),
		rec.Notes,
		createdOn,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create git history: %w", err)
	}

	rec.ID = id
	rec.CreatedOn = createdOn
	return id, nil
}

// ListByIssue returns records attached to an issue, newest first
func (r *ActivityRepository) ListByIssue(ctx context.Context, issueID int64, opts activity.ListOptions) ([]activity.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = activity.DefaultListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := r.db.rebind(`
		SELECT id, issue_id, user_id, notes, created_on
		FROM git_histories
		WHERE issue_id = ?
		ORDER BY created_on DESC, id DESC
		LIMIT ? OFFSET ?
	`)

	rows, err := r.db.QueryContext(ctx, query, issueID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list git histories: %w", err)
	}
	defer rows.Close()

	records := []activity.Record{}
	for rows.Next() {
		var rec activity.Record
		var issue, user sql.NullInt64
		if err := rows.Scan(&rec.ID, &issue, &user, &rec.Notes, &rec.CreatedOn); err != nil {
			return nil, fmt.Errorf("failed to scan git history: %w", err)
		}
		if issue.Valid {
			rec.IssueID = &issue.Int64
		}
		if user.Valid {
			rec.UserID = &user.Int64
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating git history rows: %w", err)
	}

	return records, nil
}

// Count returns the number of stored records
func (r *ActivityRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM git_histories").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count git histories: %w", err)
	}
	return n, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
