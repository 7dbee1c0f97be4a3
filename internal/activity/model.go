// Package activity defines the git activity record attached to issues and
// the contract of the store that persists it.
package activity

import (
	"context"
	"strings"
	"time"
)

// Record is one persisted note describing a git event, optionally linked
// to an issue and to the acting user.
type Record struct {
	ID        int64     `json:"id"`
	IssueID   *int64    `json:"issue_id,omitempty"`
	UserID    *int64    `json:"user_id,omitempty"`
	Notes     string    `json:"notes"`
	CreatedOn time.Time `json:"created_on"`
}

// ListOptions pages through records of one issue
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListLimit caps ListByIssue when no limit is given
const DefaultListLimit = 50

// Store persists activity records. Records are append-only.
type Store interface {
	Create(ctx context.Context, rec *Record) (int64, error)
	ListByIssue(ctx context.Context, issueID int64, opts ListOptions) ([]Record, error)
	Count(ctx context.Context) (int64, error)
}

// ValidationError is returned when a record is rejected before reaching storage
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// Validate enforces the record invariants
func (r *Record) Validate() error {
	if strings.TrimSpace(r.Notes) == "" {
		return &ValidationError{Field: "notes", Message: "can't be blank"}
	}
	return nil
}
