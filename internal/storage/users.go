package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atlet99/git-activity-hook/internal/users"
)

// UserRepository implements users.Directory over the users table
type UserRepository struct {
	db *DB
}

var _ users.Directory = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail looks a user up by mail, ignoring case
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	mail := users.NormalizeEmail(email)
	if mail == "" {
		return nil, users.ErrNotFound
	}

	query := r.db.rebind(`SELECT id, login, mail FROM users WHERE lower(mail) = ?`)

	var u users.User
	err := r.db.QueryRowContext(ctx, query, mail).Scan(&u.ID, &u.Login, &u.Mail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by mail: %w", err)
	}
	return &u, nil
}

// Upsert inserts a user or updates the login and mail of an existing id
func (r *UserRepository) Upsert(ctx context.Context, u users.User) error {
	query := r.db.rebind(`
		INSERT INTO users (id, login, mail) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET login = excluded.login, mail = excluded.mail
	`)
	if _, err := r.db.ExecContext(ctx, query, u.ID, u.Login, u.Mail); err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", u.ID, err)
	}
	return nil
}

// Seed upserts every user in a single transaction
func (r *UserRepository) Seed(ctx context.Context, seed []users.User) error {
	if len(seed) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin user seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := r.db.rebind(`
		INSERT INTO users (id, login, mail) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET login = excluded.login, mail = excluded.mail
	`)
	for _, u := range seed {
		if _, err := tx.ExecContext(ctx, query, u.ID, u.Login, u.Mail); err != nil {
			return fmt.Errorf("failed to seed user %d: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user seed: %w", err)
	}
	return nil
}
