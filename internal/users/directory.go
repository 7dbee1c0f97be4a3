// Package users resolves webhook actors to users of the issue tracker.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrNotFound is returned when no user has the requested email
var ErrNotFound = errors.New("user not found")

// User is an issue tracker account
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Mail  string `json:"mail"`
}

// Directory finds users by their email address
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// CachedDirectory memoizes lookups of another Directory, including misses
type CachedDirectory struct {
	next  Directory
	cache *expirable.LRU[string, *User]
}

// NewCachedDirectory wraps next with an expiring LRU of the given size
func NewCachedDirectory(next Directory, size int, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		next:  next,
		cache: expirable.NewLRU[string, *User](size, nil, ttl),
	}
}

// FindByEmail returns the cached user or asks the wrapped directory
func (d *CachedDirectory) FindByEmail(ctx context.Context, email string) (*User, error) {
	key := NormalizeEmail(email)
	if key == "" {
		return nil, ErrNotFound
	}

	if u, ok := d.cache.Get(key); ok {
		if u == nil {
			return nil, ErrNotFound
		}
		return u, nil
	}

	u, err := d.next.FindByEmail(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		d.cache.Add(key, nil)
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}

	d.cache.Add(key, u)
	return u, nil
}

// Purge drops every cached entry
func (d *CachedDirectory) Purge() {
	d.cache.Purge()
}

// NormalizeEmail lower-cases and trims an address for lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
