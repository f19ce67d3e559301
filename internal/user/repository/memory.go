package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"social-accounts/internal/user/domain"
)

// MemoryRepository is an in-process Repository for development and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	nowF  func() time.Time
}

// NewMemoryRepository returns an empty in-memory user repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]*domain.User),
		nowF:  func() time.Time { return time.Now().UTC() },
	}
}

// GetByID returns a copy of the user for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

// GetByEmail returns a copy of the user with email, or nil if not found. Matching is case-insensitive.
func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.ToLower(u.Email) == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

// Create stores a copy of u. Returns ErrDuplicateEmail when the address is taken.
func (r *MemoryRepository) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateEmail
		}
	}
	r.users[u.ID] = copyUser(u)
	return nil
}

// Confirm sets ConfirmedAt when unset.
func (r *MemoryRepository) Confirm(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok && u.ConfirmedAt == nil {
		u.ConfirmedAt = &at
		u.UpdatedAt = at
	}
	return nil
}

// SetAdmin updates the admin flag.
func (r *MemoryRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.Admin = admin
		u.UpdatedAt = r.nowF()
	}
	return nil
}

// SetOTPRequired updates OTPRequiredForLogin.
func (r *MemoryRepository) SetOTPRequired(ctx context.Context, id string, required bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.OTPRequiredForLogin = required
		u.UpdatedAt = r.nowF()
	}
	return nil
}

// Recent returns users newest first.
func (r *MemoryRepository) Recent(ctx context.Context, limit int) ([]*domain.User, error) {
	out := r.filter(func(*domain.User) bool { return true })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Admins returns admin users newest first.
func (r *MemoryRepository) Admins(ctx context.Context) ([]*domain.User, error) {
	return r.filter(func(u *domain.User) bool { return u.Admin }), nil
}

// Confirmed returns confirmed users newest first.
func (r *MemoryRepository) Confirmed(ctx context.Context) ([]*domain.User, error) {
	return r.filter((*domain.User).Confirmed), nil
}

func (r *MemoryRepository) filter(keep func(*domain.User) bool) []*domain.User {
	r.mu.RLock()
	var out []*domain.User
	for _, u := range r.users {
		if keep(u) {
			out = append(out, copyUser(u))
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	if u.ConfirmedAt != nil {
		t := *u.ConfirmedAt
		c.ConfirmedAt = &t
	}
	return &c
}
