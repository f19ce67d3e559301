package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"social-accounts/internal/account/domain"
)

// ErrDuplicateUsername is returned by MemoryRepository.Create for a username already in use.
var ErrDuplicateUsername = errors.New("username already taken")

// MemoryRepository is an in-process Repository for development and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

// NewMemoryRepository returns an empty in-memory account repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]*domain.Account)}
}

// GetByID returns a copy of the account for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

// GetByUsername returns a copy of the account with username, or nil if not found.
func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	username = strings.ToLower(username)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Username == username {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

// Create stores a copy of a.
func (r *MemoryRepository) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == a.Username {
			return ErrDuplicateUsername
		}
	}
	c := *a
	r.accounts[a.ID] = &c
	return nil
}
