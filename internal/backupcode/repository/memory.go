package repository

import (
	"context"
	"sync"
	"time"

	"social-accounts/internal/backupcode/domain"
)

// MemoryRepository is an in-process Repository for development and tests.
type MemoryRepository struct {
	mu   sync.Mutex
	sets map[string][]*domain.Code
	nowF func() time.Time
}

// NewMemoryRepository returns an empty in-memory backup code repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sets: make(map[string][]*domain.Code),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Replace stores copies of codes as the user's set.
func (r *MemoryRepository) Replace(ctx context.Context, userID string, codes []*domain.Code) error {
	set := make([]*domain.Code, 0, len(codes))
	for _, c := range codes {
		c2 := *c
		c2.UserID = userID
		set = append(set, &c2)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[userID] = set
	return nil
}

// ListUnused returns copies of the user's unused codes.
func (r *MemoryRepository) ListUnused(ctx context.Context, userID string) ([]*domain.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Code
	for _, c := range r.sets[userID] {
		if c.UsedAt == nil {
			c2 := *c
			out = append(out, &c2)
		}
	}
	return out, nil
}

// MarkUsed marks the matching unused code as used under the repository lock.
func (r *MemoryRepository) MarkUsed(ctx context.Context, userID, codeHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.sets[userID] {
		if c.CodeHash == codeHash && c.UsedAt == nil {
			now := r.nowF()
			c.UsedAt = &now
			return true, nil
		}
	}
	return false, nil
}

// DeleteAll drops the user's set.
func (r *MemoryRepository) DeleteAll(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sets, userID)
	return nil
}
