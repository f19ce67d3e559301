package repository

import (
	"context"

	"social-accounts/internal/backupcode/domain"
)

// Repository persists a user's backup code set.
type Repository interface {
	// Replace atomically swaps the user's whole set for codes. Either every previous code is gone and
	// every new one is stored, or nothing changes.
	Replace(ctx context.Context, userID string, codes []*domain.Code) error
	// ListUnused returns the user's codes that have not been consumed, in creation order.
	ListUnused(ctx context.Context, userID string) ([]*domain.Code, error)
	// MarkUsed sets used_at on the code with codeHash only if it is currently unused. It returns false
	// when no such unused code exists, including when a concurrent caller consumed it first.
	MarkUsed(ctx context.Context, userID, codeHash string) (bool, error)
	// DeleteAll removes the user's set.
	DeleteAll(ctx context.Context, userID string) error
}
