package repository

import (
	"context"
	"errors"
	"time"

	"social-accounts/internal/user/domain"
)

// ErrDuplicateEmail is returned by Create when another user already has the address.
var ErrDuplicateEmail = errors.New("email already registered")

// Repository defines persistence for users and the user listing scopes.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// Confirm sets confirmed_at to at when the user is not confirmed yet. No-op otherwise.
	Confirm(ctx context.Context, id string, at time.Time) error
	SetAdmin(ctx context.Context, id string, admin bool) error
	SetOTPRequired(ctx context.Context, id string, required bool) error
	// Recent returns users newest first. limit <= 0 returns every user.
	Recent(ctx context.Context, limit int) ([]*domain.User, error)
	// Admins returns users with the admin flag, newest first.
	Admins(ctx context.Context) ([]*domain.User, error)
	// Confirmed returns users with a confirmed email address, newest first.
	Confirmed(ctx context.Context) ([]*domain.User, error)
}
