package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"social-accounts/internal/user/domain"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, account_id, email, locale, encrypted_password, admin, confirmed_at,
	otp_required_for_login, created_at, updated_at`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found. Matching is case-insensitive.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// Create persists the user to the database. The user must have ID set; it is not assigned by this method.
// Returns ErrDuplicateEmail when the address is taken.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, account_id, email, locale, encrypted_password, admin, confirmed_at,
			otp_required_for_login, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.AccountID, u.Email, u.Locale, u.PasswordHash, u.Admin, nullTime(u.ConfirmedAt),
		u.OTPRequiredForLogin, u.CreatedAt, u.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && strings.Contains(pgErr.ConstraintName, "email") {
		return ErrDuplicateEmail
	}
	return err
}

// Confirm sets confirmed_at only when it is currently NULL.
func (r *PostgresRepository) Confirm(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET confirmed_at = $2, updated_at = $2 WHERE id = $1 AND confirmed_at IS NULL`, id, at)
	return err
}

// SetAdmin updates the admin flag.
func (r *PostgresRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET admin = $2, updated_at = $3 WHERE id = $1`, id, admin, time.Now().UTC())
	return err
}

// SetOTPRequired updates otp_required_for_login.
func (r *PostgresRepository) SetOTPRequired(ctx context.Context, id string, required bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET otp_required_for_login = $2, updated_at = $3 WHERE id = $1`, id, required, time.Now().UTC())
	return err
}

// Recent returns users ordered by created_at descending, id descending as tiebreaker.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]*domain.User, error) {
	if limit <= 0 {
		return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	}
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
}

// Admins returns users with admin = true.
func (r *PostgresRepository) Admins(ctx context.Context) ([]*domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE admin ORDER BY created_at DESC, id DESC`)
}

// Confirmed returns users with confirmed_at set.
func (r *PostgresRepository) Confirmed(ctx context.Context) ([]*domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE confirmed_at IS NOT NULL ORDER BY created_at DESC, id DESC`)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u         domain.User
		confirmed sql.NullTime
	)
	err := s.Scan(&u.ID, &u.AccountID, &u.Email, &u.Locale, &u.PasswordHash, &u.Admin, &confirmed,
		&u.OTPRequiredForLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if confirmed.Valid {
		t := confirmed.Time
		u.ConfirmedAt = &t
	}
	return &u, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
