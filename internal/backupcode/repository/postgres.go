package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"social-accounts/internal/backupcode/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a backup code repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Replace deletes the user's codes and inserts codes in one transaction.
func (r *PostgresRepository) Replace(ctx context.Context, userID string, codes []*domain.Code) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("backup codes: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("backup codes: delete: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO backup_codes (id, user_id, code_hash, used_at, created_at) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("backup codes: prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, c := range codes {
		if _, err = stmt.ExecContext(ctx, c.ID, userID, c.CodeHash, nullTime(c.UsedAt), c.CreatedAt); err != nil {
			return fmt.Errorf("backup codes: insert: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("backup codes: commit: %w", err)
	}
	return nil
}

// ListUnused returns the user's unused codes ordered by creation.
func (r *PostgresRepository) ListUnused(ctx context.Context, userID string) ([]*domain.Code, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, code_hash, created_at FROM backup_codes
		 WHERE user_id = $1 AND used_at IS NULL ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Code
	for rows.Next() {
		c := &domain.Code{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.CodeHash, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkUsed is a conditional update; of two racing callers only one sees a row affected.
func (r *PostgresRepository) MarkUsed(ctx context.Context, userID, codeHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE backup_codes SET used_at = $3
		 WHERE id = (
		   SELECT id FROM backup_codes
		   WHERE user_id = $1 AND code_hash = $2 AND used_at IS NULL
		   LIMIT 1
		 ) AND used_at IS NULL`,
		userID, codeHash, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteAll removes every code of the user.
func (r *PostgresRepository) DeleteAll(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID)
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
