// Package service issues and redeems two-factor backup codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"social-accounts/internal/audit"
	auditdomain "social-accounts/internal/audit/domain"
	"social-accounts/internal/backupcode"
	"social-accounts/internal/backupcode/domain"
	"social-accounts/internal/backupcode/repository"
	"social-accounts/internal/security"
	"social-accounts/internal/telemetry"
)

// ErrInvalidCode is returned by Consume when the code is blank, was never issued, or was already used.
var ErrInvalidCode = errors.New("invalid backup code")

// Manager generates, stores and consumes a user's backup code set.
type Manager struct {
	repo    repository.Repository
	hasher  *security.CodeHasher
	count   int
	length  int
	audit   audit.AuditLogger
	metrics *telemetry.Instruments
	log     zerolog.Logger
	random  backupcode.RandomIndex
	tracer  trace.Tracer
	nowF    func() time.Time
}

// NewManager returns a Manager. count and length fall back to the package defaults when <= 0.
// auditLogger, metrics and log may be nil.
func NewManager(
	repo repository.Repository,
	hasher *security.CodeHasher,
	count, length int,
	auditLogger audit.AuditLogger,
	metrics *telemetry.Instruments,
	log *zerolog.Logger,
) *Manager {
	if count <= 0 {
		count = backupcode.DefaultCount
	}
	if length <= 0 {
		length = backupcode.DefaultLength
	}
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	m := &Manager{
		repo:    repo,
		hasher:  hasher,
		count:   count,
		length:  length,
		audit:   auditLogger,
		metrics: metrics,
		log:     zerolog.Nop(),
		tracer:  otel.GetTracerProvider().Tracer("social-accounts/backupcode"),
		nowF:    func() time.Time { return time.Now().UTC() },
	}
	if log != nil {
		m.log = log.With().Str("component", "backup_codes").Logger()
	}
	return m
}

// Generate issues a fresh set of codes for userID and returns the formatted plaintexts. This is the only
// time the plaintexts are available. count <= 0 uses the configured count. Every previously issued code
// stops working once Generate returns nil.
func (m *Manager) Generate(ctx context.Context, userID string, count int) ([]string, error) {
	ctx, span := m.tracer.Start(ctx, "backupcode.Generate", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()
	if userID == "" {
		return nil, errors.New("backup codes: user id is required")
	}
	if count <= 0 {
		count = m.count
	}
	plain, err := backupcode.NewSet(count, m.length, m.random)
	if err != nil {
		return nil, err
	}
	now := m.nowF()
	codes := make([]*domain.Code, len(plain))
	out := make([]string, len(plain))
	for i, p := range plain {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		codes[i] = &domain.Code{
			ID:        id.String(),
			UserID:    userID,
			CodeHash:  m.hasher.Hash(userID, p),
			CreatedAt: now,
		}
		out[i] = backupcode.Format(p)
	}
	if err := m.repo.Replace(ctx, userID, codes); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "replace set")
		return nil, fmt.Errorf("backup codes: replace set: %w", err)
	}
	span.SetAttributes(attribute.Int("backup_codes.count", len(out)))
	m.metrics.CodesGenerated(ctx, len(out))
	m.audit.LogEvent(ctx, userID, auditdomain.ActionBackupCodesGenerated, auditdomain.ResourceBackupCodes,
		fmt.Sprintf(`{"count":%d}`, len(out)))
	m.log.Info().Str("user_id", userID).Int("count", len(out)).Msg("backup codes generated")
	return out, nil
}

// Consume redeems code for userID. It returns nil exactly once per issued code and ErrInvalidCode for
// blank, unknown, or already used codes. Storage failures are returned as-is.
func (m *Manager) Consume(ctx context.Context, userID, code string) error {
	ctx, span := m.tracer.Start(ctx, "backupcode.Consume", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()
	err := m.consume(ctx, userID, code)
	switch {
	case err == nil:
		span.SetAttributes(attribute.String("backup_code.result", telemetry.ResultUsed))
	case errors.Is(err, ErrInvalidCode):
		span.SetAttributes(attribute.String("backup_code.result", telemetry.ResultInvalid))
	default:
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "storage")
	}
	return err
}

func (m *Manager) consume(ctx context.Context, userID, code string) error {
	canonical := backupcode.Canonicalize(code)
	if userID == "" || canonical == "" {
		return m.reject(ctx, userID, "blank")
	}
	candidate := m.hasher.Hash(userID, canonical)
	unused, err := m.repo.ListUnused(ctx, userID)
	if err != nil {
		return fmt.Errorf("backup codes: list: %w", err)
	}
	// Compare against every stored hash so timing does not reveal which entry matched.
	found := 0
	for _, c := range unused {
		found |= security.CodeHashMatch(c.CodeHash, candidate)
	}
	if found != 1 {
		return m.reject(ctx, userID, "no_match")
	}
	ok, err := m.repo.MarkUsed(ctx, userID, candidate)
	if err != nil {
		return fmt.Errorf("backup codes: mark used: %w", err)
	}
	if !ok {
		return m.reject(ctx, userID, "already_used")
	}
	remaining := len(unused) - 1
	m.metrics.CodeConsumed(ctx, telemetry.ResultUsed)
	m.audit.LogEvent(ctx, userID, auditdomain.ActionBackupCodeUsed, auditdomain.ResourceBackupCodes,
		fmt.Sprintf(`{"remaining":%d}`, remaining))
	if remaining == 0 {
		m.log.Warn().Str("user_id", userID).Msg("last backup code consumed")
	}
	return nil
}

// Remaining returns how many of userID's codes are still unused.
func (m *Manager) Remaining(ctx context.Context, userID string) (int, error) {
	unused, err := m.repo.ListUnused(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(unused), nil
}

// Disable deletes userID's set. Every issued code stops working.
func (m *Manager) Disable(ctx context.Context, userID string) error {
	if err := m.repo.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("backup codes: delete: %w", err)
	}
	m.audit.LogEvent(ctx, userID, auditdomain.ActionBackupCodesRevoked, auditdomain.ResourceBackupCodes, "")
	return nil
}

func (m *Manager) reject(ctx context.Context, userID, reason string) error {
	m.metrics.CodeConsumed(ctx, telemetry.ResultInvalid)
	m.audit.LogEvent(ctx, userID, auditdomain.ActionBackupCodeFailed, auditdomain.ResourceBackupCodes,
		fmt.Sprintf(`{"reason":%q}`, reason))
	m.log.Debug().Str("user_id", userID).Str("reason", reason).Msg("backup code rejected")
	return ErrInvalidCode
}
