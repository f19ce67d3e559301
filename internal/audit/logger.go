// Package audit records security-relevant account events. Writes are best-effort and never change the
// outcome of the operation being audited.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"social-accounts/internal/audit/domain"
	auditrepo "social-accounts/internal/audit/repository"
)

// AuditLogger writes a single audit event with explicit action/resource. Used by registration and
// backup code code paths.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Emitter forwards audit events to an external sink such as an OpenTelemetry log pipeline.
type Emitter interface {
	Emit(ctx context.Context, entry *domain.AuditLog) error
}

// Logger implements AuditLogger using the audit repository and optional emitters.
type Logger struct {
	repo     auditrepo.Repository
	emitters []Emitter
	log      zerolog.Logger
	nowF     func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo and forwards to emitters.
// repo may be nil; then entries are only emitted.
func NewLogger(repo auditrepo.Repository, log *zerolog.Logger, emitters ...Emitter) *Logger {
	l := &Logger{
		repo:     repo,
		emitters: emitters,
		log:      zerolog.Nop(),
		nowF:     func() time.Time { return time.Now().UTC() },
	}
	if log != nil {
		l.log = log.With().Str("component", "audit").Logger()
	}
	return l
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	if l == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Metadata:  metadata,
		CreatedAt: l.nowF(),
	}
	if l.repo != nil {
		if err := l.repo.Create(ctx, entry); err != nil {
			l.log.Warn().Err(err).Str("action", action).Str("resource", resource).Msg("failed to persist audit event")
		}
	}
	for _, e := range l.emitters {
		if err := e.Emit(ctx, entry); err != nil {
			l.log.Warn().Err(err).Str("action", action).Msg("failed to emit audit event")
		}
	}
}

// Nop is an AuditLogger that discards events.
type Nop struct{}

// LogEvent implements AuditLogger.
func (Nop) LogEvent(context.Context, string, string, string, string) {}
