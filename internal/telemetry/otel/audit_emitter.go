package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"social-accounts/internal/audit"
	"social-accounts/internal/audit/domain"
)

const auditScope = "social-accounts/audit"

// recordEmitter is the subset of otellog.Logger used to ship records.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

type auditEmitter struct {
	logger recordEmitter
}

// NewAuditEmitter returns an audit.Emitter that ships each entry as an OTel log record through provider.
// A nil provider yields an emitter that drops entries.
func NewAuditEmitter(provider *sdklog.LoggerProvider) audit.Emitter {
	if provider == nil {
		return &auditEmitter{}
	}
	return &auditEmitter{logger: provider.Logger(auditScope)}
}

// NewAuditEmitterWithLogger returns an audit.Emitter writing to l.
func NewAuditEmitterWithLogger(l recordEmitter) audit.Emitter {
	return &auditEmitter{logger: l}
}

// Emit implements audit.Emitter.
func (e *auditEmitter) Emit(ctx context.Context, entry *domain.AuditLog) error {
	if e.logger == nil || entry == nil {
		return nil
	}
	ts := entry.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	var rec otellog.Record
	rec.SetTimestamp(ts)
	rec.SetObservedTimestamp(time.Now().UTC())
	rec.SetSeverity(severityFor(entry.Action))
	rec.SetSeverityText(severityFor(entry.Action).String())
	rec.SetEventName(entry.Action)
	rec.SetBody(otellog.StringValue(entry.Metadata))
	rec.AddAttributes(
		otellog.String("audit.id", entry.ID),
		otellog.String("audit.action", entry.Action),
		otellog.String("audit.resource", entry.Resource),
	)
	if entry.UserID != "" {
		rec.AddAttributes(otellog.String("user.id", entry.UserID))
	}
	e.logger.Emit(ctx, rec)
	return nil
}

func severityFor(action string) otellog.Severity {
	switch action {
	case domain.ActionBackupCodeFailed, domain.ActionRegistrationRejected:
		return otellog.SeverityWarn
	default:
		return otellog.SeverityInfo
	}
}
