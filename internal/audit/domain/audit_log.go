package domain

import "time"

// Actions recorded by the account services.
const (
	ActionUserRegistered       = "user.registered"
	ActionRegistrationRejected = "user.registration_rejected"
	ActionUserConfirmed        = "user.confirmed"
	ActionBackupCodesGenerated = "backup_codes.generated"
	ActionBackupCodeUsed       = "backup_code.used"
	ActionBackupCodeFailed     = "backup_code.failed"
	ActionBackupCodesRevoked   = "backup_codes.revoked"
	ActionTwoFactorEnabled     = "two_factor.enabled"
	ActionTwoFactorDisabled    = "two_factor.disabled"
	ActionSignupRulesChanged   = "signup_rules.changed"
)

// Resources recorded by the account services.
const (
	ResourceUser        = "user"
	ResourceBackupCodes = "backup_codes"
	ResourceSignupRules = "signup_rules"
)

// AuditLog represents an audit event.
type AuditLog struct {
	ID        string
	UserID    string // empty for rejected registrations and rule changes
	Action    string
	Resource  string
	Metadata  string
	CreatedAt time.Time
}
