// Package service implements signup registration, the user listing scopes, and the two-factor backup code
// lifecycle of a user.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	accountdomain "social-accounts/internal/account/domain"
	"social-accounts/internal/admission"
	"social-accounts/internal/audit"
	auditdomain "social-accounts/internal/audit/domain"
	"social-accounts/internal/locale"
	"social-accounts/internal/security"
	"social-accounts/internal/telemetry"
	"social-accounts/internal/user/domain"
	userrepo "social-accounts/internal/user/repository"
	"social-accounts/internal/user/validation"
)

// Reasons added by the service on top of the field validators.
const (
	ReasonAccountMissing = "does not exist"
	ReasonEmailTaken     = "has already been taken"
)

// Sentinel errors for the registration service.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrTwoFactorDisabled  = errors.New("two-factor authentication is not enabled")
	ErrBackupCodesMissing = errors.New("backup code manager not configured")
)

// UserRepo is the user repository needed by the registration service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Confirm(ctx context.Context, id string, at time.Time) error
	SetOTPRequired(ctx context.Context, id string, required bool) error
	Recent(ctx context.Context, limit int) ([]*domain.User, error)
	Admins(ctx context.Context) ([]*domain.User, error)
	Confirmed(ctx context.Context) ([]*domain.User, error)
}

// AccountRepo is the minimal account repository needed by the registration service.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
}

// BackupCodes is the backup code manager used for two-factor fallback.
type BackupCodes interface {
	Generate(ctx context.Context, userID string, count int) ([]string, error)
	Consume(ctx context.Context, userID, code string) error
	Disable(ctx context.Context, userID string) error
}

// RegistrationService validates and persists signups and manages a user's two-factor state.
type RegistrationService struct {
	users     UserRepo
	accounts  AccountRepo
	validator *validation.Validator
	rules     validation.RulesSource
	hasher    *security.Hasher
	codes     BackupCodes
	audit     audit.AuditLogger
	metrics   *telemetry.Instruments
	log       zerolog.Logger
	nowF      func() time.Time
}

// NewRegistrationService returns a RegistrationService. codes, auditLogger, metrics and log may be nil;
// without codes the two-factor operations return ErrBackupCodesMissing.
func NewRegistrationService(
	users UserRepo,
	accounts AccountRepo,
	validator *validation.Validator,
	rules validation.RulesSource,
	hasher *security.Hasher,
	codes BackupCodes,
	auditLogger audit.AuditLogger,
	metrics *telemetry.Instruments,
	log *zerolog.Logger,
) *RegistrationService {
	if validator == nil {
		validator = validation.Default()
	}
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	s := &RegistrationService{
		users:     users,
		accounts:  accounts,
		validator: validator,
		rules:     rules,
		hasher:    hasher,
		codes:     codes,
		audit:     auditLogger,
		metrics:   metrics,
		log:       zerolog.Nop(),
		nowF:      func() time.Time { return time.Now().UTC() },
	}
	if log != nil {
		s.log = log.With().Str("component", "registration").Logger()
	}
	return s
}

// Validate runs every field validator against the current rules and checks that the account exists and
// the email is free. A nil result means reg may be registered. The error is non-nil only for storage failures.
func (s *RegistrationService) Validate(ctx context.Context, reg *domain.Registration) (domain.ValidationErrors, error) {
	errs := s.validator.Validate(reg, s.rules.Rules())
	if reg == nil {
		return errs, nil
	}
	if !errs.On(domain.FieldAccount) {
		acct, err := s.accounts.GetByID(ctx, strings.TrimSpace(reg.AccountID))
		if err != nil {
			return nil, fmt.Errorf("lookup account: %w", err)
		}
		if acct == nil {
			errs = append(domain.ValidationErrors{{Field: domain.FieldAccount, Reason: ReasonAccountMissing}}, errs...)
		}
	}
	if !errs.On(domain.FieldEmail) {
		existing, err := s.users.GetByEmail(ctx, normalizeEmail(reg.Email))
		if err != nil {
			return nil, fmt.Errorf("lookup email: %w", err)
		}
		if existing != nil {
			errs = append(errs, domain.ValidationError{Field: domain.FieldEmail, Reason: ReasonEmailTaken})
		}
	}
	return errs, nil
}

// Register validates reg and creates the user. When validation fails the returned error is the
// domain.ValidationErrors value; callers retrieve it with errors.As. The user starts unconfirmed.
func (s *RegistrationService) Register(ctx context.Context, reg *domain.Registration) (*domain.User, error) {
	errs, err := s.Validate(ctx, reg)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		s.rejected(ctx, reg, errs)
		return nil, errs
	}
	hashed, err := s.hasher.Hash([]byte(reg.Password))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := s.nowF()
	u := &domain.User{
		ID:           id.String(),
		AccountID:    strings.TrimSpace(reg.AccountID),
		Email:        normalizeEmail(reg.Email),
		Locale:       locale.Canonical(reg.Locale),
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			errs := domain.ValidationErrors{{Field: domain.FieldEmail, Reason: ReasonEmailTaken}}
			s.rejected(ctx, reg, errs)
			return nil, errs
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.metrics.RegistrationAccepted(ctx)
	s.audit.LogEvent(ctx, u.ID, auditdomain.ActionUserRegistered, auditdomain.ResourceUser,
		fmt.Sprintf(`{"account_id":%q}`, u.AccountID))
	s.log.Info().Str("user_id", u.ID).Str("account_id", u.AccountID).Msg("user registered")
	return u, nil
}

// Confirm marks the user's email address as confirmed. Confirming twice keeps the first timestamp.
func (s *RegistrationService) Confirm(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Confirmed() {
		return u, nil
	}
	now := s.nowF()
	if err := s.users.Confirm(ctx, userID, now); err != nil {
		return nil, err
	}
	u.ConfirmedAt = &now
	s.audit.LogEvent(ctx, userID, auditdomain.ActionUserConfirmed, auditdomain.ResourceUser, "")
	return u, nil
}

// Recent returns users newest first; limit <= 0 returns all.
func (s *RegistrationService) Recent(ctx context.Context, limit int) ([]*domain.User, error) {
	return s.users.Recent(ctx, limit)
}

// Admins returns users with the admin flag.
func (s *RegistrationService) Admins(ctx context.Context) ([]*domain.User, error) {
	return s.users.Admins(ctx)
}

// Confirmed returns users whose email address is confirmed.
func (s *RegistrationService) Confirmed(ctx context.Context) ([]*domain.User, error) {
	return s.users.Confirmed(ctx)
}

// EnableTwoFactor requires a second factor at login and issues a fresh backup code set. Calling it again
// regenerates the set, invalidating every previously issued code.
func (s *RegistrationService) EnableTwoFactor(ctx context.Context, userID string) ([]string, error) {
	if s.codes == nil {
		return nil, ErrBackupCodesMissing
	}
	u, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}
	codes, err := s.codes.Generate(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	if !u.OTPRequiredForLogin {
		if err := s.users.SetOTPRequired(ctx, userID, true); err != nil {
			return nil, err
		}
		s.audit.LogEvent(ctx, userID, auditdomain.ActionTwoFactorEnabled, auditdomain.ResourceUser, "")
	}
	return codes, nil
}

// DisableTwoFactor drops the login requirement and revokes every backup code.
func (s *RegistrationService) DisableTwoFactor(ctx context.Context, userID string) error {
	if s.codes == nil {
		return ErrBackupCodesMissing
	}
	if _, err := s.mustGet(ctx, userID); err != nil {
		return err
	}
	if err := s.users.SetOTPRequired(ctx, userID, false); err != nil {
		return err
	}
	if err := s.codes.Disable(ctx, userID); err != nil {
		return err
	}
	s.audit.LogEvent(ctx, userID, auditdomain.ActionTwoFactorDisabled, auditdomain.ResourceUser, "")
	return nil
}

// AuthenticateWithBackupCode is the two-factor login fallback. It returns nil when code was an unused code
// of the user, and the backup code manager's invalid-code error otherwise.
func (s *RegistrationService) AuthenticateWithBackupCode(ctx context.Context, userID, code string) error {
	if s.codes == nil {
		return ErrBackupCodesMissing
	}
	u, err := s.mustGet(ctx, userID)
	if err != nil {
		return err
	}
	if !u.OTPRequiredForLogin {
		return ErrTwoFactorDisabled
	}
	return s.codes.Consume(ctx, userID, code)
}

func (s *RegistrationService) mustGet(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *RegistrationService) rejected(ctx context.Context, reg *domain.Registration, errs domain.ValidationErrors) {
	fields := errs.Fields()
	s.metrics.RegistrationRejected(ctx, fields[0])
	s.audit.LogEvent(ctx, "", auditdomain.ActionRegistrationRejected, auditdomain.ResourceUser,
		fmt.Sprintf(`{"fields":%q}`, strings.Join(fields, ",")))
	ev := s.log.Debug().Strs("fields", fields)
	if reg != nil {
		if d, ok := admission.DomainOf(reg.Email); ok {
			ev = ev.Str("email_domain", d)
		}
	}
	ev.Msg("registration rejected")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
