// Package validation runs the field validators of a signup registration and aggregates their errors.
package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"social-accounts/internal/admission"
	"social-accounts/internal/locale"
	"social-accounts/internal/user/domain"
)

// Reasons attached to field errors that are not produced by the struct validator.
const (
	ReasonAccountBlank    = "can't be blank"
	ReasonLocaleUnknown   = "is not a supported locale"
	ReasonEmailNotAllowed = "is not allowed"
	ReasonPasswordTooLong = "is too long (maximum is 72 bytes)"

	maxPasswordBytes = 72
)

// Rules is the configuration snapshot one validation pass runs against.
type Rules struct {
	Admission admission.Config
	Locales   *locale.Set
}

// RulesSource returns the current Rules. Implementations must return a consistent snapshot.
type RulesSource interface {
	Rules() Rules
}

// StaticRules is a RulesSource that never changes.
type StaticRules Rules

// Rules implements RulesSource.
func (r StaticRules) Rules() Rules { return Rules(r) }

// FieldValidator checks one aspect of a registration and returns at most one field error.
type FieldValidator func(reg *domain.Registration, rules Rules) *domain.ValidationError

// Validator runs its FieldValidators in order.
type Validator struct {
	validators []FieldValidator
}

// New returns a Validator running validators in the given order.
func New(validators ...FieldValidator) *Validator {
	return &Validator{validators: validators}
}

// Default returns the signup validator: account presence, locale, email grammar, email admission, password.
func Default() *Validator {
	return New(Account, Locale, EmailFormat, EmailAdmission, Password)
}

// Validate runs every validator and returns all field errors. A nil result means the registration is valid.
func (v *Validator) Validate(reg *domain.Registration, rules Rules) domain.ValidationErrors {
	if reg == nil {
		return domain.ValidationErrors{{Field: domain.FieldAccount, Reason: ReasonAccountBlank}}
	}
	var errs domain.ValidationErrors
	for _, fv := range v.validators {
		if e := fv(reg, rules); e != nil {
			errs = append(errs, *e)
		}
	}
	return errs
}

// Account requires a non-blank account reference. Existence is checked by the registration service.
func Account(reg *domain.Registration, _ Rules) *domain.ValidationError {
	if strings.TrimSpace(reg.AccountID) == "" {
		return &domain.ValidationError{Field: domain.FieldAccount, Reason: ReasonAccountBlank}
	}
	return nil
}

// Locale accepts an empty locale (instance default) or a member of the supported set.
func Locale(reg *domain.Registration, rules Rules) *domain.ValidationError {
	if strings.TrimSpace(reg.Locale) == "" {
		return nil
	}
	if !rules.Locales.Contains(reg.Locale) {
		return &domain.ValidationError{Field: domain.FieldLocale, Reason: ReasonLocaleUnknown}
	}
	return nil
}

// EmailFormat checks the address grammar: local part, '@', and a domain with at least one dot.
func EmailFormat(reg *domain.Registration, _ Rules) *domain.ValidationError {
	if msg := checkStruct(emailInput{Email: strings.TrimSpace(reg.Email)}); msg != "" {
		return &domain.ValidationError{Field: domain.FieldEmail, Reason: msg}
	}
	return nil
}

// EmailAdmission applies the blacklist/whitelist policy. Malformed addresses are refused.
func EmailAdmission(reg *domain.Registration, rules Rules) *domain.ValidationError {
	if !admission.IsAdmissible(reg.Email, rules.Admission) {
		return &domain.ValidationError{Field: domain.FieldEmail, Reason: ReasonEmailNotAllowed}
	}
	return nil
}

// Password requires 8 characters and at most 72 bytes, the bcrypt input limit.
func Password(reg *domain.Registration, _ Rules) *domain.ValidationError {
	if msg := checkStruct(passwordInput{Password: reg.Password}); msg != "" {
		return &domain.ValidationError{Field: domain.FieldPassword, Reason: msg}
	}
	if len(reg.Password) > maxPasswordBytes {
		return &domain.ValidationError{Field: domain.FieldPassword, Reason: ReasonPasswordTooLong}
	}
	return nil
}

// checkStruct validates s and returns the translated message of the first failure, or "".
func checkStruct(s any) string {
	err := validate.Struct(s)
	if err == nil {
		return ""
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fieldErrs[0].Translate(trans)
	}
	return "is invalid"
}
