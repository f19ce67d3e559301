package domain

import (
	"strings"
)

// Field names used in validation errors.
const (
	FieldAccount  = "account"
	FieldEmail    = "email"
	FieldLocale   = "locale"
	FieldPassword = "password"
)

// ValidationError is a recoverable failure attached to one registration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// ValidationErrors aggregates the field errors of one validation pass. A nil or empty value means valid.
// It implements error so Register can return it; callers unwrap it with errors.As.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed: no field errors"
	}
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// On reports whether any error is attached to field.
func (v ValidationErrors) On(field string) bool {
	for _, e := range v {
		if e.Field == field {
			return true
		}
	}
	return false
}

// For returns the reasons attached to field, in validation order.
func (v ValidationErrors) For(field string) []string {
	var out []string
	for _, e := range v {
		if e.Field == field {
			out = append(out, e.Reason)
		}
	}
	return out
}

// Fields returns the distinct fields with errors, in validation order.
func (v ValidationErrors) Fields() []string {
	var out []string
	seen := make(map[string]bool, len(v))
	for _, e := range v {
		if !seen[e.Field] {
			seen[e.Field] = true
			out = append(out, e.Field)
		}
	}
	return out
}
