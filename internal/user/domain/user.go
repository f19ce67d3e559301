package domain

import (
	"time"
)

// User is the core user entity. A user always belongs to exactly one account.
type User struct {
	ID                  string
	AccountID           string
	Email               string
	Locale              string // empty means the instance default
	PasswordHash        string
	Admin               bool
	ConfirmedAt         *time.Time // nil until the email address is confirmed
	OTPRequiredForLogin bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Confirmed reports whether the user's email address has been confirmed.
func (u *User) Confirmed() bool {
	return u != nil && u.ConfirmedAt != nil
}

// Registration is a not-yet-persisted signup request.
type Registration struct {
	Email     string
	AccountID string
	Locale    string
	Password  string
}
