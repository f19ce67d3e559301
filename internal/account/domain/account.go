package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{1,30}$`)

// Account is the public profile a user signs up under. Every user belongs to exactly one account.
type Account struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Validate validates the account for persistence and lower-cases the username. Returns an error describing
// the first validation failure.
func (a *Account) Validate() error {
	a.Username = strings.ToLower(strings.TrimSpace(a.Username))
	if a.Username == "" {
		return errors.New("username is required")
	}
	if !usernamePattern.MatchString(a.Username) {
		return errors.New("username may only contain letters, digits and underscores (max 30)")
	}
	return nil
}
