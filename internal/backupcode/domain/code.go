package domain

import "time"

// Code is one stored backup code. Only the keyed hash of the plaintext is kept.
type Code struct {
	ID        string
	UserID    string
	CodeHash  string
	UsedAt    *time.Time // nil while the code can still be consumed
	CreatedAt time.Time
}

// Used reports whether the code has been consumed.
func (c *Code) Used() bool {
	return c.UsedAt != nil
}
