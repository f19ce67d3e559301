package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// CodeHasher computes keyed hashes of one-time codes. The hash is bound to the owning user id so the
// same plaintext issued to two users never produces the same stored value.
type CodeHasher struct {
	pepper []byte
}

// NewCodeHasher returns a CodeHasher keyed with pepper. An empty pepper still works but degrades to a
// plain per-user SHA-256; production config refuses to start without one.
func NewCodeHasher(pepper []byte) *CodeHasher {
	p := make([]byte, len(pepper))
	copy(p, pepper)
	return &CodeHasher{pepper: p}
}

// Hash returns the hex-encoded HMAC-SHA256 of userID || 0x00 || code.
func (h *CodeHasher) Hash(userID, code string) string {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(userID))
	mac.Write([]byte{0})
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// CodeHashMatch compares two stored hashes in constant time and returns 1 when they are equal, 0
// otherwise. The result is meant to be OR-ed across a whole set without branching. Empty hashes never match.
func CodeHashMatch(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b))
}
