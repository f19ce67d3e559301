// Package backupcode generates and normalizes two-factor backup codes.
package backupcode

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// Alphabet omits glyphs that are easy to confuse when typed from paper (0/O, 1/I/L).
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Defaults for a generated set.
const (
	DefaultCount  = 10
	DefaultLength = 10
)

// ErrInvalidLength is returned when a code length below 6 is requested.
var ErrInvalidLength = errors.New("backup code length must be at least 6")

// RandomIndex returns a uniformly random integer in [0, n).
type RandomIndex func(n int) (int, error)

// New returns one random code of length characters drawn from Alphabet.
func New(length int, random RandomIndex) (string, error) {
	if length < 6 {
		return "", ErrInvalidLength
	}
	if random == nil {
		random = cryptoRandomIndex
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := random(len(Alphabet))
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[n])
	}
	return b.String(), nil
}

// NewSet returns count distinct codes. Duplicates are redrawn; with the default length a collision is
// astronomically unlikely, but a set must never contain the same code twice.
func NewSet(count, length int, random RandomIndex) ([]string, error) {
	if count <= 0 {
		return nil, errors.New("backup code count must be positive")
	}
	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)
	for attempts := 0; len(codes) < count; attempts++ {
		if attempts > count*8 {
			return nil, errors.New("backup code generation: too many collisions")
		}
		code, err := New(length, random)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

// Format splits a code in two halves with a dash for display ("ABCDE-FGHJK").
func Format(code string) string {
	n := len(code)
	if n < 8 {
		return code
	}
	mid := n / 2
	return code[:mid] + "-" + code[mid:]
}

// Canonicalize upper-cases code and strips dashes and whitespace, so "abcde fghjk" and "ABCDE-FGHJK"
// are the same code.
func Canonicalize(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range strings.ToUpper(code) {
		switch r {
		case '-', ' ', '\t', '\n', '\r':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func cryptoRandomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
