package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

const bcryptTestCost = 4

func TestHasher_Hash(t *testing.T) {
	h := NewHasher(bcryptTestCost)
	password := []byte("abcd1234")
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), password); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("abcd12345")); err == nil {
		t.Fatal("hash verifies a different password")
	}
	if cost, err := bcrypt.Cost([]byte(hash)); err != nil || cost != bcryptTestCost {
		t.Errorf("hash cost = %d, %v; want %d", cost, err, bcryptTestCost)
	}
}

func TestHasher_Cost(t *testing.T) {
	h := NewHasher(12)
	if h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	h0 := NewHasher(0)
	if h0.Cost < 4 {
		t.Errorf("zero cost should be clamped to at least MinCost, got %d", h0.Cost)
	}
}

func TestHasher_RejectsOverlongPassword(t *testing.T) {
	h := NewHasher(bcryptTestCost)
	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := h.Hash(long); err == nil {
		t.Error("Hash should reject passwords longer than 72 bytes")
	}
}
