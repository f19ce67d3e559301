package security

import (
	"testing"
)

func TestCodeHasher_Consistent(t *testing.T) {
	h := NewCodeHasher([]byte("pepper"))
	hash1 := h.Hash("user-1", "ABCDE23456")
	hash2 := h.Hash("user-1", "ABCDE23456")

	if hash1 != hash2 {
		t.Errorf("Hash not consistent: hash1 = %q, hash2 = %q", hash1, hash2)
	}
	if len(hash1) != 64 {
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(hash1))
	}
}

func TestCodeHasher_BoundToUser(t *testing.T) {
	h := NewCodeHasher([]byte("pepper"))
	if h.Hash("user-1", "ABCDE23456") == h.Hash("user-2", "ABCDE23456") {
		t.Error("same code for different users should hash differently")
	}
	// The separator keeps ("ab", "c") and ("a", "bc") apart.
	if h.Hash("ab", "c") == h.Hash("a", "bc") {
		t.Error("user/code boundary must be unambiguous")
	}
}

func TestCodeHasher_KeyedByPepper(t *testing.T) {
	a := NewCodeHasher([]byte("pepper-a"))
	b := NewCodeHasher([]byte("pepper-b"))
	if a.Hash("user-1", "ABCDE23456") == b.Hash("user-1", "ABCDE23456") {
		t.Error("different peppers should produce different hashes")
	}
}

func TestCodeHasher_CopiesPepper(t *testing.T) {
	pepper := []byte("pepper")
	h := NewCodeHasher(pepper)
	before := h.Hash("user-1", "CODE")
	pepper[0] = 'X'
	if h.Hash("user-1", "CODE") != before {
		t.Error("mutating the caller's pepper slice must not change hashes")
	}
}

func TestCodeHashMatch(t *testing.T) {
	h := NewCodeHasher([]byte("pepper"))
	stored := h.Hash("user-1", "ABCDE23456")

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", h.Hash("user-1", "ABCDE23456"), stored, 1},
		{"different code", h.Hash("user-1", "ZZZZZ23456"), stored, 0},
		{"different length", "a" + stored, stored, 0},
		{"empty candidate", "", stored, 0},
		{"both empty", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeHashMatch(tt.a, tt.b); got != tt.want {
				t.Errorf("CodeHashMatch = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCodeHashMatch_AccumulatesAcrossSet(t *testing.T) {
	h := NewCodeHasher([]byte("pepper"))
	set := []string{h.Hash("u", "AAAAAA"), h.Hash("u", "BBBBBB"), "", h.Hash("u", "CCCCCC")}
	for _, code := range []string{"AAAAAA", "BBBBBB", "CCCCCC"} {
		found := 0
		for _, stored := range set {
			found |= CodeHashMatch(stored, h.Hash("u", code))
		}
		if found != 1 {
			t.Errorf("%s: found = %d, want 1", code, found)
		}
	}
	found := 0
	for _, stored := range set {
		found |= CodeHashMatch(stored, h.Hash("u", "DDDDDD"))
	}
	if found != 0 {
		t.Errorf("unknown code: found = %d, want 0", found)
	}
}
