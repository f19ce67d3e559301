package backupcode

import (
	"errors"
	"strings"
	"testing"
)

func TestNew_UsesAlphabet(t *testing.T) {
	code, err := New(DefaultLength, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(code) != DefaultLength {
		t.Errorf("len = %d, want %d", len(code), DefaultLength)
	}
	for _, c := range code {
		if !strings.ContainsRune(Alphabet, c) {
			t.Errorf("code %q contains %q outside the alphabet", code, c)
		}
	}
}

func TestNew_RejectsShortLength(t *testing.T) {
	if _, err := New(5, nil); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("New(5) err = %v, want ErrInvalidLength", err)
	}
}

func TestNew_PropagatesRandomError(t *testing.T) {
	boom := errors.New("entropy exhausted")
	_, err := New(DefaultLength, func(int) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestNewSet_Distinct(t *testing.T) {
	codes, err := NewSet(DefaultCount, DefaultLength, nil)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	if len(codes) != DefaultCount {
		t.Fatalf("len = %d, want %d", len(codes), DefaultCount)
	}
	seen := make(map[string]bool)
	for _, c := range codes {
		if seen[c] {
			t.Errorf("duplicate code %q", c)
		}
		seen[c] = true
	}
}

func TestNewSet_RedrawsDuplicates(t *testing.T) {
	// Yields "AAAAAA", "AAAAAA", then "BBBBBB".
	calls := 0
	random := func(int) (int, error) {
		calls++
		if calls <= 12 {
			return 0, nil
		}
		return 1, nil
	}
	codes, err := NewSet(2, 6, random)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	if codes[0] != "AAAAAA" || codes[1] != "BBBBBB" {
		t.Errorf("codes = %v, want [AAAAAA BBBBBB]", codes)
	}
}

func TestNewSet_GivesUpOnConstantSource(t *testing.T) {
	_, err := NewSet(2, 6, func(int) (int, error) { return 0, nil })
	if err == nil {
		t.Error("NewSet should fail when the random source cannot produce distinct codes")
	}
}

func TestNewSet_RejectsNonPositiveCount(t *testing.T) {
	if _, err := NewSet(0, DefaultLength, nil); err == nil {
		t.Error("NewSet(0) should fail")
	}
}

func TestFormatAndCanonicalize(t *testing.T) {
	tests := []struct {
		in        string
		formatted string
	}{
		{"ABCDEFGHJK", "ABCDE-FGHJK"},
		{"ABCDEFGH", "ABCD-EFGH"},
		{"ABCDEF", "ABCDEF"},
	}
	for _, tc := range tests {
		if got := Format(tc.in); got != tc.formatted {
			t.Errorf("Format(%q) = %q, want %q", tc.in, got, tc.formatted)
		}
		if got := Canonicalize(Format(tc.in)); got != tc.in {
			t.Errorf("Canonicalize(Format(%q)) = %q", tc.in, got)
		}
	}
}

func TestCanonicalize_LooseInput(t *testing.T) {
	for _, in := range []string{"abcde-fghjk", " ABCDE FGHJK ", "abcdefghjk\n", "ab-cd-ef-gh-jk"} {
		if got := Canonicalize(in); got != "ABCDEFGHJK" {
			t.Errorf("Canonicalize(%q) = %q, want ABCDEFGHJK", in, got)
		}
	}
	if got := Canonicalize(" - "); got != "" {
		t.Errorf("Canonicalize of separators only = %q, want empty", got)
	}
}
