package locale

import (
	"slices"
	"testing"
)

func mustSet(t *testing.T, tags ...string) *Set {
	t.Helper()
	s, err := NewSet(tags)
	if err != nil {
		t.Fatalf("NewSet(%v): %v", tags, err)
	}
	return s
}

func TestSet_Contains(t *testing.T) {
	s := mustSet(t, "en", "fr", "pt-BR", "zh-TW")

	tests := []struct {
		tag  string
		want bool
	}{
		{"en", true},
		{"fr", true},
		{"pt-BR", true},
		{"pt-br", true},
		{"pt_BR", true},
		{" en ", true},
		{"zh-TW", true},
		{"de", false},
		{"pt", false},
		{"toto", false},
		{"", false},
		{"not a locale", false},
	}
	for _, tc := range tests {
		t.Run(tc.tag, func(t *testing.T) {
			if got := s.Contains(tc.tag); got != tc.want {
				t.Errorf("Contains(%q) = %v, want %v", tc.tag, got, tc.want)
			}
		})
	}
}

func TestNewSet_InvalidTag(t *testing.T) {
	if _, err := NewSet([]string{"en", "not a locale"}); err == nil {
		t.Fatal("NewSet should reject a tag that is not BCP 47")
	}
}

func TestNewSet_SkipsBlank(t *testing.T) {
	s, err := NewSet([]string{"en", " ", ""})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestSet_Tags(t *testing.T) {
	s := mustSet(t, "pt-br", "en", "EN")
	want := []string{"en", "pt-BR"}
	if got := s.Tags(); !slices.Equal(got, want) {
		t.Errorf("Tags = %v, want %v", got, want)
	}
}

func TestDefaultTags_Valid(t *testing.T) {
	s, err := NewSet(DefaultTags)
	if err != nil {
		t.Fatalf("DefaultTags: %v", err)
	}
	if !s.Contains("en") {
		t.Error("default set should contain en")
	}
}

func TestNilSet(t *testing.T) {
	var s *Set
	if s.Contains("en") {
		t.Error("nil Set should contain nothing")
	}
	if s.Len() != 0 || s.Tags() != nil {
		t.Error("nil Set should be empty")
	}
}

func TestCanonical(t *testing.T) {
	if got := Canonical("zh-tw"); got != "zh-TW" {
		t.Errorf("Canonical(zh-tw) = %q, want zh-TW", got)
	}
	if got := Canonical("!!"); got != "" {
		t.Errorf("Canonical(!!) = %q, want empty", got)
	}
}

func TestDefaultSet(t *testing.T) {
	s := DefaultSet()
	if s != DefaultSet() {
		t.Error("DefaultSet should return the shared set")
	}
	for _, tag := range []string{"en", "pt-BR", "zh-TW"} {
		if !s.Contains(tag) {
			t.Errorf("default set missing %q", tag)
		}
	}
	if s.Contains("xx") {
		t.Error("default set should not contain xx")
	}
}
