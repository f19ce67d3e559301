// Package locale holds the closed set of interface locales a user may select.
package locale

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// DefaultTags is used when no SUPPORTED_LOCALES value is configured.
var DefaultTags = []string{
	"ar", "bg", "ca", "de", "en", "eo", "es", "fa", "fi", "fr", "he", "hr", "hu", "id", "io",
	"it", "ja", "ko", "nl", "no", "oc", "pl", "pt", "pt-BR", "ru", "sv", "th", "tr", "uk",
	"zh-CN", "zh-HK", "zh-TW",
}

// Set is an immutable set of supported locale tags in canonical BCP 47 form.
type Set struct {
	tags map[string]struct{}
}

// NewSet canonicalizes tags ("pt-br" becomes "pt-BR"). It returns an error naming the first tag
// that is not well-formed BCP 47.
func NewSet(tags []string) (*Set, error) {
	s := &Set{tags: make(map[string]struct{}, len(tags))}
	for _, raw := range tags {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		c, ok := canonical(raw)
		if !ok {
			return nil, fmt.Errorf("locale: invalid tag %q", raw)
		}
		s.tags[c] = struct{}{}
	}
	return s, nil
}

var defaultSet = sync.OnceValue(func() *Set {
	s, err := NewSet(DefaultTags)
	if err != nil {
		panic(err)
	}
	return s
})

// DefaultSet returns the set built from DefaultTags. The set is shared; it is never mutated.
func DefaultSet() *Set { return defaultSet() }

// Contains reports whether tag names a supported locale. Unparseable tags are never supported.
func (s *Set) Contains(tag string) bool {
	if s == nil {
		return false
	}
	c, ok := canonical(strings.TrimSpace(tag))
	if !ok {
		return false
	}
	_, found := s.tags[c]
	return found
}

// Tags returns the canonical tags, sorted.
func (s *Set) Tags() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.tags))
	for t := range s.tags {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of supported locales.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tags)
}

// Canonical returns the canonical form of tag, or "" when tag is not valid BCP 47.
func Canonical(tag string) string {
	c, _ := canonical(strings.TrimSpace(tag))
	return c
}

func canonical(tag string) (string, bool) {
	if tag == "" {
		return "", false
	}
	t, err := language.Parse(strings.ReplaceAll(tag, "_", "-"))
	if err != nil {
		return "", false
	}
	return t.String(), true
}
