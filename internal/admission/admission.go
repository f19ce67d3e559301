// Package admission decides whether an email address may register, based on the configured
// blacklist and whitelist of email domains.
package admission

import (
	"slices"
	"strings"
)

// Reasons reported by Check when an address is refused.
const (
	ReasonMalformed      = "malformed"
	ReasonBlacklisted    = "blacklisted"
	ReasonNotWhitelisted = "not_whitelisted"
)

// Config is an immutable snapshot of the admission lists. The zero value admits every well-formed address.
type Config struct {
	blacklist map[string]struct{}
	whitelist map[string]struct{}
	// MatchSubdomains extends every entry to its subdomains (mail.example.com matches example.com).
	MatchSubdomains bool
}

// NewConfig builds a Config from raw domain lists. Entries are trimmed and lower-cased; blanks are dropped.
// An empty whitelist disables whitelist mode.
func NewConfig(blacklist, whitelist []string, matchSubdomains bool) Config {
	return Config{
		blacklist:       toSet(blacklist),
		whitelist:       toSet(whitelist),
		MatchSubdomains: matchSubdomains,
	}
}

// BlacklistedDomains returns the normalized blacklist, sorted.
func (c Config) BlacklistedDomains() []string { return fromSet(c.blacklist) }

// WhitelistedDomains returns the normalized whitelist, sorted.
func (c Config) WhitelistedDomains() []string { return fromSet(c.whitelist) }

// WhitelistEnabled reports whether only whitelisted domains are admitted.
func (c Config) WhitelistEnabled() bool { return len(c.whitelist) > 0 }

// Decision is the outcome of Check.
type Decision struct {
	Admissible bool
	Domain     string
	// Reason is empty when Admissible is true.
	Reason string
}

// IsAdmissible reports whether email may be used to register under cfg.
func IsAdmissible(email string, cfg Config) bool {
	return Check(email, cfg).Admissible
}

// Check evaluates email against cfg. When the whitelist is non-empty the blacklist is not consulted.
// Malformed addresses are refused.
func Check(email string, cfg Config) Decision {
	domain, ok := DomainOf(email)
	if !ok {
		return Decision{Reason: ReasonMalformed}
	}
	if cfg.WhitelistEnabled() {
		if cfg.matches(cfg.whitelist, domain) {
			return Decision{Admissible: true, Domain: domain}
		}
		return Decision{Domain: domain, Reason: ReasonNotWhitelisted}
	}
	if cfg.matches(cfg.blacklist, domain) {
		return Decision{Domain: domain, Reason: ReasonBlacklisted}
	}
	return Decision{Admissible: true, Domain: domain}
}

// DomainOf returns the lower-cased domain after the final '@' of email.
// ok is false when there is no '@', or the local part or domain is empty.
func DomainOf(email string) (string, bool) {
	email = strings.TrimSpace(email)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "", false
	}
	domain := strings.ToLower(strings.TrimSuffix(email[at+1:], "."))
	if domain == "" || strings.ContainsAny(domain, " \t@") {
		return "", false
	}
	return domain, true
}

// ParseDomainList splits a comma- or whitespace-separated domain list, e.g. "mvrht.com, example.org".
func ParseDomainList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if d := normalizeDomain(f); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func (c Config) matches(set map[string]struct{}, domain string) bool {
	if _, ok := set[domain]; ok {
		return true
	}
	if !c.MatchSubdomains {
		return false
	}
	for i := strings.IndexByte(domain, '.'); i >= 0; i = strings.IndexByte(domain, '.') {
		domain = domain[i+1:]
		if _, ok := set[domain]; ok {
			return true
		}
	}
	return false
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimPrefix(d, "@")
	return strings.TrimSuffix(d, ".")
}

func toSet(domains []string) map[string]struct{} {
	if len(domains) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		if n := normalizeDomain(d); n != "" {
			set[n] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func fromSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}
