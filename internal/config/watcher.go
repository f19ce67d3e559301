package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"social-accounts/internal/admission"
	"social-accounts/internal/user/validation"
)

// Keys read from the signup config file. Viper matches them case-insensitively, so both YAML
// (email_domain_blacklist: [...]) and env-style files (EMAIL_DOMAIN_BLACKLIST=a,b) work.
const (
	keyBlacklist       = "email_domain_blacklist"
	keyWhitelist       = "email_domain_whitelist"
	keyMatchSubdomains = "email_domain_match_subdomains"
	keyLocales         = "supported_locales"
	keyDefaultLocale   = "default_locale"
)

// Watcher publishes Signup snapshots. With a SIGNUP_CONFIG_FILE the file is watched and every valid
// change replaces the snapshot atomically; invalid edits are logged and the previous snapshot is kept.
// Keys absent from the file fall back to the environment values.
type Watcher struct {
	base signupValues
	v    *viper.Viper
	cur  atomic.Pointer[Signup]
	log  zerolog.Logger

	mu        sync.Mutex
	listeners []func(*Signup)
}

// NewWatcher builds the initial snapshot from cfg and, when cfg.SignupConfigFile is set, from that file.
// Call Start to begin watching. log may be nil.
func NewWatcher(cfg *Config, log *zerolog.Logger) (*Watcher, error) {
	w := &Watcher{
		base: signupValues{
			blacklist:       admission.ParseDomainList(cfg.EmailDomainBlacklist),
			whitelist:       admission.ParseDomainList(cfg.EmailDomainWhitelist),
			matchSubdomains: cfg.EmailDomainMatchSubdomains,
			locales:         splitList(cfg.SupportedLocales),
			defaultLocale:   cfg.DefaultLocale,
		},
		log: zerolog.Nop(),
	}
	if log != nil {
		w.log = log.With().Str("component", "config").Logger()
	}
	if path := strings.TrimSpace(cfg.SignupConfigFile); path != "" {
		w.v = viper.New()
		w.v.SetConfigFile(path)
		if ext := strings.ToLower(filepath.Ext(path)); ext == ".env" || ext == "" {
			w.v.SetConfigType("env")
		}
		if err := w.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	s, err := w.load()
	if err != nil {
		return nil, err
	}
	w.cur.Store(s)
	return w, nil
}

// Start watches the signup config file for changes. It is a no-op without a file.
func (w *Watcher) Start() {
	if w.v == nil {
		return
	}
	w.v.OnConfigChange(w.reload)
	w.v.WatchConfig()
}

// Current returns the latest snapshot.
func (w *Watcher) Current() *Signup {
	return w.cur.Load()
}

// Rules implements validation.RulesSource.
func (w *Watcher) Rules() validation.Rules {
	s := w.cur.Load()
	return validation.Rules{Admission: s.Admission, Locales: s.Locales}
}

// OnChange registers fn to run with every new snapshot.
func (w *Watcher) OnChange(fn func(*Signup)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

func (w *Watcher) reload(e fsnotify.Event) {
	s, err := w.load()
	if err != nil {
		w.log.Warn().Err(err).Str("file", e.Name).Msg("signup config reload rejected; keeping previous rules")
		return
	}
	w.cur.Store(s)
	w.log.Info().Str("file", e.Name).Str("op", e.Op.String()).
		Strs("blacklist", s.Admission.BlacklistedDomains()).
		Strs("whitelist", s.Admission.WhitelistedDomains()).
		Msg("signup config reloaded")
	w.mu.Lock()
	listeners := append([]func(*Signup){}, w.listeners...)
	w.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}

func (w *Watcher) load() (*Signup, error) {
	in := w.base
	if w.v != nil {
		if w.v.IsSet(keyBlacklist) {
			in.blacklist = listValue(w.v.Get(keyBlacklist), admission.ParseDomainList)
		}
		if w.v.IsSet(keyWhitelist) {
			in.whitelist = listValue(w.v.Get(keyWhitelist), admission.ParseDomainList)
		}
		if w.v.IsSet(keyMatchSubdomains) {
			in.matchSubdomains = w.v.GetBool(keyMatchSubdomains)
		}
		if w.v.IsSet(keyLocales) {
			in.locales = listValue(w.v.Get(keyLocales), splitList)
		}
		if w.v.IsSet(keyDefaultLocale) {
			in.defaultLocale = w.v.GetString(keyDefaultLocale)
		}
	}
	return newSignup(in)
}

// listValue accepts a scalar list string or a YAML sequence.
func listValue(val any, parse func(string) []string) []string {
	switch t := val.(type) {
	case nil:
		return nil
	case string:
		return parse(t)
	case []string:
		return parse(strings.Join(t, ","))
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return parse(strings.Join(parts, ","))
	default:
		return parse(fmt.Sprint(t))
	}
}
