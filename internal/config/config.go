// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"social-accounts/internal/admission"
	"social-accounts/internal/locale"
)

// Backup code stores selectable with BACKUP_CODE_STORE.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// DatabaseURL is the Postgres DSN. Required unless BACKUP_CODE_STORE=memory.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// EmailDomainBlacklist is a comma-separated list of refused email domains. Default mvrht.com.
	EmailDomainBlacklist string `mapstructure:"EMAIL_DOMAIN_BLACKLIST"`
	// EmailDomainWhitelist, when non-empty, admits only the listed domains and ignores the blacklist.
	EmailDomainWhitelist string `mapstructure:"EMAIL_DOMAIN_WHITELIST"`
	// EmailDomainMatchSubdomains extends list entries to their subdomains.
	EmailDomainMatchSubdomains bool `mapstructure:"EMAIL_DOMAIN_MATCH_SUBDOMAINS"`
	// SupportedLocales is a comma-separated list of BCP 47 tags; empty uses locale.DefaultTags.
	SupportedLocales string `mapstructure:"SUPPORTED_LOCALES"`
	// DefaultLocale is assigned to users registered without a locale. Must be supported.
	DefaultLocale string `mapstructure:"DEFAULT_LOCALE"`
	// SignupConfigFile is an optional YAML or env file with the signup keys above, reloaded on change.
	SignupConfigFile string `mapstructure:"SIGNUP_CONFIG_FILE"`

	// BackupCodeCount is the size of a generated backup code set (1–100); default 10.
	BackupCodeCount int `mapstructure:"BACKUP_CODE_COUNT"`
	// BackupCodeLength is the number of characters per code (6–32); default 10.
	BackupCodeLength int `mapstructure:"BACKUP_CODE_LENGTH"`
	// BackupCodePepper keys the backup code hash. Required when APP_ENV=production.
	BackupCodePepper string `mapstructure:"BACKUP_CODE_PEPPER"`
	// BackupCodeStore selects the backup code repository: postgres, redis or memory.
	BackupCodeStore string `mapstructure:"BACKUP_CODE_STORE"`
	// RedisAddr is the Redis address (host:port) used when BACKUP_CODE_STORE=redis.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisKeyPrefix prefixes backup code keys in Redis.
	RedisKeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("EMAIL_DOMAIN_BLACKLIST", "mvrht.com")
	v.SetDefault("EMAIL_DOMAIN_WHITELIST", "")
	v.SetDefault("EMAIL_DOMAIN_MATCH_SUBDOMAINS", false)
	v.SetDefault("SUPPORTED_LOCALES", "")
	v.SetDefault("DEFAULT_LOCALE", "en")
	v.SetDefault("SIGNUP_CONFIG_FILE", "")
	v.SetDefault("BACKUP_CODE_COUNT", 10)
	v.SetDefault("BACKUP_CODE_LENGTH", 10)
	v.SetDefault("BACKUP_CODE_PEPPER", "")
	v.SetDefault("BACKUP_CODE_STORE", StorePostgres)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_KEY_PREFIX", "backup_codes")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "social-accounts")
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	if c.BackupCodeCount < 1 || c.BackupCodeCount > 100 {
		return errors.New("config: BACKUP_CODE_COUNT must be between 1 and 100")
	}
	if c.BackupCodeLength < 6 || c.BackupCodeLength > 32 {
		return errors.New("config: BACKUP_CODE_LENGTH must be between 6 and 32")
	}
	if c.IsProduction() && c.BackupCodePepper == "" {
		return errors.New("config: BACKUP_CODE_PEPPER must be set when APP_ENV=production")
	}
	switch c.BackupCodeStore {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when BACKUP_CODE_STORE=postgres")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR must be set when BACKUP_CODE_STORE=redis")
		}
	case StoreMemory:
		if c.IsProduction() {
			return errors.New("config: BACKUP_CODE_STORE=memory is not allowed when APP_ENV=production")
		}
	default:
		return fmt.Errorf("config: BACKUP_CODE_STORE must be postgres, redis or memory, got %q", c.BackupCodeStore)
	}
	if _, err := c.Signup(); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Signup builds the signup rules snapshot from the environment values.
func (c *Config) Signup() (*Signup, error) {
	return newSignup(signupValues{
		blacklist:       admission.ParseDomainList(c.EmailDomainBlacklist),
		whitelist:       admission.ParseDomainList(c.EmailDomainWhitelist),
		matchSubdomains: c.EmailDomainMatchSubdomains,
		locales:         splitList(c.SupportedLocales),
		defaultLocale:   c.DefaultLocale,
	})
}

// Signup is an immutable snapshot of the rules applied to registrations.
type Signup struct {
	Admission     admission.Config
	Locales       *locale.Set
	DefaultLocale string
}

type signupValues struct {
	blacklist       []string
	whitelist       []string
	matchSubdomains bool
	locales         []string
	defaultLocale   string
}

func newSignup(in signupValues) (*Signup, error) {
	set := locale.DefaultSet()
	if len(in.locales) > 0 {
		var err error
		if set, err = locale.NewSet(in.locales); err != nil {
			return nil, fmt.Errorf("config: SUPPORTED_LOCALES: %w", err)
		}
	}
	def := strings.TrimSpace(in.defaultLocale)
	if def != "" {
		if !set.Contains(def) {
			return nil, fmt.Errorf("config: DEFAULT_LOCALE %q is not in SUPPORTED_LOCALES", def)
		}
		def = locale.Canonical(def)
	}
	return &Signup{
		Admission:     admission.NewConfig(in.blacklist, in.whitelist, in.matchSubdomains),
		Locales:       set,
		DefaultLocale: def,
	}, nil
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
