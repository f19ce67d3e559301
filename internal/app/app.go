// Package app wires configuration, storage, telemetry and the account services into one dependency graph
// shared by the binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	accountrepo "social-accounts/internal/account/repository"
	"social-accounts/internal/audit"
	auditdomain "social-accounts/internal/audit/domain"
	auditrepo "social-accounts/internal/audit/repository"
	codesrepo "social-accounts/internal/backupcode/repository"
	codeservice "social-accounts/internal/backupcode/service"
	"social-accounts/internal/config"
	"social-accounts/internal/db"
	"social-accounts/internal/health"
	"social-accounts/internal/security"
	"social-accounts/internal/telemetry"
	"social-accounts/internal/telemetry/otel"
	userrepo "social-accounts/internal/user/repository"
	userservice "social-accounts/internal/user/service"
	"social-accounts/internal/user/validation"
)

// App holds the wired services. Close releases every connection it opened.
type App struct {
	Config       *config.Config
	Log          *zerolog.Logger
	DB           *sql.DB       // nil without DATABASE_URL
	Redis        *redis.Client // nil unless BACKUP_CODE_STORE=redis
	Providers    *otel.Providers
	Signup       *config.Watcher
	Accounts     accountrepo.Repository
	Users        userrepo.Repository
	Audit        *audit.Logger
	AuditLogs    auditrepo.Repository
	BackupCodes  *codeservice.Manager
	Registration *userservice.RegistrationService
	Health       *health.Checker

	closers []func(context.Context) error
}

// New builds the App for cfg. Without DATABASE_URL accounts, users and audit logs live in memory,
// which config only permits together with BACKUP_CODE_STORE=memory outside production.
func New(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (_ *App, err error) {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	a := &App{Config: cfg, Log: log, Health: health.NewChecker(0)}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.Providers, err = otel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure, log)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.closers = append(a.closers, a.Providers.Shutdown)
	a.Providers.SetGlobal()
	metrics, err := telemetry.NewInstrumentsWithProvider(a.Providers.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("telemetry instruments: %w", err)
	}

	a.Signup, err = config.NewWatcher(cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL != "" {
		a.DB, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return a.DB.Close() })
		a.Health.Register("postgres", a.DB.PingContext)
		a.Accounts = accountrepo.NewPostgresRepository(a.DB)
		a.Users = userrepo.NewPostgresRepository(a.DB)
		a.AuditLogs = auditrepo.NewPostgresRepository(a.DB)
	} else {
		a.Accounts = accountrepo.NewMemoryRepository()
		a.Users = userrepo.NewMemoryRepository()
		a.AuditLogs = auditrepo.NewMemoryRepository()
	}
	a.Audit = audit.NewLogger(a.AuditLogs, log, otel.NewAuditEmitter(a.Providers.LoggerProvider))
	a.Signup.OnChange(signupChanged(a.Audit))
	a.Signup.Start()

	codes, err := a.backupCodeRepository(ctx)
	if err != nil {
		return nil, err
	}
	a.BackupCodes = codeservice.NewManager(codes, security.NewCodeHasher([]byte(cfg.BackupCodePepper)),
		cfg.BackupCodeCount, cfg.BackupCodeLength, a.Audit, metrics, log)
	a.Registration = userservice.NewRegistrationService(a.Users, a.Accounts, validation.Default(), a.Signup,
		security.NewHasher(cfg.BcryptCost), a.BackupCodes, a.Audit, metrics, log)
	return a, nil
}

func (a *App) backupCodeRepository(ctx context.Context) (codesrepo.Repository, error) {
	switch a.Config.BackupCodeStore {
	case config.StorePostgres:
		if a.DB == nil {
			return nil, errors.New("backup codes: postgres store requires DATABASE_URL")
		}
		return codesrepo.NewPostgresRepository(a.DB), nil
	case config.StoreRedis:
		a.Redis = redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
		a.closers = append(a.closers, func(context.Context) error { return a.Redis.Close() })
		a.Health.Register("redis", func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() })
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return codesrepo.NewRedisRepository(a.Redis, a.Config.RedisKeyPrefix), nil
	case config.StoreMemory:
		return codesrepo.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("backup codes: unknown store %q", a.Config.BackupCodeStore)
	}
}

// signupChanged records every accepted reload of the signup rules.
func signupChanged(l audit.AuditLogger) func(*config.Signup) {
	return func(s *config.Signup) {
		l.LogEvent(context.Background(), "", auditdomain.ActionSignupRulesChanged, auditdomain.ResourceSignupRules,
			fmt.Sprintf(`{"blacklist":%q,"whitelist":%q,"locales":%d}`,
				strings.Join(s.Admission.BlacklistedDomains(), ","),
				strings.Join(s.Admission.WhitelistedDomains(), ","),
				len(s.Locales.Tags())))
	}
}

// Close releases resources in reverse order of acquisition and returns the first error.
func (a *App) Close(ctx context.Context) error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
