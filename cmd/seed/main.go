// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev account (alice) already exists.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	accountdomain "social-accounts/internal/account/domain"
	"social-accounts/internal/app"
	"social-accounts/internal/config"
	"social-accounts/internal/logging"
	"social-accounts/internal/user/domain"
)

const (
	devUsername    = "alice"
	devAdminEmail  = "admin@example.com"
	devMemberEmail = "member@example.com"
	devPassword    = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.Env, "seed")
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("wire app")
	}
	defer func() { _ = a.Close(ctx) }()

	existing, err := a.Accounts.GetByUsername(ctx, devUsername)
	if err != nil {
		log.Fatal().Err(err).Msg("seed check")
	}
	if existing != nil {
		log.Info().Str("username", devUsername).Msg("seed already applied; skipping")
		return
	}

	acct := &accountdomain.Account{ID: uuid.Must(uuid.NewV7()).String(), Username: devUsername, CreatedAt: time.Now().UTC()}
	if err := acct.Validate(); err != nil {
		log.Fatal().Err(err).Msg("dev account")
	}
	if err := a.Accounts.Create(ctx, acct); err != nil {
		log.Fatal().Err(err).Msg("create dev account")
	}

	admin, err := a.Registration.Register(ctx, &domain.Registration{
		Email: devAdminEmail, AccountID: acct.ID, Locale: "en", Password: devPassword,
	})
	if err != nil {
		var verrs domain.ValidationErrors
		if errors.As(err, &verrs) {
			log.Fatal().Strs("fields", verrs.Fields()).Msg("dev admin rejected")
		}
		log.Fatal().Err(err).Msg("register dev admin")
	}
	if _, err := a.Registration.Confirm(ctx, admin.ID); err != nil {
		log.Fatal().Err(err).Msg("confirm dev admin")
	}
	if err := a.Users.SetAdmin(ctx, admin.ID, true); err != nil {
		log.Fatal().Err(err).Msg("promote dev admin")
	}
	if _, err := a.Registration.Register(ctx, &domain.Registration{
		Email: devMemberEmail, AccountID: acct.ID, Password: devPassword,
	}); err != nil {
		log.Fatal().Err(err).Msg("register dev member")
	}

	log.Info().Str("account_id", acct.ID).Msg("seed completed")
	fmt.Printf("Dev admin: %s / %s (confirmed)\n", devAdminEmail, devPassword)
	fmt.Printf("Dev member: %s / %s (unconfirmed)\n", devMemberEmail, devPassword)
}
