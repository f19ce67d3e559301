// accountctl is the operator CLI for signup admission, registrations, user scopes and backup codes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	accountdomain "social-accounts/internal/account/domain"
	"social-accounts/internal/admission"
	"social-accounts/internal/app"
	codeservice "social-accounts/internal/backupcode/service"
	"social-accounts/internal/config"
	"social-accounts/internal/logging"
	"social-accounts/internal/user/domain"
)

const usage = `usage: accountctl <command> [arguments]

commands:
  health
  check-email <email>
  account create <username>
  register -account ID -email EMAIL -password PASSWORD [-locale TAG]
  confirm <user-id>
  list recent|admins|confirmed [-limit N]
  two-factor enable|disable <user-id>
  backup-codes generate|consume|remaining <user-id> [code]
  audit <user-id> [-limit N] [-offset N]
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.Env, "accountctl")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, &log)
	if err != nil {
		log.Error().Err(err).Msg("wire app")
		os.Exit(1)
	}
	code := run(ctx, a, os.Args[1:], os.Stdout, os.Stderr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown")
	}
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, a *app.App, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	var err error
	switch args[0] {
	case "health":
		err = healthCheck(ctx, a, stdout)
	case "check-email":
		err = checkEmail(a, args[1:], stdout)
	case "account":
		err = account(ctx, a, args[1:], stdout)
	case "register":
		err = register(ctx, a, args[1:], stdout, stderr)
	case "confirm":
		err = confirm(ctx, a, args[1:], stdout)
	case "list":
		err = list(ctx, a, args[1:], stdout, stderr)
	case "two-factor":
		err = twoFactor(ctx, a, args[1:], stdout)
	case "backup-codes":
		err = backupCodes(ctx, a, args[1:], stdout)
	case "audit":
		err = auditLog(ctx, a, args[1:], stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		err = usageError("unknown command %q", args[0])
	}
	var uerr errUsage
	switch {
	case err == nil:
		return 0
	case errors.As(err, &uerr):
		fmt.Fprintln(stderr, "accountctl:", err)
		fmt.Fprint(stderr, usage)
		return 2
	default:
		fmt.Fprintln(stderr, "accountctl:", err)
		return 1
	}
}

type errUsage struct{ msg string }

func (e errUsage) Error() string { return e.msg }

func usageError(format string, args ...any) error {
	return errUsage{msg: fmt.Sprintf(format, args...)}
}

func healthCheck(ctx context.Context, a *app.App, stdout io.Writer) error {
	report := a.Health.Check(ctx)
	for _, r := range report.Results {
		if r.Error != "" {
			fmt.Fprintf(stdout, "%s\t%s\t%s\n", r.Name, r.Status, r.Error)
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\t%s\n", r.Name, r.Status, r.Duration.Round(time.Millisecond))
	}
	if !report.Healthy {
		return errors.New("unhealthy")
	}
	return nil
}

func checkEmail(a *app.App, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return usageError("check-email takes one address")
	}
	d := admission.Check(args[0], a.Signup.Current().Admission)
	if d.Admissible {
		fmt.Fprintf(stdout, "%s: admissible (domain %s)\n", args[0], d.Domain)
		return nil
	}
	fmt.Fprintf(stdout, "%s: refused (%s)\n", args[0], d.Reason)
	return errors.New("email not admissible")
}

func account(ctx context.Context, a *app.App, args []string, stdout io.Writer) error {
	if len(args) != 2 || args[0] != "create" {
		return usageError("usage: account create <username>")
	}
	acct := &accountdomain.Account{ID: uuid.Must(uuid.NewV7()).String(), Username: args[1], CreatedAt: time.Now().UTC()}
	if err := acct.Validate(); err != nil {
		return err
	}
	if err := a.Accounts.Create(ctx, acct); err != nil {
		return err
	}
	fmt.Fprintln(stdout, acct.ID)
	return nil
}

func register(ctx context.Context, a *app.App, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(stderr)
	reg := &domain.Registration{}
	fs.StringVar(&reg.AccountID, "account", "", "account id")
	fs.StringVar(&reg.Email, "email", "", "email address")
	fs.StringVar(&reg.Password, "password", "", "password")
	fs.StringVar(&reg.Locale, "locale", "", "locale tag (empty for the instance default)")
	if err := fs.Parse(args); err != nil {
		return usageError("%v", err)
	}
	u, err := a.Registration.Register(ctx, reg)
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		for _, field := range verrs.Fields() {
			fmt.Fprintf(stderr, "%s %s\n", field, strings.Join(verrs.For(field), ", "))
		}
		return errors.New("registration rejected")
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, u.ID)
	return nil
}

func confirm(ctx context.Context, a *app.App, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return usageError("confirm takes one user id")
	}
	u, err := a.Registration.Confirm(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s confirmed at %s\n", u.ID, u.ConfirmedAt.Format(time.RFC3339))
	return nil
}

func list(ctx context.Context, a *app.App, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return usageError("list needs a scope: recent, admins or confirmed")
	}
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", 20, "maximum users for the recent scope (0 for all)")
	if err := fs.Parse(args[1:]); err != nil {
		return usageError("%v", err)
	}
	var (
		users []*domain.User
		err   error
	)
	switch args[0] {
	case "recent":
		users, err = a.Registration.Recent(ctx, *limit)
	case "admins":
		users, err = a.Registration.Admins(ctx)
	case "confirmed":
		users, err = a.Registration.Confirmed(ctx)
	default:
		return usageError("unknown scope %q", args[0])
	}
	if err != nil {
		return err
	}
	def := a.Signup.Current().DefaultLocale
	for _, u := range users {
		loc := u.Locale
		if loc == "" {
			loc = def
		}
		fmt.Fprintf(stdout, "%s\t%s\t%s\tadmin=%t\tconfirmed=%t\t%s\n",
			u.ID, u.Email, loc, u.Admin, u.Confirmed(), u.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func twoFactor(ctx context.Context, a *app.App, args []string, stdout io.Writer) error {
	if len(args) != 2 {
		return usageError("usage: two-factor enable|disable <user-id>")
	}
	switch args[0] {
	case "enable":
		codes, err := a.Registration.EnableTwoFactor(ctx, args[1])
		if err != nil {
			return err
		}
		printCodes(stdout, codes)
		return nil
	case "disable":
		if err := a.Registration.DisableTwoFactor(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "two-factor disabled")
		return nil
	default:
		return usageError("unknown two-factor action %q", args[0])
	}
}

func backupCodes(ctx context.Context, a *app.App, args []string, stdout io.Writer) error {
	if len(args) < 2 {
		return usageError("usage: backup-codes generate|consume|remaining <user-id> [code]")
	}
	userID := args[1]
	switch args[0] {
	case "generate":
		codes, err := a.BackupCodes.Generate(ctx, userID, 0)
		if err != nil {
			return err
		}
		printCodes(stdout, codes)
		return nil
	case "consume":
		if len(args) < 3 {
			return usageError("backup-codes consume needs a code")
		}
		err := a.BackupCodes.Consume(ctx, userID, strings.Join(args[2:], " "))
		if errors.Is(err, codeservice.ErrInvalidCode) {
			fmt.Fprintln(stdout, "invalid code")
			return err
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")
		return nil
	case "remaining":
		n, err := a.BackupCodes.Remaining(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, n)
		return nil
	default:
		return usageError("unknown backup-codes action %q", args[0])
	}
}

func auditLog(ctx context.Context, a *app.App, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return usageError("audit needs a user id")
	}
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", 20, "maximum events")
	offset := fs.Int("offset", 0, "events to skip")
	if err := fs.Parse(args[1:]); err != nil {
		return usageError("%v", err)
	}
	if *limit <= 0 || *offset < 0 {
		return usageError("audit: -limit must be positive and -offset not negative")
	}
	logs, err := a.AuditLogs.ListByUser(ctx, args[0], int32(*limit), int32(*offset))
	if err != nil {
		return err
	}
	for _, l := range logs {
		fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\n", l.CreatedAt.Format(time.RFC3339), l.Action, l.Resource, l.Metadata)
	}
	return nil
}

func printCodes(w io.Writer, codes []string) {
	fmt.Fprintln(w, "Store these codes somewhere safe. Each works once.")
	for _, c := range codes {
		fmt.Fprintln(w, c)
	}
}
