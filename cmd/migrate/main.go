// migrate runs DB migrations from embedded SQL; use with go run ./cmd/migrate.
package main

import (
	"flag"
	"fmt"
	"os"

	"social-accounts/internal/config"
	"social-accounts/internal/db/migrate"
	"social-accounts/internal/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.Env, "migrate")

	if err := migrate.Run(cfg.DatabaseURL, *direction, &log); err != nil {
		log.Error().Err(err).Str("direction", *direction).Msg("migration failed")
		os.Exit(1)
	}
}
