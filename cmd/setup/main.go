// Command setup prepares a deployment target before the bot starts:
// working directories, database schema and the local market cache.
// It exits non-zero only when the directory layout cannot be created,
// so platform deploy hooks can run it unconditionally.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/amar01vidality/tradeai-companion/internal/common"
	"github.com/amar01vidality/tradeai-companion/internal/setup"
)

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	opts := setup.Options{
		Root:        envOr(common.EnvSetupRoot, "."),
		EntryScript: os.Getenv(common.EnvSetupEntryScript),
		DatabaseURL: os.Getenv(common.EnvDatabaseURL),
		DataPath:    envOr(common.EnvDataPath, common.DefaultDataPath),
	}
	flag.StringVar(&opts.Root, "root", opts.Root, "deployment root directory")
	flag.StringVar(&opts.EntryScript, "entry", opts.EntryScript, "entry script to mark executable (relative to root)")
	flag.StringVar(&opts.DataPath, "data", opts.DataPath, "market cache directory")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := setup.Run(ctx, opts); err != nil {
		log.Error().Err(err).Msg("bootstrap failed")
		os.Exit(1)
	}
	log.Info().Msg("bootstrap complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
