// Package setup prepares a deployment target: working directories, the
// database schema and the local market cache. Directory creation is the
// only hard requirement; schema and cache initialization are best-effort
// so the service can come up before its backing stores do.
package setup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/amar01vidality/tradeai-companion/internal/common"
	"github.com/amar01vidality/tradeai-companion/internal/database"
	"github.com/amar01vidality/tradeai-companion/internal/storage"
)

// Options configures a bootstrap run.
type Options struct {
	Root        string // deployment root; dirs are created under it
	EntryScript string // optional binary/script to mark executable
	DatabaseURL string // optional; empty skips schema init
	DataPath    string // market cache dir, relative to Root unless absolute
}

// EnsureDirs creates the working directories under root. Existing
// directories are left untouched, so repeat runs are no-ops.
func EnsureDirs(root string, dirs []string) error {
	for _, d := range dirs {
		path := filepath.Join(root, d)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		log.Debug().Str("dir", path).Msg("directory ready")
	}
	return nil
}

// MarkExecutable sets the execute bits on the entry script. A missing
// file is not an error; deploys built from the service binary carry no
// separate entry script.
func MarkExecutable(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		log.Debug().Str("script", path).Msg("no entry script, skipping chmod")
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat entry script: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("entry script %s is a directory", path)
	}
	if err := os.Chmod(path, info.Mode()|0o111); err != nil {
		return fmt.Errorf("chmod entry script: %w", err)
	}
	return nil
}

// InitDatabase verifies connectivity and applies pending migrations.
func InitDatabase(ctx context.Context, databaseURL string) error {
	db, err := database.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	db.Close()
	return database.RunMigrations(databaseURL)
}

// InitDataCache creates the market cache file with its buckets so the
// first service start does not pay for it.
func InitDataCache(dataPath string) error {
	store, err := storage.New(dataPath)
	if err != nil {
		return err
	}
	return store.Close()
}

// Run performs the full bootstrap. It returns an error only when the
// directory layout cannot be created; database and cache failures are
// logged and skipped.
func Run(ctx context.Context, opts Options) error {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.DataPath == "" {
		opts.DataPath = common.DefaultDataPath
	}

	if err := EnsureDirs(opts.Root, common.BootstrapDirs); err != nil {
		return err
	}
	log.Info().Str("root", opts.Root).Msg("working directories ready")

	if opts.EntryScript != "" {
		if err := MarkExecutable(filepath.Join(opts.Root, opts.EntryScript)); err != nil {
			log.Warn().Err(err).Str("script", opts.EntryScript).Msg("entry script not marked executable")
		}
	}

	if opts.DatabaseURL != "" {
		if err := InitDatabase(ctx, opts.DatabaseURL); err != nil {
			log.Warn().Err(err).Msg("database init skipped; will retry at service start")
		} else {
			log.Info().Msg("database schema ready")
		}
	} else {
		log.Info().Msg("no database URL set; skipping schema init")
	}

	dataPath := opts.DataPath
	if !filepath.IsAbs(dataPath) {
		dataPath = filepath.Join(opts.Root, dataPath)
	}
	if err := InitDataCache(dataPath); err != nil {
		log.Warn().Err(err).Str("path", dataPath).Msg("market cache init skipped")
	} else {
		log.Info().Str("path", dataPath).Msg("market cache ready")
	}

	return nil
}
