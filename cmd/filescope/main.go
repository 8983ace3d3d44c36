package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/filescope/filescope/internal/config"
	"github.com/filescope/filescope/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Logs go to stderr so command output stays pipeable
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:    "filescope",
		Usage:   "index and search your filesystem with semantic, text, and metadata signals",
		Version: fmt.Sprintf("%s (built %s, sqlite %s, vector extension %v)", version, buildTime, storage.BuildMode, storage.VectorExtensionAvailable),
		Commands: []*cli.Command{
			scanCommand(logger),
			searchCommand(logger),
			rulesCommand(logger),
			statusCommand(logger),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

const timeRound = 10 * time.Millisecond

// metaDB returns the relational database backing a store so the rules
// tables can live alongside the file metadata.
func metaDB(store storage.Store) *sql.DB {
	switch s := store.(type) {
	case *storage.SQLiteStore:
		return s.DB()
	case *storage.QdrantStore:
		return s.DB()
	default:
		return nil
	}
}

// openStore builds the configured storage backend.
func openStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendQdrant:
		return storage.NewQdrantStore(cfg.DatabasePath, storage.QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			Collection: cfg.QdrantColl,
			Dimension:  cfg.EmbedDim,
		}, logger)
	default:
		return storage.NewSQLiteStore(cfg.DatabasePath)
	}
}
