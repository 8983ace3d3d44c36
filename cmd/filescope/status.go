package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/filescope/filescope/internal/config"
)

func statusCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "show index size and backend details",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			status, err := store.Status(c.Context)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer,
				"backend: %s\nfiles:   %d\nfolders: %d\nvectors: %d\nsize:    %.1f MB\n",
				status.Backend, status.FilesCount, status.FoldersCount,
				status.VectorsCount, status.IndexSizeMB)
			return nil
		},
	}
}
