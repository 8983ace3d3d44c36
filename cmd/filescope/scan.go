package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/filescope/filescope/internal/config"
	"github.com/filescope/filescope/internal/embedder"
	"github.com/filescope/filescope/internal/rules"
	"github.com/filescope/filescope/internal/scanner"
	"github.com/filescope/filescope/pkg/types"
)

func scanCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "index files according to the configured rules",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all-roots",
				Usage: "walk every filesystem root and index metadata only",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "suppress progress output",
			},
		},
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

			emb, err := embedder.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = emb.Close() }()

			ruleStore := rules.NewStore(metaDB(store))
			sc := scanner.New(store, ruleStore, emb, cfg, logger)

			mode := scanner.ModeRules
			if c.Bool("all-roots") {
				mode = scanner.ModeAllRoots
			}

			var progress types.ProgressFunc
			if !c.Bool("quiet") {
				var lastStage types.ScanStage
				progress = func(current, total int, item string, stage types.ScanStage) {
					if stage != lastStage {
						lastStage = stage
						fmt.Fprintf(c.App.ErrWriter, "stage: %s\n", stage)
					}
					if total > 0 && current%1000 == 0 {
						fmt.Fprintf(c.App.ErrWriter, "  %d/%d %s\n", current, total, item)
					}
				}
			}

			stats, err := sc.Scan(c.Context, mode, progress)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer,
				"scan finished in %s\n  discovered: %d\n  indexed:    %d\n  skipped:    %d\n  failed:     %d\n  folders:    %d\n  embedded:   %d units\n",
				stats.Duration.Round(timeRound), stats.FilesDiscovered, stats.FilesIndexed,
				stats.FilesSkipped, stats.FilesFailed, stats.FoldersIndexed, stats.UnitsEmbedded)
			for _, msg := range stats.Errors {
				fmt.Fprintf(c.App.ErrWriter, "  warn: %s\n", msg)
			}
			return nil
		},
	}
}
