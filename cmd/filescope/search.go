package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/filescope/filescope/internal/config"
	"github.com/filescope/filescope/internal/embedder"
	"github.com/filescope/filescope/internal/searcher"
)

func searchCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "search the index with a natural language or filtered query",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "maximum number of results",
				Value: 10,
			},
		},
		Action: func(c *cli.Context) error {
			query := c.Args().First()
			if query == "" {
				return fmt.Errorf("search requires a query argument")
			}

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

			s := searcher.New(store, emb, logger)
			resp, err := s.Search(c.Context, searcher.Request{
				Query: query,
				Limit: c.Int("limit"),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "intent: %s (%s)\n", resp.Intent, resp.Duration.Round(timeRound))
			for _, d := range resp.Degraded {
				fmt.Fprintf(c.App.ErrWriter, "warn: %s search unavailable\n", d)
			}
			if len(resp.Results) == 0 {
				fmt.Fprintln(c.App.Writer, "no results")
				return nil
			}
			for i, r := range resp.Results {
				fmt.Fprintf(c.App.Writer, "%2d. [%.1f] %s (%s, %s match)\n", i+1, r.RelevanceScore, r.Path, r.ResultType, r.Match.Kind)
				if r.Snippet != "" {
					fmt.Fprintf(c.App.Writer, "    %s\n", r.Snippet)
				}
			}
			return nil
		},
	}
}
