package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/filescope/filescope/internal/config"
	"github.com/filescope/filescope/internal/rules"
	"github.com/filescope/filescope/pkg/types"
)

var ruleCategories = []types.RuleCategory{
	types.RulePath, types.RuleFolder, types.RuleExtension, types.RuleFilename,
}

func rulesCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "manage the include and exclude rules that scope scans",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "add a rule",
				ArgsUsage: "<path|folder|extension|filename> <include|exclude> <value>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "recursive",
						Usage: "apply to subdirectories (path and folder rules)",
						Value: true,
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 3 {
						return fmt.Errorf("usage: rules add <category> <type> <value>")
					}
					rule := &types.Rule{
						Category:  types.RuleCategory(c.Args().Get(0)),
						Type:      types.RuleType(c.Args().Get(1)),
						Value:     c.Args().Get(2),
						Recursive: c.Bool("recursive"),
					}
					return withRuleStore(logger, func(rs *rules.Store) error {
						if err := rs.AddRule(c.Context, rule); err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "added %s %s rule: %s\n", rule.Type, rule.Category, rule.Value)
						return nil
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "remove a rule",
				ArgsUsage: "<path|folder|extension|filename> <include|exclude> <value>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 3 {
						return fmt.Errorf("usage: rules remove <category> <type> <value>")
					}
					category := types.RuleCategory(c.Args().Get(0))
					ruleType := types.RuleType(c.Args().Get(1))
					value := c.Args().Get(2)
					return withRuleStore(logger, func(rs *rules.Store) error {
						if err := rs.RemoveRule(c.Context, category, ruleType, value); err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "removed %s %s rule: %s\n", ruleType, category, value)
						return nil
					})
				},
			},
			{
				Name:  "list",
				Usage: "list all rules",
				Action: func(c *cli.Context) error {
					return withRuleStore(logger, func(rs *rules.Store) error {
						for _, category := range ruleCategories {
							listed, err := rs.ListRules(c.Context, category)
							if err != nil {
								return err
							}
							for _, r := range listed {
								line := fmt.Sprintf("%-10s %-8s %s", r.Category, r.Type, r.Value)
								if r.Category == types.RulePath || r.Category == types.RuleFolder {
									if r.Recursive {
										line += " (recursive)"
									}
								}
								fmt.Fprintln(c.App.Writer, line)
							}
						}
						return nil
					})
				},
			},
		},
	}
}

// withRuleStore opens the configured backend, runs fn against a rules store
// backed by its metadata database, and closes everything.
func withRuleStore(logger *slog.Logger, fn func(*rules.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return fn(rules.NewStore(metaDB(store)))
}
