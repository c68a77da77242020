package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/ezmode-games/ctd/pkg/ctd"
	"github.com/ezmode-games/ctd/pkg/ctd/inventory"
)

func scanCmd() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Build the fingerprinted inventory of a game directory",
		Description: `Walks the inventory rules under the game root and prints the load order
payload that would be embedded in a crash report.

Without --rules, the built-in layout is used.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "root",
				Usage: "game root directory (default: inventory.root from config)",
			},
			&cli.StringFlag{
				Name:  "rules",
				Usage: "YAML rules file (default: inventory.rulesFile from config)",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "maximum files hashed at once (default: inventory.concurrency from config)",
			},
			&cli.BoolFlag{
				Name:  "legacy",
				Usage: "emit the name-only schema instead of fingerprinted entries",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFrom(ctx)

			root := firstNonEmpty(cmd.String("root"), cfg.Inventory.Root)
			if root == "" {
				return fmt.Errorf("a game root is required (--root or inventory.root)")
			}

			rules := inventory.DefaultRules()
			if path := firstNonEmpty(cmd.String("rules"), cfg.Inventory.RulesFile); path != "" {
				var err error
				if rules, err = inventory.LoadRules(path); err != nil {
					return err
				}
			}

			scanner := inventory.NewDirScanner(root, rules)
			if n := cmd.Int("concurrency"); n > 0 {
				scanner.Concurrency = n
			} else if cfg.Inventory.Concurrency > 0 {
				scanner.Concurrency = cfg.Inventory.Concurrency
			}

			inv, err := scanner.Scan(ctx)
			if err != nil {
				return fmt.Errorf("inventory scan failed: %w", err)
			}
			if cmd.Bool("legacy") {
				inv = ctd.NewLegacyInventory(inv.Entries...)
			}

			payload, err := inv.Payload()
			if err != nil {
				return err
			}
			slog.Info("inventory scanned", "root", root, "entries", inv.Len(), "schema", inv.Schema)
			_, err = fmt.Fprintln(stdout(cmd), payload)
			return err
		},
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
