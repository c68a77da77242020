package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/ezmode-games/ctd/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print configuration",
		Commands: []*cli.Command{
			{
				Name:  "example",
				Usage: "Print a commented example configuration file",
				Action: func(_ context.Context, cmd *cli.Command) error {
					_, err := fmt.Fprint(stdout(cmd), config.Example())
					return err
				},
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration with the API key redacted",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := *configFrom(ctx)
					if cfg.API.APIKey != "" {
						cfg.API.APIKey = "[REDACTED]"
					}
					b, err := cfg.Marshal()
					if err != nil {
						return err
					}
					w := stdout(cmd)
					source := cmd.Root().String("config")
					if source == "" {
						if source, err = config.Path(); err != nil {
							return err
						}
					}
					if source == "" {
						source = "defaults"
					}
					fmt.Fprintf(w, "# source: %s\n", source)
					_, err = w.Write(b)
					return err
				},
			},
		},
	}
}
