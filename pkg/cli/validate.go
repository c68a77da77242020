package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ezmode-games/ctd/pkg/ctd"
)

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check saved crash reports against the collector's field bounds",
		ArgsUsage: "REPORT_JSON...",
		Description: `Parses each report and rebuilds it through the report builder, printing
the first violated constraint of every invalid report. Exits non-zero if any
report is invalid.`,
		Action: func(_ context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("at least one report is required")
			}

			w := stdout(cmd)
			invalid := 0
			for _, p := range paths {
				report, err := readReport(p)
				if err != nil {
					invalid++
					fmt.Fprintf(w, "%s: invalid: %v\n", p, err)
					continue
				}
				fmt.Fprintf(w, "%s: ok (schema v%d, %d plugins, crash hash %q)\n",
					p, report.SchemaVersion, report.PluginCount, ctd.Deref(report.CrashHash))
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d report(s) invalid", invalid, len(paths))
			}
			return nil
		},
	}
}

func readReport(path string) (*ctd.CrashReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ctd.ParseReport(data)
}
