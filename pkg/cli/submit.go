package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/ezmode-games/ctd/pkg/ctd"
	"github.com/ezmode-games/ctd/pkg/ctd/transports/api"
	"github.com/ezmode-games/ctd/pkg/ctd/transports/multi"
	"github.com/ezmode-games/ctd/pkg/ctd/transports/stderr"
)

func submitCmd() *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "Send saved crash reports to the collector",
		ArgsUsage: "REPORT_JSON...",
		Description: `Validates and submits each report in order, waiting between submissions
so the collector sees at most --rate reports per second.

With --dry-run, reports are printed instead of sent.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "collector base URL (default: api.url from config)",
			},
			&cli.StringFlag{
				Name:  "path",
				Usage: "crash report endpoint path (default: api.crashesPath from config)",
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "bearer API key (default: api.apiKey from config)",
			},
			&cli.Float64Flag{
				Name:  "rate",
				Value: 1,
				Usage: "maximum submissions per second",
			},
			&cli.IntFlag{
				Name:  "burst",
				Value: 1,
				Usage: "submissions allowed before rate limiting starts",
			},
			&cli.BoolFlag{
				Name:  "echo",
				Usage: "also print each report as it is sent",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print reports instead of sending them",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("at least one report is required")
			}
			if cmd.Float64("rate") <= 0 {
				return fmt.Errorf("--rate must be positive")
			}

			transport := newSubmitTransport(ctx, cmd)
			defer func() {
				if err := transport.Close(); err != nil {
					slog.Debug("failed to close transport", "error", err)
				}
			}()

			burst := cmd.Int("burst")
			if burst < 1 {
				burst = 1
			}
			limiter := rate.NewLimiter(rate.Limit(cmd.Float64("rate")), burst)

			w := stdout(cmd)
			failed := 0
			for _, p := range paths {
				report, err := readReport(p)
				if err != nil {
					failed++
					slog.Error("skipping invalid report", "path", p, "error", err)
					continue
				}
				if err := limiter.Wait(ctx); err != nil {
					return fmt.Errorf("submission cancelled: %w", err)
				}

				id := uuid.NewString()
				receipt, err := transport.Submit(ctd.WithSubmissionID(ctx, id), report)
				if err != nil {
					failed++
					slog.Error("submission failed", "path", p, "submission_id", id, "error", err)
					continue
				}
				fmt.Fprintf(w, "%s: %s", p, firstNonEmpty(receipt.ID, "not sent"))
				if receipt.ShareToken != "" {
					fmt.Fprintf(w, " (share %s)", receipt.ShareToken)
				}
				fmt.Fprintln(w)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d report(s) not submitted", failed, len(paths))
			}
			return nil
		},
	}
}

func newSubmitTransport(ctx context.Context, cmd *cli.Command) ctd.Transport {
	echo := stderr.NewStderrTransport(stderr.WithVerbose(), stderr.WithWriter(errout(cmd)))
	if cmd.Bool("dry-run") {
		return echo
	}

	cfg := configFrom(ctx)
	opts := []api.APITransportOption{
		api.WithTimeout(cfg.API.Timeout()),
		api.WithUserAgent(name + "/" + version),
	}
	if key := firstNonEmpty(cmd.String("api-key"), cfg.API.APIKey); key != "" {
		opts = append(opts, api.WithAPIKey(key))
	}
	if path := firstNonEmpty(cmd.String("path"), cfg.API.CrashesPath); path != "" {
		opts = append(opts, api.WithCrashesPath(path))
	}
	collector := api.NewAPITransport(firstNonEmpty(cmd.String("url"), cfg.API.URL), opts...)

	if cmd.Bool("echo") {
		return multi.NewMultiTransport(collector, echo)
	}
	return collector
}
