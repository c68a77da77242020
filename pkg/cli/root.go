// root.go assembles the command tree and global flags.

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/ezmode-games/ctd/pkg/config"
	"github.com/ezmode-games/ctd/pkg/logging"
)

const name = "ctd"

var (
	// overridden during build with ldflags
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type configKey struct{}

// NewCommand returns the root command.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "crash report tooling",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Description: `ctd inspects crash report inputs and talks to the crash collector.

Configuration is read from --config, CTD_CONFIG, ./ctd.yaml or the user
config directory, in that order. CTD_API_URL, CTD_API_KEY and
CTD_INTEGRATION_ID override file values.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "config file path",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars(logging.EnvLogLevel),
			},
		},
		Before: before,
		Commands: []*cli.Command{
			fingerprintCmd(),
			scanCmd(),
			symbolizeCmd(),
			validateCmd(),
			submitCmd(),
			configCmd(),
		},
	}
}

// Execute runs the root command with os.Args, cancelling on SIGINT/SIGTERM.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := NewCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// before loads configuration and installs the default logger.
func before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var (
		cfg *config.Config
		err error
	)
	if p := cmd.String("config"); p != "" {
		cfg, err = config.LoadFile(p)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return ctx, err
	}

	level := cmd.String("log-level")
	if level == "" {
		level = cfg.Log.Level
	}
	logging.SetDefaultStructuredLoggerWithLevel(name, version, level)
	slog.Debug("starting", "version", version, "commit", commit, "date", date, "logLevel", level)

	return context.WithValue(ctx, configKey{}, cfg), nil
}

// configFrom returns the configuration loaded by before, or the defaults.
func configFrom(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// stdout returns the root command's output writer.
func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// errout returns the root command's error writer.
func errout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
