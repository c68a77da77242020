package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/ezmode-games/ctd/pkg/ctd"
	"github.com/ezmode-games/ctd/pkg/ctd/symbols"
)

func symbolizeCmd() *cli.Command {
	return &cli.Command{
		Name:      "symbolize",
		Usage:     "Resolve a captured stack trace against symbol files",
		ArgsUsage: "[TRACE_FILE]",
		Description: `Reads a captured trace ("[i] module+0xOFF (0xADDR)" lines) from the
file argument or stdin and prints it with function names resolved from
Breakpad .sym files. Lines that are not frames are skipped.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "symbols",
				Usage: "directory searched for symbol files (repeatable)",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "symbol cache directory (default: symbols.cacheDir from config)",
			},
			&cli.StringFlag{
				Name:  "ext",
				Usage: "symbol file extension (default: symbols.extension from config or .sym)",
			},
			&cli.BoolFlag{
				Name:  "hash",
				Usage: "print the crash grouping hash after the trace",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFrom(ctx)

			in, closeIn, err := openInput(cmd.Args().First())
			if err != nil {
				return err
			}
			defer closeIn()

			trace, frames, err := readFrames(in)
			if err != nil {
				return err
			}
			if len(frames) == 0 {
				return fmt.Errorf("no stack frames found in input")
			}

			dirs := append(cmd.StringSlice("symbols"), cfg.Symbols.SearchDirs...)
			opts := []symbols.Option{symbols.WithSearchDirs(dirs...)}
			if ext := firstNonEmpty(cmd.String("ext"), cfg.Symbols.Extension); ext != "" {
				opts = append(opts, symbols.WithExtension(ext))
			}
			resolver := symbols.New(firstNonEmpty(cmd.String("cache-dir"), cfg.Symbols.CacheDir), opts...)

			resolved := resolver.ResolveAll(frames)
			slog.Debug("symbolized trace",
				"frames", len(resolved),
				"modules_loaded", resolver.LoadedModuleCount(),
				"cache_dir", resolver.CacheDir())

			w := stdout(cmd)
			if _, err := fmt.Fprintln(w, ctd.FormatStackTrace(resolved)); err != nil {
				return err
			}
			if cmd.Bool("hash") {
				_, err = fmt.Fprintf(w, "crashHash: %s\n", ctd.CrashHash(trace))
			}
			return err
		},
	}
}

// openInput opens path, or stdin for "" and "-".
func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

// readFrames returns the frame lines of r as a trace and as parsed frames.
func readFrames(r io.Reader) (string, []ctd.RawFrame, error) {
	var (
		lines  []string
		frames []ctd.RawFrame
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), ctd.MaxStackTraceLen)
	for sc.Scan() {
		if f, ok := ctd.ParseStackTraceLine(sc.Text()); ok {
			lines = append(lines, strings.TrimSpace(sc.Text()))
			frames = append(frames, f)
		}
	}
	if err := sc.Err(); err != nil {
		return "", nil, fmt.Errorf("failed to read trace: %w", err)
	}
	return strings.Join(lines, "\n"), frames, nil
}
