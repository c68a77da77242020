package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/ezmode-games/ctd/pkg/ctd"
)

type fingerprintResult struct {
	Path string `json:"path"`
	Hash string `json:"fileHash"`
	Size uint64 `json:"fileSize"`
}

func fingerprintCmd() *cli.Command {
	return &cli.Command{
		Name:      "fingerprint",
		Usage:     "Print the content fingerprint of files",
		ArgsUsage: "FILE...",
		Description: `Prints the 16 character fingerprint used in inventory entries: the
first 8 bytes of SHA-256 over the first 64 KiB of the file plus its size.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print results as a JSON array",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("at least one file is required")
			}

			results := make([]fingerprintResult, 0, len(paths))
			for _, p := range paths {
				fp, err := ctd.FileFingerprint(p)
				if err != nil {
					return err
				}
				results = append(results, fingerprintResult{Path: p, Hash: fp.Hash, Size: fp.Size})
			}

			w := stdout(cmd)
			if cmd.Bool("json") {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			for _, r := range results {
				fmt.Fprintf(w, "%s  %10d  %s\n", r.Hash, r.Size, r.Path)
			}
			return nil
		},
	}
}
