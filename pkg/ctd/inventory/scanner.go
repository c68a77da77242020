// scanner.go implements the rule-driven directory scanner.

package inventory

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ezmode-games/ctd/pkg/ctd"
	"github.com/ezmode-games/ctd/pkg/defaults"
	"github.com/ezmode-games/ctd/pkg/logging"
)

// DirScanner implements ctd.Scanner over a directory tree.
type DirScanner struct {
	Root        string
	Rules       []Rule
	Concurrency int
	Logger      *slog.Logger
}

var _ ctd.Scanner = (*DirScanner)(nil)

// NewDirScanner returns a scanner for root with default concurrency.
func NewDirScanner(root string, rules []Rule) *DirScanner {
	return &DirScanner{
		Root:        root,
		Rules:       rules,
		Concurrency: defaults.ScanConcurrency,
	}
}

// candidate is a matched file awaiting its fingerprint.
type candidate struct {
	name       string
	path       string
	versionKey string
}

// Scan walks the rules in order and fingerprints every match. Entries keep
// rule order, then walk order within a rule, and are indexed from zero.
func (s *DirScanner) Scan(ctx context.Context) (ctd.Inventory, error) {
	logger := logging.OrDefault(s.Logger)

	var found []candidate
	for _, rule := range s.Rules {
		matches, err := s.collect(ctx, rule, logger)
		if err != nil {
			return ctd.Inventory{}, err
		}
		if len(matches) > 0 {
			logger.Debug("inventory rule matched", "rule", rule.Name, "count", len(matches))
		}
		found = append(found, matches...)
	}

	entries := make([]ctd.InventoryEntry, len(found))
	limit := s.Concurrency
	if limit <= 0 {
		limit = defaults.ScanConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, c := range found {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries[i] = s.entry(c, uint32(i), logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ctd.Inventory{}, err
	}

	return ctd.NewInventory(entries...), nil
}

func (s *DirScanner) entry(c candidate, index uint32, logger *slog.Logger) ctd.InventoryEntry {
	fp, err := ctd.FileFingerprint(c.path)
	if err != nil {
		logger.Warn("failed to fingerprint file", "path", c.path, "error", err)
		fp = ctd.ZeroFingerprint
	}
	e := ctd.NewEntry(c.name, fp).WithIndex(index).WithEnabled(true)
	if c.versionKey != "" {
		if v, ok := readVersion(c.path, c.versionKey); ok {
			e = e.WithVersion(v)
		}
	}
	return e
}

// collect walks one rule's directory in lexical order.
func (s *DirScanner) collect(ctx context.Context, rule Rule, logger *slog.Logger) ([]candidate, error) {
	dir := filepath.Join(s.Root, filepath.FromSlash(rule.Dir))
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		logger.Debug("inventory directory not present", "rule", rule.Name, "dir", dir)
		return nil, nil
	}

	var out []candidate
	seen := make(map[string]struct{})
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logger.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == dir {
			return nil
		}

		depth := depthOf(dir, path)
		if d.IsDir() {
			if rule.MaxDepth > 0 && depth >= rule.MaxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !rule.matches(d.Name()) {
			return nil
		}

		parent := filepath.Dir(path)
		var base string
		switch {
		case rule.Marker != "":
			if parent == dir {
				return nil
			}
			base = filepath.Base(parent)
		case rule.GroupByDir && parent != dir:
			base = filepath.Base(parent)
		default:
			base = d.Name()
		}

		if rule.GroupByDir {
			if _, dup := seen[base]; dup {
				return nil
			}
			seen[base] = struct{}{}
		}

		c := candidate{name: rule.entryName(base), path: path}
		if rule.Marker != "" {
			c.versionKey = rule.VersionKey
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// depthOf counts the path segments of path below dir.
func depthOf(dir, path string) int {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

// readVersion returns a string value at key in a JSON object file.
func readVersion(path, key string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", false
	}
	v, ok := doc[key].(string)
	return v, ok && v != ""
}
