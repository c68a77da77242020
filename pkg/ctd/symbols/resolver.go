// resolver.go resolves module offsets to function names, loading symbol
// tables lazily per module.

package symbols

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/ezmode-games/ctd/pkg/ctd"
	"github.com/ezmode-games/ctd/pkg/defaults"
)

// DefaultExtension is the symbol file extension looked up for a module.
const DefaultExtension = ".sym"

// Option configures a Resolver.
type Option func(*Resolver)

// WithSearchDirs adds directories searched before the cache directory.
func WithSearchDirs(dirs ...string) Option {
	return func(r *Resolver) {
		r.searchDirs = append(r.searchDirs, dirs...)
	}
}

// WithExtension sets the symbol file extension (default ".sym").
func WithExtension(ext string) Option {
	return func(r *Resolver) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.ext = ext
	}
}

// WithLogger sets the logger used for load failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver maps (module, offset) pairs to function names.
// It is safe for concurrent use.
type Resolver struct {
	cacheDir   string
	searchDirs []string
	ext        string
	logger     *slog.Logger

	mu sync.Mutex
	// tables maps a lower-cased module stem to its table; a nil table
	// records that no usable symbol file exists.
	tables map[string]*Table
}

// New creates a resolver that falls back to cacheDir after the search dirs.
func New(cacheDir string, opts ...Option) *Resolver {
	r := &Resolver{
		cacheDir: cacheDir,
		ext:      DefaultExtension,
		logger:   slog.Default(),
		tables:   make(map[string]*Table),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddSearchDir appends a directory searched before the cache directory.
func (r *Resolver) AddSearchDir(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searchDirs = append(r.searchDirs, dir)
}

// CacheDir returns the cache directory.
func (r *Resolver) CacheDir() string {
	return r.cacheDir
}

// LoadedModuleCount returns the number of modules with a loaded table.
func (r *Resolver) LoadedModuleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.CountBy(lo.Values(r.tables), func(t *Table) bool { return t != nil })
}

// Load parses the symbol file at path and registers it under its stem,
// replacing any previous table or remembered miss.
func (r *Resolver) Load(path string) error {
	t, err := ParseFile(path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.tables[moduleKey(path)] = t
	r.mu.Unlock()
	return nil
}

// Resolve returns the frame for offset within the module at modulePath.
// Missing or unreadable symbols yield an unresolved frame.
func (r *Resolver) Resolve(modulePath string, offset uint64) ctd.ResolvedFrame {
	name := moduleName(modulePath)
	if offset > math.MaxUint32 {
		return ctd.UnresolvedFrame(name, offset)
	}
	t := r.table(moduleKey(modulePath))
	if t == nil {
		return ctd.UnresolvedFrame(name, offset)
	}
	fn, ok := t.Lookup(uint32(offset))
	if !ok {
		return ctd.UnresolvedFrame(name, offset)
	}
	return ctd.NewResolvedFrame(name, offset, fn)
}

// ResolveAll resolves frames in order.
func (r *Resolver) ResolveAll(frames []ctd.RawFrame) []ctd.ResolvedFrame {
	return lo.Map(frames, func(f ctd.RawFrame, _ int) ctd.ResolvedFrame {
		return r.Resolve(f.Module, f.Offset)
	})
}

// table returns the cached table for key, probing disk once on first use.
func (r *Resolver) table(key string) *Table {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, seen := r.tables[key]; seen {
		return t
	}

	path, ok := r.find(key)
	if !ok {
		r.logger.Debug("symbol file not found", "module", key)
		r.tables[key] = nil
		return nil
	}
	t, err := ParseFile(path)
	if err != nil {
		r.logger.Debug("failed to load symbols", "module", key, "path", path, "error", err)
		r.tables[key] = nil
		return nil
	}
	r.tables[key] = t
	return t
}

// find looks for <key><ext> in the search dirs, then the cache dir. The
// stem and extension match case-insensitively.
func (r *Resolver) find(key string) (string, bool) {
	file := key + r.ext
	dirs := append(append([]string{}, r.searchDirs...), r.cacheDir)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, file)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
		if path, ok := r.findFold(dir, key); ok {
			return path, true
		}
	}
	return "", false
}

// findFold scans dir for a symbol file whose stem equals key ignoring case.
func (r *Resolver) findFold(dir, key string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	match, ok := lo.Find(entries, func(e os.DirEntry) bool {
		name := e.Name()
		ext := filepath.Ext(name)
		return !e.IsDir() &&
			strings.EqualFold(ext, r.ext) &&
			strings.EqualFold(strings.TrimSuffix(name, ext), key)
	})
	if !ok {
		return "", false
	}
	return filepath.Join(dir, match.Name()), true
}

// Discover eagerly loads every symbol file in dirs, or in the search dirs
// when none are given, and returns how many loaded. Files are parsed in
// parallel; failures are logged and skipped.
func (r *Resolver) Discover(ctx context.Context, dirs ...string) int {
	if len(dirs) == 0 {
		r.mu.Lock()
		dirs = append([]string{}, r.searchDirs...)
		r.mu.Unlock()
	}

	var paths []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			r.logger.Debug("failed to read symbol dir", "dir", dir, "error", err)
			continue
		}
		files := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
			return !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), r.ext)
		})
		paths = append(paths, lo.Map(files, func(e os.DirEntry, _ int) string {
			return filepath.Join(dir, e.Name())
		})...)
	}

	loaded := make([]bool, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaults.SymbolLoadConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if err := r.Load(path); err != nil {
				r.logger.Warn("failed to load symbol file", "path", path, "error", err)
				return nil
			}
			loaded[i] = true
			return nil
		})
	}
	_ = g.Wait()

	count := lo.Count(loaded, true)
	r.logger.Debug("discovered symbol files", "count", count)
	return count
}

// moduleName returns the file name of a module path using either separator.
func moduleName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return "unknown"
	}
	return path
}

// moduleKey returns the lower-cased file stem of a module path.
func moduleKey(path string) string {
	name := moduleName(path)
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
