// inventory.go models the ordered list of add-ons loaded in the host process.

package ctd

import (
	"context"
	"encoding/json"
	"sync/atomic"

	cerrors "github.com/ezmode-games/ctd/pkg/errors"
)

// SchemaVersion tags a report with the inventory representation it carries.
type SchemaVersion uint8

const (
	// SchemaLegacy carries name, enabled and index only.
	SchemaLegacy SchemaVersion = 1
	// SchemaFingerprinted adds file hash, file size and version.
	SchemaFingerprinted SchemaVersion = 2

	// CurrentSchema is used when no inventory variant says otherwise.
	CurrentSchema = SchemaFingerprinted
)

// InventoryEntry is one installed add-on. Which fields are serialized
// depends on the schema of the Inventory that holds the entry.
type InventoryEntry struct {
	Name     string
	FileHash string
	FileSize uint64
	Version  *string
	Index    *uint32
	Enabled  *bool
}

// NewEntry returns a fingerprinted entry for name.
func NewEntry(name string, fp Fingerprint) InventoryEntry {
	return InventoryEntry{Name: name, FileHash: fp.Hash, FileSize: fp.Size}
}

// WithVersion returns a copy of e with Version set.
func (e InventoryEntry) WithVersion(v string) InventoryEntry {
	e.Version = &v
	return e
}

// WithIndex returns a copy of e with Index set.
func (e InventoryEntry) WithIndex(i uint32) InventoryEntry {
	e.Index = &i
	return e
}

// WithEnabled returns a copy of e with Enabled set.
func (e InventoryEntry) WithEnabled(b bool) InventoryEntry {
	e.Enabled = &b
	return e
}

type legacyEntryJSON struct {
	Name    string  `json:"name"`
	Enabled *bool   `json:"enabled,omitempty"`
	Index   *uint32 `json:"index,omitempty"`
}

type entryJSON struct {
	Name     string  `json:"name"`
	FileHash string  `json:"fileHash"`
	FileSize uint64  `json:"fileSize"`
	Version  *string `json:"version,omitempty"`
	Index    *uint32 `json:"index,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}

// Inventory is an ordered sequence of entries in the host's load order.
// All entries share the inventory's schema.
type Inventory struct {
	Schema  SchemaVersion
	Entries []InventoryEntry
}

// NewInventory returns a fingerprinted (v2) inventory.
func NewInventory(entries ...InventoryEntry) Inventory {
	return Inventory{Schema: SchemaFingerprinted, Entries: entries}
}

// NewLegacyInventory returns a legacy (v1) inventory. Fingerprint fields of
// the entries are not serialized.
func NewLegacyInventory(entries ...InventoryEntry) Inventory {
	return Inventory{Schema: SchemaLegacy, Entries: entries}
}

// Len returns the number of entries.
func (inv Inventory) Len() int {
	return len(inv.Entries)
}

// Push appends an entry, preserving load order.
func (inv *Inventory) Push(e InventoryEntry) {
	inv.Entries = append(inv.Entries, e)
}

// schema returns the effective schema, treating the zero value as current.
func (inv Inventory) schema() SchemaVersion {
	if inv.Schema == 0 {
		return CurrentSchema
	}
	return inv.Schema
}

// MarshalJSON encodes the entries as a JSON array in the inventory's schema.
func (inv Inventory) MarshalJSON() ([]byte, error) {
	if inv.schema() == SchemaLegacy {
		out := make([]legacyEntryJSON, len(inv.Entries))
		for i, e := range inv.Entries {
			out[i] = legacyEntryJSON{Name: e.Name, Enabled: e.Enabled, Index: e.Index}
		}
		return json.Marshal(out)
	}
	out := make([]entryJSON, len(inv.Entries))
	for i, e := range inv.Entries {
		out[i] = entryJSON{
			Name:     e.Name,
			FileHash: e.FileHash,
			FileSize: e.FileSize,
			Version:  e.Version,
			Index:    e.Index,
			Enabled:  e.Enabled,
		}
	}
	return json.Marshal(out)
}

// Payload returns the inventory serialized as a standalone JSON string, the
// form embedded in a report.
func (inv Inventory) Payload() (string, error) {
	b, err := inv.MarshalJSON()
	if err != nil {
		return "", cerrors.Wrap(cerrors.ErrCodeInternal, "failed to serialize inventory", err)
	}
	return string(b), nil
}

// ParseInventory decodes a payload produced by Payload for the given schema.
func ParseInventory(schema SchemaVersion, payload string) (Inventory, error) {
	inv := Inventory{Schema: schema}
	switch schema {
	case SchemaLegacy:
		var raw []legacyEntryJSON
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			return Inventory{}, cerrors.Wrap(cerrors.ErrCodeValidation, "invalid legacy inventory payload", err)
		}
		for _, r := range raw {
			inv.Push(InventoryEntry{Name: r.Name, Enabled: r.Enabled, Index: r.Index})
		}
	case SchemaFingerprinted:
		var raw []entryJSON
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			return Inventory{}, cerrors.Wrap(cerrors.ErrCodeValidation, "invalid inventory payload", err)
		}
		for _, r := range raw {
			inv.Push(InventoryEntry{
				Name:     r.Name,
				FileHash: r.FileHash,
				FileSize: r.FileSize,
				Version:  r.Version,
				Index:    r.Index,
				Enabled:  r.Enabled,
			})
		}
	default:
		return Inventory{}, cerrors.NewWithContext(cerrors.ErrCodeValidation, "unknown schema version",
			map[string]any{"schema_version": schema})
	}
	return inv, nil
}

// Scanner produces the host's inventory. Implementations are filesystem and
// host specific.
type Scanner interface {
	Scan(ctx context.Context) (Inventory, error)
}

// ScannerFunc adapts a function to Scanner.
type ScannerFunc func(ctx context.Context) (Inventory, error)

// Scan calls f.
func (f ScannerFunc) Scan(ctx context.Context) (Inventory, error) {
	return f(ctx)
}

// InventoryCache is a set-once, read-forever cell. The first Set wins and
// later reads never lock.
type InventoryCache struct {
	p atomic.Pointer[Inventory]
}

// DefaultInventoryCache is the process-wide cache populated at startup.
var DefaultInventoryCache = &InventoryCache{}

// Set stores inv if the cache is empty and reports whether it was stored.
func (c *InventoryCache) Set(inv Inventory) bool {
	return c.p.CompareAndSwap(nil, &inv)
}

// Get returns the cached inventory, if any.
func (c *InventoryCache) Get() (Inventory, bool) {
	p := c.p.Load()
	if p == nil {
		return Inventory{}, false
	}
	return *p, true
}

// GetOrEmpty returns the cached inventory or an empty fingerprinted one.
func (c *InventoryCache) GetOrEmpty() Inventory {
	if inv, ok := c.Get(); ok {
		return inv
	}
	return NewInventory()
}

// ScanAndCache runs s once and caches the result. When the cache is already
// populated, the cached entry count is returned without scanning.
func (c *InventoryCache) ScanAndCache(ctx context.Context, s Scanner) (int, error) {
	if inv, ok := c.Get(); ok {
		return inv.Len(), nil
	}
	inv, err := s.Scan(ctx)
	if err != nil {
		return 0, err
	}
	if !c.Set(inv) {
		// lost the race to another scan
		cached, _ := c.Get()
		return cached.Len(), nil
	}
	return inv.Len(), nil
}
