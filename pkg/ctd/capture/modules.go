// modules.go maps code addresses to the loaded module that contains them.

package capture

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Module is a loaded image occupying [Base, Base+Size).
type Module struct {
	Name string
	Path string
	Base uint64
	Size uint64
}

// Contains reports whether addr falls inside the module.
func (m Module) Contains(addr uint64) bool {
	return addr >= m.Base && addr-m.Base < m.Size
}

// ModuleMap finds the module containing an address. Implementations used
// on the capture path must not allocate or lock.
type ModuleMap interface {
	ModuleAt(addr uint64) (Module, bool)
}

// Modules is a ModuleMap over modules sorted by base address.
type Modules []Module

// NewModules returns mods sorted by base address.
func NewModules(mods ...Module) Modules {
	out := append(Modules(nil), mods...)
	sort.Slice(out, func(i, j int) bool { return out[i].Base < out[j].Base })
	return out
}

// ModuleAt returns the module containing addr.
func (ms Modules) ModuleAt(addr uint64) (Module, bool) {
	lo, hi := 0, len(ms)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if ms[mid].Base <= addr {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return Module{}, false
	}
	m := ms[lo-1]
	if !m.Contains(addr) {
		return Module{}, false
	}
	return m, true
}

// parseMaps builds modules from /proc/<pid>/maps content. Mappings of the
// same file are merged into one module spanning all of them.
func parseMaps(r io.Reader) Modules {
	type span struct{ start, end uint64 }
	spans := make(map[string]*span)
	var order []string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		// start-end perms offset dev inode path
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}
		path := strings.Join(fields[5:], " ")
		if !strings.HasPrefix(path, "/") {
			continue
		}
		startStr, endStr, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		start, err1 := strconv.ParseUint(startStr, 16, 64)
		end, err2 := strconv.ParseUint(endStr, 16, 64)
		if err1 != nil || err2 != nil || end <= start {
			continue
		}
		s, seen := spans[path]
		if !seen {
			spans[path] = &span{start, end}
			order = append(order, path)
			continue
		}
		s.start = min(s.start, start)
		s.end = max(s.end, end)
	}

	mods := make([]Module, 0, len(order))
	for _, path := range order {
		s := spans[path]
		name := path[strings.LastIndex(path, "/")+1:]
		mods = append(mods, Module{Name: name, Path: path, Base: s.start, Size: s.end - s.start})
	}
	return NewModules(mods...)
}
