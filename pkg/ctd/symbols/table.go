// table.go implements the per-module address table and floor lookup.

package symbols

import (
	"sort"

	"github.com/samber/lo"
)

// Symbol is a function entry point relative to the module base.
type Symbol struct {
	RVA  uint32
	Name string
}

// Table is a module's function entry points, strictly sorted by RVA.
type Table struct {
	syms []Symbol
}

// NewTable sorts syms and drops duplicate addresses. The first symbol given
// for an address wins.
func NewTable(syms []Symbol) *Table {
	sorted := append([]Symbol(nil), syms...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RVA < sorted[j].RVA })
	return &Table{syms: lo.UniqBy(sorted, func(s Symbol) uint32 { return s.RVA })}
}

// Len returns the number of entry points.
func (t *Table) Len() int {
	return len(t.syms)
}

// Lookup returns the function whose entry point is the greatest address not
// above rva. It reports false when rva precedes the first entry point.
func (t *Table) Lookup(rva uint32) (string, bool) {
	i := sort.Search(len(t.syms), func(i int) bool { return t.syms[i].RVA > rva })
	if i == 0 {
		return "", false
	}
	return t.syms[i-1].Name, true
}
