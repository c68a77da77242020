//go:build linux

package capture

import (
	"os"

	cerrors "github.com/ezmode-games/ctd/pkg/errors"
)

// LoadProcessModules returns the file-backed mappings of the current process.
// Call it outside the crash path; the result is safe to use inside it.
func LoadProcessModules() (Modules, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeIO, "failed to read process maps", err)
	}
	defer f.Close()
	return parseMaps(f), nil
}
