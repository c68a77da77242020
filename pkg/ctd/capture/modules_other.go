//go:build !linux

package capture

// LoadProcessModules returns an empty map on platforms without /proc.
// Frames then render with module "unknown".
func LoadProcessModules() (Modules, error) {
	return nil, nil
}
