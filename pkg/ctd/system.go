// system.go supplies host and OS metadata at crash time.

package ctd

import (
	"bufio"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

// UnknownVersion is reported when the host cannot tell its version.
const UnknownVersion = "unknown"

// MetadataProvider supplies host-specific report fields. Every method must
// fail open: an unknown version is reported as UnknownVersion or absent.
type MetadataProvider interface {
	GameVersion() string
	ExtenderVersion() (string, bool)
	OSVersion() (string, bool)
}

// StaticMetadata is a MetadataProvider with fixed values. Empty fields are
// treated as unknown.
type StaticMetadata struct {
	Game     string
	Extender string
	OS       string
}

// GameVersion returns the configured game version or UnknownVersion.
func (m StaticMetadata) GameVersion() string {
	if m.Game == "" {
		return UnknownVersion
	}
	return m.Game
}

// ExtenderVersion returns the configured extender version, if any.
func (m StaticMetadata) ExtenderVersion() (string, bool) {
	return m.Extender, m.Extender != ""
}

// OSVersion returns the configured OS version, detecting it when empty.
func (m StaticMetadata) OSVersion() (string, bool) {
	if m.OS != "" {
		return m.OS, true
	}
	return DetectOSVersion(), true
}

// osReleasePath is a variable for tests.
var osReleasePath = "/etc/os-release"

// DetectOSVersion returns the distribution's PRETTY_NAME when available,
// falling back to GOOS/GOARCH.
func DetectOSVersion() string {
	fallback := runtime.GOOS + "/" + runtime.GOARCH
	f, err := os.Open(osReleasePath)
	if err != nil {
		slog.Debug("os-release not readable, using platform", "path", osReleasePath, "error", err)
		return fallback
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), "=")
		if !ok || k != "PRETTY_NAME" {
			continue
		}
		v = strings.Trim(v, `"'`)
		if v == "" {
			break
		}
		return v + " (" + runtime.GOARCH + ")"
	}
	slog.Debug("os-release has no PRETTY_NAME, using platform", "path", osReleasePath)
	return fallback
}
