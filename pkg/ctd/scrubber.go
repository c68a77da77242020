// scrubber.go implements sensitive data redaction for crash report fields.

package ctd

import (
	"regexp"
)

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// MaxStackTraceSize is the maximum length in characters for stack traces
	// (default: MaxStackTraceLen).
	MaxStackTraceSize int

	// MaxNotesSize is the maximum length in characters for notes (default: MaxNotesLen).
	MaxNotesSize int

	// MaxModulePathSize is the maximum length in characters for the faulting
	// module (default: MaxFaultingModuleLen).
	MaxModulePathSize int

	// ScrubNotes enables scrubbing of free-form notes for secrets/PII (default: true).
	ScrubNotes bool
}

// DefaultScrubberConfig returns defaults that keep every field inside the
// report builder's bounds.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxStackTraceSize: MaxStackTraceLen,
		MaxNotesSize:      MaxNotesLen,
		MaxModulePathSize: MaxFaultingModuleLen,
		ScrubNotes:        true,
	}
}

// Compiled regex patterns for notes scrubbing
var notesScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),           // GitHub tokens
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),  // GitHub PAT
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`), // Slack tokens
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),

	// Credentials
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'",]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), // Email
}

// User-specific directories in module paths and traces
var pathNormalizationPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)[A-Z]:\\Users\\[^\\]+\\`), `C:\Users\[USER]\`},
	{regexp.MustCompile(`/home/[^/]+/`), "/home/[USER]/"},
	{regexp.MustCompile(`/Users/[^/]+/`), "/Users/[USER]/"},
}

// Scrubber redacts sensitive data from report fields before they are built
// into a CrashReport.
type Scrubber struct {
	cfg ScrubberConfig
}

// NewScrubber creates a new scrubber with the given configuration.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	return &Scrubber{cfg: cfg}
}

// ScrubStackTrace normalizes user paths and limits stack trace size.
// Offsets and addresses are kept: they are what symbolication needs.
func (s *Scrubber) ScrubStackTrace(trace string) string {
	if trace == "" {
		return trace
	}
	return truncateWithMarker(normalizePaths(trace), s.cfg.MaxStackTraceSize)
}

// ScrubModulePath normalizes the user directory in a module path.
func (s *Scrubber) ScrubModulePath(path string) string {
	return truncateWithMarker(normalizePaths(path), s.cfg.MaxModulePathSize)
}

// ScrubNotes redacts secrets and PII from user-supplied notes.
func (s *Scrubber) ScrubNotes(notes string) string {
	result := notes
	if s.cfg.ScrubNotes {
		for _, pattern := range notesScrubPatterns {
			result = pattern.ReplaceAllString(result, "[REDACTED]")
		}
	}
	return truncateWithMarker(result, s.cfg.MaxNotesSize)
}

func normalizePaths(s string) string {
	for _, p := range pathNormalizationPatterns {
		s = p.re.ReplaceAllLiteralString(s, p.repl)
	}
	return s
}

// truncateWithMarker truncates s to maxLen characters, ending with a
// truncation marker. A non-positive maxLen disables truncation.
func truncateWithMarker(s string, maxLen int) string {
	if maxLen <= 0 || runeLen(s) <= maxLen {
		return s
	}
	const marker = "...[TRUNCATED]"
	runes := []rune(s)
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return string(runes[:maxLen-len(marker)]) + marker
}
