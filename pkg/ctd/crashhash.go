// crashhash.go generates stable hashes for grouping similar crashes.

package ctd

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// crashHashFrames is the number of innermost frames that identify a crash.
const crashHashFrames = 3

// CrashHash generates a hash for grouping crashes with the same cause.
// The hash is based on the module and in-module offset of the first three
// frames of a captured trace. Frame indices and absolute addresses are
// ignored, so the same crash groups together across address-space layouts.
//
// Returns an empty string when no frame could be parsed.
func CrashHash(stackTrace string) string {
	frames := normalizeStackTrace(stackTrace)
	if len(frames) == 0 {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.Join(frames, "|")))

	// 32 hex chars
	return hex.EncodeToString(hash[:16])
}

// normalizeStackTrace extracts "module+0xoffset" keys for the first frames.
// Module names are lower-cased and reduced to their base name.
func normalizeStackTrace(trace string) []string {
	if trace == "" {
		return nil
	}

	var frames []string
	for _, line := range strings.Split(trace, "\n") {
		f, ok := ParseStackTraceLine(line)
		if !ok {
			continue
		}
		frames = append(frames, strings.ToLower(baseName(f.Module))+"+"+hexOffset(f.Offset))
		if len(frames) >= crashHashFrames {
			break
		}
	}
	return frames
}

// baseName strips any directory using either separator.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func hexOffset(off uint64) string {
	return "0x" + strconv.FormatUint(off, 16)
}
