// frame.go defines stack frames before and after symbolication.

package ctd

import (
	"fmt"
	"strconv"
	"strings"
)

// RawFrame is a frame produced by the stack walk: a module and an offset
// within it. It carries no symbol information.
type RawFrame struct {
	Module string
	Offset uint64
}

// ResolvedFrame is a RawFrame enriched with whatever symbol information the
// resolver found. Optional fields are nil when unknown.
type ResolvedFrame struct {
	Module   string  `json:"module"`
	Offset   uint64  `json:"offset"`
	Function *string `json:"function,omitempty"`
	File     *string `json:"file,omitempty"`
	Line     *uint32 `json:"line,omitempty"`
}

// UnresolvedFrame returns a frame with only module and offset.
func UnresolvedFrame(module string, offset uint64) ResolvedFrame {
	return ResolvedFrame{Module: module, Offset: offset}
}

// NewResolvedFrame returns a frame with a function name.
func NewResolvedFrame(module string, offset uint64, function string) ResolvedFrame {
	return ResolvedFrame{Module: module, Offset: offset, Function: &function}
}

// IsResolved reports whether the frame has a function name.
func (f ResolvedFrame) IsResolved() bool {
	return f.Function != nil
}

// Format renders the frame as "module+0xOFF" with the function, file and
// line appended when known.
func (f ResolvedFrame) Format() string {
	base := fmt.Sprintf("%s+0x%X", f.Module, f.Offset)
	if f.Function == nil {
		return base
	}
	switch {
	case f.File != nil && f.Line != nil:
		return fmt.Sprintf("%s (%s at %s:%d)", base, *f.Function, *f.File, *f.Line)
	case f.File != nil:
		return fmt.Sprintf("%s (%s at %s)", base, *f.Function, *f.File)
	default:
		return fmt.Sprintf("%s (%s)", base, *f.Function)
	}
}

// FormatStackTrace renders frames as numbered lines in walk order.
func FormatStackTrace(frames []ResolvedFrame) string {
	lines := make([]string, 0, len(frames))
	for i, f := range frames {
		lines = append(lines, fmt.Sprintf("[%d] %s", i, f.Format()))
	}
	return strings.Join(lines, "\n")
}

// ParseStackTraceLine parses a captured trace line of the form
// "[<index>] <module>+0x<offset> (0x<address>)" into a RawFrame.
// Anything after the offset is ignored.
func ParseStackTraceLine(line string) (RawFrame, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return RawFrame{}, false
	}
	end := strings.Index(line, "]")
	if end < 0 {
		return RawFrame{}, false
	}
	rest := strings.TrimSpace(line[end+1:])
	plus := strings.Index(rest, "+0x")
	if plus <= 0 {
		return RawFrame{}, false
	}
	hex := rest[plus+3:]
	if paren := strings.Index(hex, " ("); paren >= 0 {
		hex = hex[:paren]
	}
	off, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return RawFrame{}, false
	}
	return RawFrame{Module: rest[:plus], Offset: off}, true
}
