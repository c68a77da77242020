// snapshot.go holds the plain-data result of the capture phase.

package capture

import (
	"fmt"
	"strings"

	"github.com/ezmode-games/ctd/pkg/ctd"
	"github.com/ezmode-games/ctd/pkg/defaults"
)

// MaxFrames bounds the stack walk.
const MaxFrames = defaults.MaxStackFrames

// unknownModule names frames outside any known module.
const unknownModule = "unknown"

// Frame is one walked frame. Module is empty when the address is outside
// every known module, in which case Offset equals Address.
type Frame struct {
	Address uint64
	Module  string
	Offset  uint64
}

// ModuleName returns the module name or "unknown".
func (f Frame) ModuleName() string {
	if f.Module == "" {
		return unknownModule
	}
	return f.Module
}

// Snapshot is the crash state captured inside the faulting context. Frames
// live in a fixed-size array so capture never grows a slice.
type Snapshot struct {
	Code           ExceptionCode
	Address        uint64
	FaultingModule string

	// Synthetic is set when no frame could be walked and the single frame
	// was built from the faulting address.
	Synthetic bool

	frames [MaxFrames]Frame
	n      int
}

// push appends the frame for pc, dropping it when the array is full.
func (s *Snapshot) push(pc uint64, mods ModuleMap) {
	if s.n >= len(s.frames) {
		return
	}
	fr := Frame{Address: pc, Offset: pc}
	if mods != nil {
		if m, ok := mods.ModuleAt(pc); ok {
			fr.Module = m.Name
			fr.Offset = pc - m.Base
		}
	}
	s.frames[s.n] = fr
	s.n++
}

// Len returns the number of frames.
func (s *Snapshot) Len() int {
	return s.n
}

// Frames returns the walked frames, innermost first.
func (s *Snapshot) Frames() []Frame {
	return s.frames[:s.n]
}

// RawFrames returns the frames as module/offset pairs for symbolication.
func (s *Snapshot) RawFrames() []ctd.RawFrame {
	out := make([]ctd.RawFrame, s.n)
	for i, f := range s.Frames() {
		out[i] = ctd.RawFrame{Module: f.ModuleName(), Offset: f.Offset}
	}
	return out
}

// StackTrace renders one "[i] module+0xOFF (0xADDRESS)" line per frame.
func (s *Snapshot) StackTrace() string {
	var b strings.Builder
	for i, f := range s.Frames() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%d] %s+0x%X (0x%016X)", i, f.ModuleName(), f.Offset, f.Address)
	}
	return b.String()
}

// ExceptionAddress renders the faulting address as 0x followed by 16 hex digits.
func (s *Snapshot) ExceptionAddress() string {
	return fmt.Sprintf("0x%016X", s.Address)
}
