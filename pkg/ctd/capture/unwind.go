// unwind.go walks the stack from the faulting register state.

package capture

// StackFrame is the register state of one frame during the walk.
type StackFrame struct {
	PC uint64
	FP uint64
	SP uint64
}

// Unwinder advances f to its caller's frame. It returns false when no
// further frame can be recovered. Implementations must not allocate.
type Unwinder interface {
	Next(f *StackFrame) bool
}

// MemoryReader reads process memory without faulting. ok is false for
// unreadable addresses.
type MemoryReader interface {
	ReadUint64(addr uint64) (v uint64, ok bool)
}

// FramePointerUnwinder follows the saved frame pointer chain: the caller's
// frame pointer is stored at [FP] and the return address at [FP+8].
type FramePointerUnwinder struct {
	Mem MemoryReader
}

// Next implements Unwinder.
func (u FramePointerUnwinder) Next(f *StackFrame) bool {
	if u.Mem == nil || f.FP == 0 || f.FP%8 != 0 {
		return false
	}
	callerFP, ok := u.Mem.ReadUint64(f.FP)
	if !ok {
		return false
	}
	ret, ok := u.Mem.ReadUint64(f.FP + 8)
	if !ok || ret == 0 {
		return false
	}
	f.SP = f.FP + 16
	f.FP = callerFP
	f.PC = ret
	return true
}

// Walk fills snap with frames starting at the record's instruction pointer,
// stopping after maxFrames frames (clamped to MaxFrames) even when the chain
// is cyclic. If no frame is walked, a single frame is synthesized from the
// faulting address.
func Walk(rec *ExceptionRecord, u Unwinder, mods ModuleMap, maxFrames int, snap *Snapshot) {
	if maxFrames <= 0 || maxFrames > MaxFrames {
		maxFrames = MaxFrames
	}

	f := StackFrame{PC: rec.Context.IP, FP: rec.Context.FP, SP: rec.Context.SP}
	if f.PC != 0 {
		snap.push(f.PC, mods)
	}
	for u != nil && snap.n < maxFrames && u.Next(&f) {
		if f.PC == 0 {
			break
		}
		snap.push(f.PC, mods)
	}

	if snap.n == 0 {
		snap.push(rec.Address, mods)
		snap.Synthetic = true
	}
}
