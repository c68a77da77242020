package capture

import (
	"context"
	"sync"
)

// mockSubmitter records snapshots handed over by the handler.
type mockSubmitter struct {
	mu        sync.Mutex
	snapshots []Snapshot
	flushes   int
	err       error
	panicOn   bool
}

func (m *mockSubmitter) SubmitAsync(snap Snapshot) error {
	if m.panicOn {
		panic("submitter exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snap)
	return m.err
}

func (m *mockSubmitter) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

func (m *mockSubmitter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

func (m *mockSubmitter) last() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[len(m.snapshots)-1]
}

// mockHost records installed callbacks.
type mockHost struct {
	mu        sync.Mutex
	callbacks []func(*ExceptionRecord) Disposition
	err       error
}

func (h *mockHost) AddExceptionHandler(fn func(*ExceptionRecord) Disposition) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.callbacks = append(h.callbacks, fn)
	return nil
}

func (h *mockHost) installed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.callbacks)
}

// fakeMemory is a MemoryReader over a sparse word map.
type fakeMemory map[uint64]uint64

func (m fakeMemory) ReadUint64(addr uint64) (uint64, bool) {
	v, ok := m[addr]
	return v, ok
}

// panicUnwinder fails after yielding a number of frames.
type panicUnwinder struct{ after int }

func (u *panicUnwinder) Next(f *StackFrame) bool {
	if u.after == 0 {
		panic("bad stack")
	}
	u.after--
	f.PC += 0x10
	return true
}

var testModules = NewModules(
	Module{Name: "plugin.dll", Base: 0x7FF800000000, Size: 0x10000},
	Module{Name: "game.exe", Base: 0x140000000, Size: 0x100000},
)
