package capture

import (
	"errors"
	"strings"
	"testing"
)

var (
	sink    int
	divisor int
)

type node struct{ value int }

func runRecovered(h *Handler, fn func()) (repanicked any) {
	defer func() {
		repanicked = recover()
	}()
	func() {
		defer h.Recover()
		fn()
	}()
	return nil
}

func TestRecover_NilDereference(t *testing.T) {
	sub := &mockSubmitter{}
	h := NewHandler(sub)

	r := runRecovered(h, func() {
		var n *node
		sink = n.value
	})
	if r == nil {
		t.Fatal("Recover must re-panic")
	}
	if sub.count() != 1 {
		t.Fatalf("submitted %d snapshots, want 1", sub.count())
	}
	snap := sub.last()
	if snap.Code != AccessViolation {
		t.Errorf("Code = %s, want ACCESS_VIOLATION", snap.Code)
	}
	if snap.Len() == 0 {
		t.Error("Go stack was not captured")
	}
	if !strings.HasPrefix(snap.StackTrace(), "[0] ") {
		t.Errorf("StackTrace() = %q", snap.StackTrace())
	}
	if sub.flushes != 1 {
		t.Errorf("flushes = %d, want 1", sub.flushes)
	}
}

func TestRecover_DivideByZero(t *testing.T) {
	sub := &mockSubmitter{}
	h := NewHandler(sub)

	r := runRecovered(h, func() {
		sink = 1 / divisor
	})
	if r == nil {
		t.Fatal("Recover must re-panic")
	}
	if sub.count() != 1 || sub.last().Code != IntegerDivideByZero {
		t.Errorf("want one INTEGER_DIVIDE_BY_ZERO snapshot, got %d", sub.count())
	}
}

func TestRecover_IgnoresNonFatalPanics(t *testing.T) {
	sub := &mockSubmitter{}
	h := NewHandler(sub)

	r := runRecovered(h, func() {
		panic(errors.New("application error"))
	})
	if r == nil {
		t.Fatal("Recover must re-panic")
	}
	if sub.count() != 0 {
		t.Errorf("non-fatal panic was submitted")
	}
}

func TestRecover_NoPanic(t *testing.T) {
	sub := &mockSubmitter{}
	h := NewHandler(sub)

	if r := runRecovered(h, func() {}); r != nil {
		t.Errorf("unexpected panic %v", r)
	}
	if sub.count() != 0 {
		t.Error("nothing should be submitted without a panic")
	}
}

func TestRecover_SubmitRejectedSkipsFlush(t *testing.T) {
	sub := &mockSubmitter{err: errors.New("busy")}
	h := NewHandler(sub)

	runRecovered(h, func() {
		var n *node
		sink = n.value
	})
	if sub.flushes != 0 {
		t.Errorf("flushes = %d, want 0 when submission was rejected", sub.flushes)
	}
}
