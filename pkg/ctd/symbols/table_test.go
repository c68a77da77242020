package symbols

import "testing"

func TestTable_FloorLookup(t *testing.T) {
	table := NewTable([]Symbol{{0x100, "f1"}, {0x200, "f2"}})

	tests := []struct {
		rva  uint32
		want string
		ok   bool
	}{
		{0x150, "f1", true},
		{0x50, "", false},
		{0x200, "f2", true},
		{0x100, "f1", true},
		{0x1FF, "f1", true},
		{0xFFFFFFFF, "f2", true},
	}
	for _, tt := range tests {
		got, ok := table.Lookup(tt.rva)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Lookup(%#x) = %q, %v; want %q, %v", tt.rva, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTable_SortsAndDeduplicates(t *testing.T) {
	table := NewTable([]Symbol{{0x300, "c"}, {0x100, "a"}, {0x100, "a-dup"}, {0x200, "b"}})
	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}
	if got, _ := table.Lookup(0x100); got != "a" {
		t.Errorf("Lookup(0x100) = %q, want first symbol given for the address", got)
	}
	if got, _ := table.Lookup(0x250); got != "b" {
		t.Errorf("Lookup(0x250) = %q, want b", got)
	}
}

func TestTable_Empty(t *testing.T) {
	if _, ok := NewTable(nil).Lookup(0x10); ok {
		t.Error("empty table resolved an address")
	}
}
