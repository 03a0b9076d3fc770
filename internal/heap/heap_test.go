package heap

import "testing"

func TestAllocFreeRoundTrip(t *testing.T) {
	h := New(4096)
	a := h.MustAlloc(100)
	for i := range a {
		a[i] = byte(i)
	}
	h.Free(a, 100)

	// A second allocation of the same size should be satisfiable from
	// the coalesced free list without growing the arena.
	b := h.MustAlloc(100)
	if len(b) != 100 {
		t.Fatalf("len = %d, want 100", len(b))
	}
}

func TestAllocExhaustion(t *testing.T) {
	h := New(1024)
	var allocs [][]byte
	for {
		b := h.Alloc(minBlock)
		if b == nil {
			break
		}
		allocs = append(allocs, b)
	}
	if len(allocs) == 0 {
		t.Fatal("expected at least one allocation before exhaustion")
	}
	if h.Alloc(minBlock) != nil {
		t.Fatal("expected exhaustion to persist")
	}
}

func TestMustAllocPanicsOnOversizeRequest(t *testing.T) {
	h := New(1024)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on oversized request")
		}
	}()
	h.MustAlloc(1 << 20)
}
