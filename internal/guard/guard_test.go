package guard

import "testing"

func TestBorrowValue(t *testing.T) {
	c := New(41)
	got := BorrowValue(c, func(v *int) int {
		*v++
		return *v
	})
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestOverlappingBorrowPanics(t *testing.T) {
	c := New(0)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on overlapping borrow")
		}
	}()
	c.Borrow(func(v *int) {
		// Re-entering the same cell while already borrowed must panic —
		// this is the re-entrant-drop bug class the guard exists to catch.
		c.Borrow(func(inner *int) { *inner = 1 })
	})
}

func TestTryBorrowReportsContention(t *testing.T) {
	c := New("x")
	ok := true
	c.Borrow(func(s *string) {
		ok = c.TryBorrow(func(s *string) { *s = "y" })
	})
	if ok {
		t.Fatal("TryBorrow should have reported contention")
	}
}
