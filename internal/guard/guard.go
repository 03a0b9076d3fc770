// Package guard implements the single-borrow exclusive-access cell used
// by every process-wide singleton in the kernel (frame allocator, pid
// allocator, kernel address space, ready queue, per-TCB inner state).
//
// The kernel never runs more than one hart and disables interrupts while
// the trap handler runs (§5), so in principle plain mutable access would
// do. The teacher's design note (§9, "Interior mutability under
// single-thread supervisor") calls for the dynamic check anyway: it is
// what catches re-entrant bugs, such as dropping a TCB while a borrow of
// its inner state is still live, that a silent plain-access rewrite would
// hide. Borrow enforcement is built on golang.org/x/sync/semaphore, the
// same package biscuit's go.mod already pulls in (indirectly, promoted to
// direct here): a weighted semaphore of capacity 1 is a ready-made
// single-owner mutual-exclusion primitive that panics instead of
// blocking on contention.
package guard

import "golang.org/x/sync/semaphore"

// Cell wraps a T with exclusive-access borrowing. It is the Go analogue
// of the source kernel's UPSafeCell: read and write borrows are both
// spelled Borrow here because the guard does not distinguish shared
// from exclusive borrows — exactly one live borrow at a time,
// full stop, matching the source's single RefCell-style cell.
type Cell[T any] struct {
	sem   *semaphore.Weighted
	value T
}

// New wraps v in a Cell.
func New[T any](v T) *Cell[T] {
	return &Cell[T]{sem: semaphore.NewWeighted(1), value: v}
}

// Borrow calls fn with exclusive access to the wrapped value (use
// BorrowValue to get a result out of fn). It panics if a borrow is already outstanding —
// "overlapping borrows are a fatal bug" per §5.
func (c *Cell[T]) Borrow(fn func(*T)) {
	if !c.sem.TryAcquire(1) {
		panic("guard: overlapping borrow")
	}
	defer c.sem.Release(1)
	fn(&c.value)
}

// BorrowValue is Borrow for call sites that want to return a value out of
// the closure without an extra local variable.
func BorrowValue[T any, R any](c *Cell[T], fn func(*T) R) R {
	var out R
	c.Borrow(func(t *T) { out = fn(t) })
	return out
}

// TryBorrow behaves like Borrow but reports contention instead of
// panicking. Used only by diagnostic code paths (e.g. a panic handler
// that wants to print scheduler state without risking a second panic).
func (c *Cell[T]) TryBorrow(fn func(*T)) bool {
	if !c.sem.TryAcquire(1) {
		return false
	}
	defer c.sem.Release(1)
	fn(&c.value)
	return true
}
