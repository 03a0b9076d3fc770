// Package pidalloc implements C5: PID allocation and the per-PID kernel
// stack placement the spec fixes relative to TRAMPOLINE (§3, §4.4).
// Grounded on biscuit's mem/mem.go free-list/recycling shape (the same
// LIFO-recycling pattern as internal/frame, applied here to small
// integers instead of physical pages) and original_source
// os5/src/task/pid.rs for the exact KernelStack construct/drop
// semantics.
package pidalloc

import (
	"rvcore/internal/guard"
	"rvcore/internal/klog"
)

type state struct {
	next int
	free []int // LIFO recycled ids
}

// Allocator is the process-wide PID singleton (§5).
type Allocator struct {
	cell *guard.Cell[state]
}

// New constructs a PID allocator starting at id 0 (so the first
// allocation, for the init process, is PID 0 per §6).
func New() *Allocator {
	return &Allocator{cell: guard.New(state{})}
}

// Pid is the owning handle around a small integer (§3): allocation
// pulls from the recycled list or an incrementing counter; Free returns
// the id to the recycled list. Re-freeing the same Pid is fatal.
type Pid struct {
	alloc *Allocator
	id    int
	freed bool
}

// Alloc returns a fresh Pid handle.
func (a *Allocator) Alloc() *Pid {
	id := guard.BorrowValue(a.cell, func(s *state) int {
		if n := len(s.free); n > 0 {
			id := s.free[n-1]
			s.free = s.free[:n-1]
			return id
		}
		id := s.next
		s.next++
		return id
	})
	return &Pid{alloc: a, id: id}
}

// ID returns the numeric PID.
func (p *Pid) ID() int { return p.id }

// Free returns this PID to the allocator's recycled list. Fatal on
// double-free (§4.4).
func (p *Pid) Free() {
	if p.freed {
		klog.Panicf("pidalloc: double free of pid %d", p.id)
	}
	p.freed = true
	p.alloc.cell.Borrow(func(s *state) {
		for _, f := range s.free {
			if f == p.id {
				klog.Panicf("pidalloc: pid %d already in recycled list", p.id)
			}
		}
		s.free = append(s.free, p.id)
	})
}
