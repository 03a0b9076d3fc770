// Package frame implements C2: a stack-style allocator over a half-open
// PPN range, with a LIFO list of recycled PPNs, exactly as §4.1
// specifies. Grounded on biscuit's mem/mem.go Physmem_t (free-list/
// refcount structure over a physical page range) and, for the backing
// store, on gvisor's sentry platform (other_examples'
// pkg-sentry-mm-mm.go / lifecycle.go), which backs guest physical
// memory with a host mmap rather than a plain Go slice — the same
// technique is used here via golang.org/x/sys/unix.Mmap so that frame
// bytes live outside the Go garbage collector's view, matching the
// spec's insistence that frames are physical memory, not heap objects.
package frame

import (
	"golang.org/x/sys/unix"

	"rvcore/internal/guard"
	"rvcore/internal/klog"
	"rvcore/internal/riscv"
)

type state struct {
	arena []byte
	base  riscv.PhysPageNum // PPN corresponding to arena[0]
	cur   riscv.PhysPageNum
	end   riscv.PhysPageNum
	free  []riscv.PhysPageNum // LIFO recycled list
}

// Allocator is the C2 frame allocator: alloc() pops from the recycled
// list, else advances cur, else fails; dealloc(ppn) is fatal on
// double-free or out-of-range.
type Allocator struct {
	cell *guard.Cell[state]
}

// New creates an allocator over the PPN range [base, end), backing the
// range with an anonymous mmap arena of (end-base) pages.
func New(base, end riscv.PhysPageNum) *Allocator {
	if end <= base {
		klog.Panicf("frame: empty range [%d, %d)", base, end)
	}
	n := int(end-base) * riscv.PageSize
	arena, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		klog.Panicf("frame: mmap failed: %v", err)
	}
	return &Allocator{cell: guard.New(state{arena: arena, base: base, cur: base, end: end})}
}

// Close releases the backing mmap arena. Used by tests that construct
// many short-lived allocators; the boot-time singleton never calls it.
func (a *Allocator) Close() {
	guard.BorrowValue(a.cell, func(s *state) error {
		return unix.Munmap(s.arena)
	})
}

// alloc implements §4.1's alloc(): pop from recycled; else advance cur
// while cur < end; else fail.
func (a *Allocator) alloc() (riscv.PhysPageNum, bool) {
	return guard.BorrowValue(a.cell, func(s *state) (riscv.PhysPageNum, bool) {
		if n := len(s.free); n > 0 {
			ppn := s.free[n-1]
			s.free = s.free[:n-1]
			return ppn, true
		}
		if s.cur >= s.end {
			return 0, false
		}
		ppn := s.cur
		s.cur++
		return ppn, true
	})
}

// dealloc implements §4.1's dealloc(): fatal if ppn was never handed
// out (ppn >= cur) or is already recycled.
func (a *Allocator) dealloc(ppn riscv.PhysPageNum) {
	a.cell.Borrow(func(s *state) {
		if ppn >= s.cur {
			klog.Panicf("frame: dealloc of unallocated ppn %d", ppn)
		}
		for _, f := range s.free {
			if f == ppn {
				klog.Panicf("frame: double free of ppn %d", ppn)
			}
		}
		s.free = append(s.free, ppn)
	})
}

// Bytes returns the page-sized byte slice backing an already-allocated
// ppn, analogous to biscuit's mem.Page_i.Dmap. Used by internal/pagetable
// to walk directory pages it does not hold a *Frame handle for (e.g. a
// non-owning from_token view of another address space's page table).
func (a *Allocator) Bytes(ppn riscv.PhysPageNum) []byte { return a.bytes(ppn) }

// bytes returns the page-sized byte slice backing ppn, analogous to
// biscuit's mem.Page_i.Dmap.
func (a *Allocator) bytes(ppn riscv.PhysPageNum) []byte {
	return guard.BorrowValue(a.cell, func(s *state) []byte {
		if ppn < s.base || ppn >= s.end {
			klog.Panicf("frame: ppn %d out of backed range", ppn)
		}
		off := int(ppn-s.base) * riscv.PageSize
		return s.arena[off : off+riscv.PageSize : off+riscv.PageSize]
	})
}

// Frame is the owning handle described in §3: acquired from the
// allocator, zeroed on acquisition, returned to the allocator by Free,
// the only path to deallocation. A Frame must not be used after Free.
type Frame struct {
	alloc *Allocator
	ppn   riscv.PhysPageNum
}

// Alloc acquires a zeroed frame, or nil if the allocator is exhausted.
func (a *Allocator) Alloc() *Frame {
	ppn, ok := a.alloc()
	if !ok {
		return nil
	}
	f := &Frame{alloc: a, ppn: ppn}
	b := f.Bytes()
	for i := range b {
		b[i] = 0
	}
	return f
}

// PPN returns the physical page number this frame occupies.
func (f *Frame) PPN() riscv.PhysPageNum { return f.ppn }

// Bytes returns the page-sized byte slice backing this frame.
func (f *Frame) Bytes() []byte { return f.alloc.bytes(f.ppn) }

// Free returns the frame to its allocator. Calling Free twice on the
// same Frame is a double-free (fatal per §7 class 3), matching the
// invariant that a frame is owned by exactly one handle at a time.
func (f *Frame) Free() {
	if f == nil || f.alloc == nil {
		klog.Panicf("frame: double free via nil/already-freed handle")
	}
	f.alloc.dealloc(f.ppn)
	f.alloc = nil
}
