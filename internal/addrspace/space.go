package addrspace

import (
	"rvcore/internal/frame"
	"rvcore/internal/klog"
	"rvcore/internal/pagetable"
	"rvcore/internal/riscv"
	"rvcore/internal/trampoline"
)

// Space is an address space: a page table plus an ordered list of
// logical regions, kept mutually consistent (§3, §4.3). The trampoline
// mapping is installed directly via MapTrampoline and is never tracked
// as a region — it is shared kernel code, not address-space-owned data
// (§4.3).
type Space struct {
	pt      *pagetable.Table
	regions []*Region
	alloc   *frame.Allocator
}

// NewBare returns an empty address space: a fresh page table, no
// regions, no trampoline mapping yet.
func NewBare(alloc *frame.Allocator) *Space {
	return &Space{pt: pagetable.New(alloc), alloc: alloc}
}

// MapTrampoline installs the single high page -> trampoline-code-page
// mapping (R+X, not user-accessible) directly into the page table,
// without registering a Region — the trampoline is shared across every
// address space, not owned by any one of them (§4.3).
func (s *Space) MapTrampoline() {
	s.pt.Map(riscv.VpnOf(riscv.Trampoline), trampoline.PPN(), riscv.PteR|riscv.PteX)
}

// Push maps region's VPN range into the page table and, if data is
// non-nil, copies it page-by-page into the region's newly allocated
// frames (valid only for Framed regions), then appends the region to
// this space's region list (§4.3).
func (s *Space) Push(r *Region, data []byte) {
	r.mapOn(s.pt, s.alloc)
	if data != nil {
		if r.Type != Framed {
			klog.Panicf("addrspace: cannot copy initial data into a non-Framed region")
		}
		r.copyData(data)
	}
	s.regions = append(s.regions, r)
}

// InsertFramedArea is a convenience Push of a Framed region spanning
// [startVA, endVA) with no initial data.
func (s *Space) InsertFramedArea(startVA, endVA riscv.VirtAddr, perm uint64) {
	s.Push(NewFramedRegion(startVA.Floor(), endVA.Ceil(), perm), nil)
}

// RemoveAreaWithStartVpn finds the region whose VPN range starts at
// startVpn, unmaps and drops it. A no-op if no such region exists.
func (s *Space) RemoveAreaWithStartVpn(startVpn riscv.VirtPageNum) {
	for i, r := range s.regions {
		if r.Start == startVpn {
			r.unmapFrom(s.pt)
			r.release()
			s.regions = append(s.regions[:i], s.regions[i+1:]...)
			return
		}
	}
}

// Translate delegates to the underlying page table.
func (s *Space) Translate(vpn riscv.VirtPageNum) (pagetable.PTE, bool) {
	return s.pt.Translate(vpn)
}

// Token returns this space's satp-ready page-table token.
func (s *Space) Token() uint64 { return s.pt.Token() }

// Activate installs this space's token into satp and issues a full TLB
// flush (§4.3). It does not change the page table object itself — only
// the hardware's active-table pointer.
func (s *Space) Activate() {
	riscv.WriteSatp(s.Token())
	riscv.SfenceVMA()
}

// RecycleDataPages drops every region (and thus every owned user-data
// frame). The page table's own directory frames, the trampoline
// mapping, and the Space object itself are untouched — they persist
// until the owning TCB is fully released (§4.3, §4.5 exit).
func (s *Space) RecycleDataPages() {
	for _, r := range s.regions {
		r.unmapFrom(s.pt)
		r.release()
	}
	s.regions = nil
}

// Release tears down everything this space owns: regions (and their
// data frames) first, then the page table's directory frames, matching
// §5's mandated teardown order. The trampoline mapping is just a PTE —
// the trampoline frame itself is part of the kernel image and is never
// freed.
func (s *Space) Release() {
	s.RecycleDataPages()
	s.pt.Release()
}

// Allocator exposes the frame allocator backing this space, for
// internal/task and internal/trap's cross-address-space copy helpers.
func (s *Space) Allocator() *frame.Allocator { return s.alloc }

// PageTable exposes the underlying page table, for callers that need
// to read this space's translations directly.
func (s *Space) PageTable() *pagetable.Table { return s.pt }
