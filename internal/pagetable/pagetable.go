package pagetable

import (
	"rvcore/internal/frame"
	"rvcore/internal/klog"
	"rvcore/internal/riscv"
)

// Table is a single Sv39 page table. It owns the frames holding its own
// directory pages (not leaf-mapped data frames, which are owned by the
// logical region that mapped them — §4.2, §9 "Ownership of frames
// versus directory frames"). A Table constructed via FromToken is a
// non-owning view used to read another address space's mappings.
type Table struct {
	root   riscv.PhysPageNum
	alloc  *frame.Allocator
	owned  []*frame.Frame // directory frames this table owns; nil for a view
	owning bool
}

// New allocates a fresh root directory frame and returns an owning
// table over it.
func New(alloc *frame.Allocator) *Table {
	f := alloc.Alloc()
	if f == nil {
		klog.Panicf("pagetable: out of frames allocating root directory")
	}
	return &Table{root: f.PPN(), alloc: alloc, owned: []*frame.Frame{f}, owning: true}
}

// FromToken constructs a non-owning view of the page table whose root
// PPN is encoded in an satp-style token, for reading another address
// space's mappings (e.g. a cross-address-space user-memory copy).
func FromToken(token uint64, alloc *frame.Allocator) *Table {
	root := riscv.PhysPageNum(token & ((uint64(1) << 44) - 1))
	return &Table{root: root, alloc: alloc, owning: false}
}

// Token returns the Sv39-encoded satp value for this table's root.
func (t *Table) Token() uint64 {
	return (uint64(riscv.SatpModeSv39) << 60) | uint64(t.root)
}

// Root returns the root directory's physical page number.
func (t *Table) Root() riscv.PhysPageNum { return t.root }

// walk descends the three Sv39 levels for vpn, returning a pointer to
// the leaf PTE slot. If create is true, missing intermediate
// directories are allocated along the way (with V set and no RWX, per
// §4.2); if create is false, walk returns nil as soon as it hits a
// not-present intermediate entry.
func (t *Table) walk(vpn riscv.VirtPageNum, create bool) *PTE {
	idxs := vpn.Indexes()
	ppn := t.root
	for level := 0; level < 2; level++ {
		dir := t.alloc.Bytes(ppn)
		slot := ptrAt(dir, idxs[level])
		if !slot.Valid() {
			if !create {
				return nil
			}
			nf := t.alloc.Alloc()
			if nf == nil {
				klog.Panicf("pagetable: out of frames allocating directory")
			}
			t.owned = append(t.owned, nf)
			*slot = NewPTE(nf.PPN(), riscv.PteV)
			ppn = nf.PPN()
		} else {
			ppn = slot.PPN()
		}
	}
	dir := t.alloc.Bytes(ppn)
	return ptrAt(dir, idxs[2])
}

// Map installs vpn -> ppn with the given flags, creating intermediate
// directories as needed. Fatal if the leaf PTE is already valid (§4.2).
func (t *Table) Map(vpn riscv.VirtPageNum, ppn riscv.PhysPageNum, flags uint64) {
	slot := t.walk(vpn, true)
	if slot.Valid() {
		klog.Panicf("pagetable: vpn %#x already mapped", uint64(vpn))
	}
	*slot = NewPTE(ppn, flags|riscv.PteV)
}

// Unmap clears the leaf PTE for vpn. Fatal if it is not currently valid
// (§4.2). Intermediate directories are left in place, per spec.
func (t *Table) Unmap(vpn riscv.VirtPageNum) {
	slot := t.walk(vpn, false)
	if slot == nil || !slot.Valid() {
		klog.Panicf("pagetable: unmap of unmapped vpn %#x", uint64(vpn))
	}
	*slot = 0
}

// Translate performs a non-creating walk and returns the leaf PTE, or
// ok=false if any directory along the path is not present (§4.2).
func (t *Table) Translate(vpn riscv.VirtPageNum) (pte PTE, ok bool) {
	slot := t.walk(vpn, false)
	if slot == nil || !slot.Valid() {
		return 0, false
	}
	return *slot, true
}

// Release frees every directory frame this table owns. A no-op on a
// non-owning FromToken view. Leaf-mapped data frames are not touched —
// those belong to logical regions and must be released by the caller
// (the address space) before Release is called, per §9's teardown
// ordering note.
func (t *Table) Release() {
	if !t.owning {
		return
	}
	for _, f := range t.owned {
		f.Free()
	}
	t.owned = nil
}
