// Package pagetable implements C3: three-level Sv39 page tables —
// map/unmap/translate over PTEs whose PPN occupies bits 10..54 and whose
// low 8 bits are the V/R/W/X/U/G/A/D flags (§3, §4.2). Grounded on
// tinyrange-cc's internal/hv/riscv/rv64/mmu.go for the bit layout and
// walk shape, and on biscuit's mem/mem.go (Pa_t, Pmap_t naming, raw
// unsafe-pointer access into page-sized byte buffers) for the low-level
// idiom.
package pagetable

import (
	"unsafe"

	"rvcore/internal/riscv"
)

// PTE is a single 64-bit Sv39 page table entry. The all-zero value is
// "empty" (V=0), per §3.
type PTE uint64

const ppnShift = 10
const ppnMask = (uint64(1) << riscv.PpnBits) - 1
const flagMask = 0xff

// NewPTE packs a physical page number and flag bits into a PTE.
func NewPTE(ppn riscv.PhysPageNum, flags uint64) PTE {
	return PTE((uint64(ppn) << ppnShift) | (flags & flagMask))
}

// PPN extracts the physical page number field.
func (p PTE) PPN() riscv.PhysPageNum { return riscv.PhysPageNum((uint64(p) >> ppnShift) & ppnMask) }

// Flags extracts the low 8 flag bits.
func (p PTE) Flags() uint64 { return uint64(p) & flagMask }

// Valid reports whether the V bit is set.
func (p PTE) Valid() bool { return uint64(p)&riscv.PteV != 0 }

// Readable, Writable, Executable, and UserAccessible report the
// corresponding permission bits.
func (p PTE) Readable() bool      { return uint64(p)&riscv.PteR != 0 }
func (p PTE) Writable() bool      { return uint64(p)&riscv.PteW != 0 }
func (p PTE) Executable() bool    { return uint64(p)&riscv.PteX != 0 }
func (p PTE) UserAccessible() bool { return uint64(p)&riscv.PteU != 0 }

// ptrAt returns a pointer to the PTE-sized slot at index idx within a
// directory page's raw bytes. Directory pages are always exactly
// riscv.PageSize bytes (one physical frame), so idx is always in range
// for a valid Sv39 index (0..511).
func ptrAt(dir []byte, idx uint64) *PTE {
	off := idx * riscv.PteWidth
	return (*PTE)(unsafe.Pointer(&dir[off]))
}
