package addrspace

import (
	"bytes"
	"debug/elf"
	"io"

	"rvcore/internal/frame"
	"rvcore/internal/klog"
	"rvcore/internal/riscv"
)

// elfMagic is the four-byte ELF identification prefix (§4.3 step 1).
var elfMagic = [4]byte{0x7F, 'E', 'L', 'F'}

// FromELF builds a fresh user address space from an embedded ELF image,
// per §4.3's from_elf: parse the header (fatal on bad magic), map one
// Framed region per PT_LOAD segment with permissions derived from
// PF_R/W/X | U, place a guarded user stack one page above the highest
// loaded VPN, and map the trap-context page. Returns the space, the top
// of the user stack, and the ELF entry point.
//
// Grounded on biscuit's kernel/chentry.go, which already uses Go's
// debug/elf package to inspect and rewrite an ELF header — the same
// standard package is the idiomatic Go counterpart to the source
// kernel's hand-rolled xmas_elf parsing.
func FromELF(data []byte, alloc *frame.Allocator) (space *Space, userSP uint64, entry uint64) {
	if len(data) < 4 || data[0] != elfMagic[0] || data[1] != elfMagic[1] || data[2] != elfMagic[2] || data[3] != elfMagic[3] {
		klog.Panicf("addrspace: bad ELF magic")
	}
	ef, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		klog.Panicf("addrspace: malformed ELF: %v", err)
	}

	space = NewBare(alloc)
	space.MapTrampoline()

	var maxEnd riscv.VirtPageNum
	for _, ph := range ef.Progs {
		if ph.Type != elf.PT_LOAD {
			continue
		}
		start := riscv.VirtAddr(ph.Vaddr).Floor()
		end := riscv.VirtAddr(ph.Vaddr + ph.Memsz).Ceil()

		perm := uint64(riscv.PteU)
		if ph.Flags&elf.PF_R != 0 {
			perm |= riscv.PteR
		}
		if ph.Flags&elf.PF_W != 0 {
			perm |= riscv.PteW
		}
		if ph.Flags&elf.PF_X != 0 {
			perm |= riscv.PteX
		}

		region := NewFramedRegion(start, end, perm)
		segData := make([]byte, int(ph.Filesz))
		if ph.Filesz > 0 {
			if _, err := io.ReadFull(ph.Open(), segData); err != nil {
				klog.Panicf("addrspace: reading PT_LOAD segment: %v", err)
			}
		}
		space.Push(region, segData)

		if end > maxEnd {
			maxEnd = end
		}
	}

	// One guard page of unmapped VPNs separates the highest LOAD segment
	// from the user stack (§3, §4.3 step 3).
	stackBottom := riscv.VirtAddr(maxEnd.Addr()) + riscv.PageSize
	stackTop := stackBottom + riscv.UserStackSize
	space.InsertFramedArea(stackBottom, stackTop, riscv.PteR|riscv.PteW|riscv.PteU)
	userSP = uint64(stackTop)

	space.Push(NewFramedRegion(riscv.VirtAddr(riscv.TrapContext).Floor(), riscv.VirtAddr(riscv.Trampoline).Floor(), riscv.PteR|riscv.PteW), nil)

	entry = ef.Entry
	return space, userSP, entry
}
