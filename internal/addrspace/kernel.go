package addrspace

import "rvcore/internal/frame"
import "rvcore/internal/riscv"

// LinkerLayout carries the boundary symbols the linker script publishes
// for the kernel image (§6): stext/etext, srodata/erodata, sdata/edata,
// sbss_with_stack/ebss, and ekernel. Real boot code obtains these from
// the linker (exposed to Go the same way gopher-os's kernel/cpu package
// exposes hardware primitives: extern declarations resolved by
// assembly/linker, not computed at runtime); tests supply synthetic
// values describing a small synthetic "image".
type LinkerLayout struct {
	Stext, Etext   uintptr
	Srodata, Erodata uintptr
	Sdata, Edata   uintptr
	SbssWithStack, Ebss uintptr
	Ekernel        uintptr
}

// NewKernelSpace builds the kernel address space: identity mappings of
// .text (R+X), .rodata (R), .data (R+W), .bss (R+W), and the remaining
// physical memory up to riscv.MemoryEnd (R+W), plus the trampoline
// mapping (§3). The frame allocator backing alloc is expected to have
// been initialized over [ceil(layout.Ekernel), floor(riscv.MemoryEnd)) —
// this function only installs mappings, it does not itself construct
// the allocator (C2's responsibility).
func NewKernelSpace(layout LinkerLayout, alloc *frame.Allocator) *Space {
	s := NewBare(alloc)
	s.MapTrampoline()

	identity := func(lo, hi uintptr, perm uint64) {
		start := riscv.VirtAddr(lo).Floor()
		end := riscv.VirtAddr(hi).Ceil()
		s.Push(NewIdenticalRegion(start, end, perm), nil)
	}

	identity(layout.Stext, layout.Etext, riscv.PteR|riscv.PteX)
	identity(layout.Srodata, layout.Erodata, riscv.PteR)
	identity(layout.Sdata, layout.Edata, riscv.PteR|riscv.PteW)
	identity(layout.SbssWithStack, layout.Ebss, riscv.PteR|riscv.PteW)
	identity(layout.Ekernel, uintptr(riscv.MemoryEnd), riscv.PteR|riscv.PteW)

	return s
}
