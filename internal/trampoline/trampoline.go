// Package trampoline models the external-collaborator surface spec §1
// names explicitly: "the assembled entry/trap trampolines (their
// behavioral contracts are specified where the core depends on them,
// but they are not part of this design)". The rest of the kernel only
// ever needs three facts about the trampoline: the physical page it
// occupies (so it can be identity-mapped at the same VA in every
// address space, §4.3), the offset of __restore within it (so
// trap_return can compute a jump target, §4.7), and the kernel-side
// trap handler entry address written into every trap context (§3). This
// package exposes exactly those three, set once at boot by whatever
// links in the real assembled trampoline; the assembly itself is out of
// this design's scope.
package trampoline

import "rvcore/internal/riscv"

var (
	ppn                    riscv.PhysPageNum
	restoreOffset          uint64
	kernelTrapHandlerEntry uintptr
)

// Install records the trampoline's physical page, the byte offset of
// __restore within it, and the kernel trap handler's entry address.
// Called once during boot, after the assembled trampoline (and the
// high-level trap handler it calls into) are linked in.
func Install(p riscv.PhysPageNum, restoreOff uint64, trapHandlerEntry uintptr) {
	ppn = p
	restoreOffset = restoreOff
	kernelTrapHandlerEntry = trapHandlerEntry
}

// PPN returns the trampoline's physical page number.
func PPN() riscv.PhysPageNum { return ppn }

// RestoreJumpTarget returns the virtual address trap_return must jump
// to in order to reach __restore, given that the trampoline is mapped
// at riscv.Trampoline in every address space (§4.7).
func RestoreJumpTarget() uintptr {
	return uintptr(riscv.Trampoline) + uintptr(restoreOffset)
}

// KernelTrapHandlerEntry returns the address written into a fresh trap
// context's trap_handler field (§3).
func KernelTrapHandlerEntry() uintptr { return kernelTrapHandlerEntry }
