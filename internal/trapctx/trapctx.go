// Package trapctx defines the trap context record every user address
// space keeps at a fixed virtual address, TRAP_CONTEXT (§3): the
// struct the trampoline saves into and restores from across a
// privilege switch, that internal/task writes once at task
// creation/exec/fork, and that internal/trap reads and rewrites on
// every syscall dispatch. Grounded on biscuit's vm/userbuf.go for the
// "overlay a typed record onto a page-sized byte slice via an unsafe
// pointer cast" technique already used by internal/pagetable's PTE.
package trapctx

import (
	"unsafe"

	"rvcore/internal/riscv"
)

// TrapContext is the on-page layout of the trap context record (§3):
// 32 general-purpose registers (x[2] is sp, x[10..12] are a0..a2, x17
// is a7), supervisor status, saved program counter, and the three
// kernel-side fields written once at task creation and preserved
// across every trap.
type TrapContext struct {
	X           [32]uint64
	Sstatus     uint64
	Sepc        uint64
	KernelSatp  uint64
	KernelSP    uint64
	TrapHandler uint64
}

// At overlays a TrapContext onto the page-sized byte slice backing the
// frame a trap-context region maps a VPN to.
func At(frameBytes []byte) *TrapContext {
	return (*TrapContext)(unsafe.Pointer(&frameBytes[0]))
}

// InitUserEntry fills a freshly zeroed trap context with the fields
// §4.5's TCB::new/TCB::exec specify: the user stack pointer in x[2],
// the ELF entry point in sepc, and the three kernel-side bookkeeping
// fields that let the trampoline find its way back into the kernel on
// the next trap. sstatus is written with SPP cleared so the eventual
// sret lands in user mode.
func (tc *TrapContext) InitUserEntry(entry, userSP, kernelSatp, kernelSP, trapHandler uint64) {
	*tc = TrapContext{}
	tc.X[2] = userSP
	tc.Sepc = entry
	tc.KernelSatp = kernelSatp
	tc.KernelSP = kernelSP
	tc.TrapHandler = trapHandler
	tc.Sstatus &^= riscv.SstatusSPP
}
