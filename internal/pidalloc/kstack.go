package pidalloc

import (
	"rvcore/internal/addrspace"
	"rvcore/internal/riscv"
)

// StackRange computes the deterministic [bottom, top) virtual range for
// a PID's kernel stack, with a one-page guard gap between adjacent
// stacks (§3): [TRAMPOLINE - pid*(KSTACK+PAGE) - KSTACK, TRAMPOLINE -
// pid*(KSTACK+PAGE)).
func StackRange(pid int) (bottom, top riscv.VirtAddr) {
	top = riscv.VirtAddr(riscv.Trampoline) - riscv.VirtAddr(pid)*(riscv.KernelStackSize+riscv.PageSize)
	bottom = top - riscv.KernelStackSize
	return bottom, top
}

// KernelStack is the owning resource described in §3: constructing it
// eagerly backs (not lazily) a framed R+W region in the kernel address
// space at its PID-derived slot; dropping it removes that region by
// recomputing the same start VPN.
type KernelStack struct {
	pid         int
	kernelSpace *addrspace.Space
	bottom, top riscv.VirtAddr
}

// NewKernelStack inserts the kernel-stack region for pid into
// kernelSpace and returns the owning handle. At most one kernel stack
// may exist per live PID (§3) — callers are responsible for that
// invariant by allocating at most one KernelStack per Pid.
func NewKernelStack(pid int, kernelSpace *addrspace.Space) *KernelStack {
	bottom, top := StackRange(pid)
	kernelSpace.InsertFramedArea(bottom, top, riscv.PteR|riscv.PteW)
	return &KernelStack{pid: pid, kernelSpace: kernelSpace, bottom: bottom, top: top}
}

// Top returns the virtual address one past the end of the stack (the
// initial kernel stack pointer for a freshly created task).
func (k *KernelStack) Top() riscv.VirtAddr { return k.top }

// Release removes this stack's region from the kernel address space.
func (k *KernelStack) Release() {
	k.kernelSpace.RemoveAreaWithStartVpn(k.bottom.Floor())
}
