package trap

import (
	"golang.org/x/arch/riscv64asm"

	"rvcore/internal/klog"
	"rvcore/internal/riscv"
	"rvcore/internal/sbi"
	"rvcore/internal/task"
	"rvcore/internal/trampoline"
)

// Handle dispatches one trap for t, which must be the scheduler's
// current task, by scause (§4.7). faultInsn, when non-nil, is the raw
// bytes of the instruction at sepc; it only enriches the diagnostic
// printed for a fault and is never required for correct dispatch.
//
// Kernel-mode traps are fatal per §4.7 ("the stvec is rewritten to a
// panicking handler on entry ... and back to the trampoline on
// return"); that stvec bookkeeping is the trampoline's job (§1) and is
// not modeled here — Handle is only ever called for a trap that
// originated in user mode.
func (k *Kernel) Handle(t *task.TCB, cause uint64, stval uint64, faultInsn []byte) {
	tc := t.TrapContext(k.Frames)

	switch cause {
	case riscv.CauseEcallFromU:
		tc.Sepc += 4
		ret := k.Syscall(t, tc.X[17], [3]uint64{tc.X[10], tc.X[11], tc.X[12]})
		// Re-fetch: fork/exec may have rewritten the trap context, so the
		// pointer captured above could now belong to a different frame
		// (§4.7).
		t.TrapContext(k.Frames).X[10] = uint64(ret)

	case riscv.CauseStorePageFault, riscv.CauseLoadPageFault, riscv.CauseInsnPageFault,
		riscv.CauseStoreAccessFault, riscv.CauseLoadAccessFault, riscv.CauseInsnAccessFault,
		riscv.CauseStoreAddrMisaligned, riscv.CauseLoadAddrMisaligned, riscv.CauseInsnAddrMisaligned:
		klog.Warnf("memory fault: cause=%d bad_addr=%#x sepc=%#x%s", cause, stval, tc.Sepc, disassemble(faultInsn))
		k.Scheduler.ExitCurrent(-2)

	case riscv.CauseIllegalInsn:
		klog.Warnf("illegal instruction: sepc=%#x%s", tc.Sepc, disassemble(faultInsn))
		k.Scheduler.ExitCurrent(-3)

	case riscv.CauseSTimerInt:
		sbi.SetTimer(riscv.ReadTime() + riscv.TimerTickInterval)
		k.Scheduler.YieldCurrent()

	default:
		klog.Panicf("trap: unhandled cause %#x", cause)
	}
}

// disassemble best-effort decodes a faulting instruction for the
// diagnostic line printed on a fault (§4.7 "print diagnostic"),
// using golang.org/x/arch/riscv64asm so the printed message names the
// actual opcode (e.g. "sd a1, 0(a0)") rather than just its raw bytes.
// Returns "" if insn is empty or fails to decode — the diagnostic is
// still printed either way, just without the extra detail.
func disassemble(insn []byte) string {
	if len(insn) == 0 {
		return ""
	}
	inst, err := riscv64asm.Decode(insn)
	if err != nil {
		return ""
	}
	return " insn=" + inst.String()
}

// TrapReturnArgs computes the three inputs the assembled trap_return/
// __restore sequence needs to hand control back to user mode (§4.7):
// the virtual address of __restore within the trampoline, TRAP_CONTEXT
// (a0, the argument __restore expects), and the resuming task's
// page-table token (a1). Writing stvec, issuing fence.i, and the
// actual satp switch + sret are the trampoline's job (§1, external
// collaborator) — this only computes the inputs to that jump.
func TrapReturnArgs(t *task.TCB) (restoreTarget uintptr, trapContextVA uint64, userToken uint64) {
	return trampoline.RestoreJumpTarget(), uint64(riscv.TrapContext), t.Token()
}
