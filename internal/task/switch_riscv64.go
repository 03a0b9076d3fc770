//go:build riscv64

package task

// contextSwitch saves ra, sp, and the callee-saved registers
// (s0..s11) of the outgoing task into current, loads the same set from
// next, and returns — which, because ra now holds whatever next last
// set it to, resumes next at wherever it last suspended rather than
// returning to this call site (§4.6). Implemented in
// switch_riscv64.s; not part of this design per §1 in the same sense
// as the satp CSR helpers in internal/riscv — a bare register-pivot
// routine is the smallest possible extension of the trampoline
// contract this package depends on but does not define.
func contextSwitch(current, next *TaskContext)
