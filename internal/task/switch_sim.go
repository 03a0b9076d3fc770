//go:build !riscv64

package task

// contextSwitch has no real CPU registers to pivot on a host that
// never executes RISC-V user-mode instructions — there is no
// suspended stack behind either TaskContext to save into or resume
// from. It is a deliberate no-op, mirroring internal/riscv's
// mmu_sim.go: the scheduler bookkeeping in scheduler.go (who is
// current, what order the ready queue holds) is what host tests
// exercise, and it does not depend on contextSwitch actually moving
// bytes anywhere.
func contextSwitch(current, next *TaskContext) {}
