//go:build riscv64

package riscv

// ReadTime reads the unprivileged `time` CSR, the free-running cycle
// counter the SBI timer contract and the preemption tick are both
// measured against. Implemented in time_riscv64.s, in the same spirit
// as WriteSatp/ReadSatp/SfenceVMA: the smallest possible extension of
// the external SBI/trampoline contract (§1), not part of this design.
func ReadTime() uint64
