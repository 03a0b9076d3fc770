//go:build riscv64

package riscv

// WriteSatp installs token into the satp CSR, switching the active page
// table. Implemented in mmu_riscv64.s; not part of this design per §1 —
// the trampoline/entry assembly is an external collaborator, and a bare
// CSR write is the smallest possible extension of that same contract.
func WriteSatp(token uint64)

// ReadSatp reads the current satp CSR value.
func ReadSatp() uint64

// SfenceVMA issues a full TLB flush (sfence.vma with no operands).
func SfenceVMA()
