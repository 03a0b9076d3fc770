//go:build !riscv64

package riscv

// Non-riscv64 builds (including `go test` on a development host) get a
// software stand-in for the satp CSR instead of the real register —
// there is no Sv39 MMU to switch on a host architecture. This mirrors
// internal/sbi.Sim: a host-process substitute for a hardware contract
// that is otherwise out of this design's scope (§1).
var simSatp uint64

// WriteSatp installs token into the simulated satp register.
func WriteSatp(token uint64) { simSatp = token }

// ReadSatp reads the simulated satp register.
func ReadSatp() uint64 { return simSatp }

// SfenceVMA is a no-op in simulation; there is no TLB to flush.
func SfenceVMA() {}
