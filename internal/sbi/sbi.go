// Package sbi is the supervisor-binary-interface firmware collaborator
// (§1, §6): console I/O and timer programming. Its behavioral contract
// is all the kernel core depends on — the actual firmware calls
// (ecall into M-mode) are platform plumbing outside this design,
// exactly as stated in spec §1's "out of scope" list.
//
// Grounded on gopher-os's kernel/hal package: a hardware-abstraction
// interface with a swappable backend, rather than a hand-rolled global
// function table. tinyrange-cc's internal/hv/riscv/rv64/sbi.go supplies
// the call shape (console putchar, set-timer) this interface mirrors.
package sbi

// Firmware is the subset of the SBI surface the kernel core calls
// through. A real platform backend issues `ecall` with the SBI
// extension/function ids in a0/a1/a7; that assembly is outside this
// design (§1) and is supplied by whatever concrete Firmware
// implementation is linked in.
type Firmware interface {
	// ConsolePutChar writes a single byte to the platform console.
	ConsolePutChar(c byte)
	// ConsoleGetChar reads a single byte from the platform console, or
	// -1 if none is available.
	ConsoleGetChar() int
	// SetTimer programs the next supervisor-timer interrupt for
	// absolute cycle count deadline.
	SetTimer(deadline uint64)
	// Shutdown powers the platform off (used when init's descendants
	// have all exited).
	Shutdown()
}

var active Firmware = noopFirmware{}

// Install sets the active firmware backend. Called once during boot.
func Install(f Firmware) { active = f }

// ConsolePutChar writes a byte through the active firmware.
func ConsolePutChar(c byte) { active.ConsolePutChar(c) }

// ConsoleGetChar reads a byte through the active firmware.
func ConsoleGetChar() int { return active.ConsoleGetChar() }

// SetTimer programs the next timer interrupt through the active firmware.
func SetTimer(deadline uint64) { active.SetTimer(deadline) }

// Shutdown powers the platform off through the active firmware.
func Shutdown() { active.Shutdown() }

// noopFirmware is installed before boot wires up a real backend; it
// exists so package-level calls never nil-panic before Install runs.
type noopFirmware struct{}

func (noopFirmware) ConsolePutChar(byte)     {}
func (noopFirmware) ConsoleGetChar() int     { return -1 }
func (noopFirmware) SetTimer(uint64)         {}
func (noopFirmware) Shutdown()               {}
