// Package riscv collects the Sv39/RISC-V constants, register names, and
// fault causes shared by the memory, task, and trap subsystems. Nothing
// here owns state; it is the vocabulary the rest of the kernel speaks.
package riscv

// Page geometry.
const (
	PageSizeBits = 12
	PageSize     = 1 << PageSizeBits
	PageMask     = PageSize - 1

	// VpnSegBits is the width of each of the three Sv39 VPN segments.
	VpnSegBits = 9
	VpnSegMask = (1 << VpnSegBits) - 1

	// PpnBits is the width of the PPN field packed into a PTE.
	PpnBits  = 44
	PteWidth = 8 // bytes per page table entry
)

// Address-space layout. TRAMPOLINE sits at the top of the 39-bit virtual
// address space; TRAP_CONTEXT is the page immediately below it. Both are
// fixed so that the assembled trampoline (see internal/trampoline) can be
// identity-mapped at the same VA in every address space.
const (
	maxVa       = uint64(1) << 39
	Trampoline  = maxVa - PageSize
	TrapContext = Trampoline - PageSize

	UserStackSize   = 2 * PageSize
	KernelStackSize = 2 * PageSize

	KernelHeapSize = 3 * 1024 * 1024

	// TimerTickInterval is the number of `time` CSR ticks between
	// successive supervisor-timer interrupts, the preemption grain
	// mentioned in §4.7. The value is arbitrary (this core does not
	// model real wall-clock frequency); what matters is that every tick
	// advances the deadline by the same amount.
	TimerTickInterval = 12500

	// MemoryEnd bounds the physical memory under kernel control. Chosen
	// to match the source kernel's QEMU virt-machine configuration
	// (128 MiB of RAM starting at 0x8000_0000).
	MemoryEnd = 0x80000000 + 128*1024*1024
)

// PTE flag bits (bits 0..7 of a page table entry), per the Sv39 format.
// Grounded on tinyrange-cc's internal/hv/riscv/rv64/mmu.go PteV..PteD
// constants, which implement the same encoding for a RISC-V emulator.
const (
	PteV = 1 << 0 // valid
	PteR = 1 << 1 // readable
	PteW = 1 << 2 // writable
	PteX = 1 << 3 // executable
	PteU = 1 << 4 // user-accessible
	PteG = 1 << 5 // global
	PteA = 1 << 6 // accessed
	PteD = 1 << 7 // dirty
)

// SATP encoding: mode in bits 60..63, root PPN in bits 0..43.
const (
	SatpModeSv39 = 8
	satpModeShift = 60
)

// SstatusSPP is the Previous Privilege bit of sstatus: 0 means the
// trap that last entered supervisor mode came from user mode, so a
// subsequent sret drops back to user mode (§3 trap context, §4.5
// TCB::new).
const SstatusSPP = 1 << 8

// Trap causes (scause values), the subset the trap handler dispatches on.
// Interrupt causes have the top bit set; exception causes do not. Names and
// numeric values follow tinyrange-cc's internal/hv/riscv/rv64/cpu.go, which
// implements the same RISC-V privileged-spec encoding for its emulator.
const (
	CauseInsnAddrMisaligned  = 0
	CauseInsnAccessFault     = 1
	CauseIllegalInsn         = 2
	CauseBreakpoint          = 3
	CauseLoadAddrMisaligned  = 4
	CauseLoadAccessFault     = 5
	CauseStoreAddrMisaligned = 6
	CauseStoreAccessFault    = 7
	CauseEcallFromU          = 8
	CauseEcallFromS          = 9
	CauseInsnPageFault       = 12
	CauseLoadPageFault       = 13
	CauseStorePageFault      = 15

	interruptBit  = uint64(1) << 63
	CauseSTimerInt = interruptBit | 5
)

// Syscall numbers, stable across the embedded user programs (§6).
const (
	SysExec    = 221
	SysExit    = 93
	SysYield   = 124
	SysGetpid  = 172
	SysFork    = 220
	SysWaitpid = 260

	SysGetTime    = 169
	SysTaskInfo   = 410
	SysSetPriority = 140
	SysMmap       = 222
	SysMunmap     = 215
	SysSpawn      = 400
)
