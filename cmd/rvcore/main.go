// Command rvcore is the kernel image's entry point: it wires the
// memory, task, and trap components built in internal/ into a runnable
// boot sequence (§8 scenario 1 — "boot, load init, run to idle").
//
// The source kernel's rust_main starts in a freestanding, no_std binary
// reached directly from an assembled entry.asm, with clear_bss as its
// first step. Neither applies to a hosted Go binary: the Go runtime has
// already run package init() (including appdata's //go:embed
// registrations) by the time main starts, and Go zero-initializes every
// package-level variable itself, so there is no bss to clear by hand.
// Everything from "init the frame allocator" onward has a direct
// counterpart below.
package main

import (
	"rvcore/internal/addrspace"
	"rvcore/internal/appdata"
	"rvcore/internal/frame"
	"rvcore/internal/heap"
	"rvcore/internal/klog"
	"rvcore/internal/pidalloc"
	"rvcore/internal/riscv"
	"rvcore/internal/sbi"
	"rvcore/internal/task"
	"rvcore/internal/trampoline"
	"rvcore/internal/trap"
)

// kernelLayout describes a tiny synthetic kernel image for boot on a
// host binary: there is no real linker script here, so the boundary
// symbols NewKernelSpace wants are given small, non-overlapping,
// page-aligned ranges below riscv.MemoryEnd instead of being resolved
// by an actual linker. A real embedded boot replaces this with the
// linker-supplied symbols (see addrspace.LinkerLayout's doc comment).
var kernelLayout = addrspace.LinkerLayout{
	Stext: 0x80000000, Etext: 0x80001000,
	Srodata: 0x80001000, Erodata: 0x80002000,
	Sdata: 0x80002000, Edata: 0x80003000,
	SbssWithStack: 0x80003000, Ebss: 0x80004000,
	Ekernel: 0x80004000,
}

// initProcName is the application registered as PID 0, mirroring the
// source kernel's ch5b_initproc.
const initProcName = "initproc"

// trapHandlerPlaceholder stands in for the kernel trap entry address a
// real assembled __alltraps/__restore sequence would jump to; see
// trampoline.Install's call site below.
const trapHandlerPlaceholder = 0

func main() {
	klog.Banner()

	// Scratch allocations the kernel makes before any address space
	// exists — staging the init ELF image read out of the appdata
	// table is exactly the off-page-granularity use internal/heap's
	// package doc describes.
	scratch := heap.New(riscv.KernelHeapSize)
	elfData, ok := appdata.GetAppDataByName(initProcName)
	if !ok {
		klog.Panicf("rvcore: no embedded application named %q", initProcName)
	}
	staged := scratch.MustAlloc(len(elfData))
	copy(staged, elfData)

	frames := frame.New(riscv.PhysAddr(kernelLayout.Ekernel).Ceil(), riscv.PhysAddr(riscv.MemoryEnd).Floor())

	// The assembled trampoline/__restore sequence and the kernel trap
	// entry it jumps to are both outside this design's scope (§1); a
	// real boot links them in and calls Install with their real
	// addresses. Here we only need a physical page reserved for the
	// trampoline so every address space can identity-map it.
	trampoline.Install(frames.Alloc().PPN(), 0, trapHandlerPlaceholder)

	kernelSpace := addrspace.NewKernelSpace(kernelLayout, frames)
	kernelSpace.Activate()

	pids := pidalloc.New()
	sched := task.NewScheduler()
	kernel := &trap.Kernel{
		Frames:      frames,
		KernelSpace: kernelSpace,
		Pids:        pids,
		Scheduler:   sched,
	}

	init := task.New(staged, frames, kernelSpace, pids)
	sched.SetInitTask(init)
	sched.Enqueue(init)
	klog.Note("initproc registered as pid %d", init.PID())

	sbi.SetTimer(riscv.ReadTime() + riscv.TimerTickInterval)

	runUntilIdle(kernel)
}

// runUntilIdle drives the scheduler's Dispatch/Suspend protocol
// (§4.6), standing in for the source kernel's run_tasks idle loop. On
// a host binary there is no real user-mode execution to resume into —
// Dispatch/Suspend only move bookkeeping, so this loop terminates as
// soon as the ready queue is empty rather than blocking forever waiting
// for real hardware traps.
func runUntilIdle(k *trap.Kernel) {
	for k.Scheduler.Dispatch() {
		k.Scheduler.Suspend()
	}
	klog.Note("idle: ready queue empty, no runnable tasks remain")
}
