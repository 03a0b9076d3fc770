package trap

import (
	"testing"

	"rvcore/internal/addrspace"
	"rvcore/internal/appdata"
	"rvcore/internal/frame"
	"rvcore/internal/pidalloc"
	"rvcore/internal/riscv"
	"rvcore/internal/task"
	"rvcore/internal/trampoline"
)

func newTestKernel(t *testing.T) (*Kernel, *frame.Allocator) {
	t.Helper()
	alloc := frame.New(0, 16384)
	t.Cleanup(alloc.Close)
	trampoline.Install(alloc.Alloc().PPN(), 0x40, 0xdeadbeef)
	kernelSpace := addrspace.NewBare(alloc)
	kernelSpace.MapTrampoline()

	return &Kernel{
		Frames:      alloc,
		KernelSpace: kernelSpace,
		Pids:        pidalloc.New(),
		Scheduler:   task.NewScheduler(),
	}, alloc
}

func buildSyntheticELF(t *testing.T, vaddr uint64, content []byte, memsz, entry uint64) []byte {
	t.Helper()
	const ehSize, phSize = 64, 56
	buf := make([]byte, ehSize+phSize+len(content))
	copy(buf[0:4], []byte{0x7F, 'E', 'L', 'F'})
	buf[4], buf[5], buf[6] = 2, 1, 1

	le := func(b []byte, v uint64) {
		for i := range b {
			b[i] = byte(v >> (8 * i))
		}
	}
	le16 := func(off int, v uint16) { le(buf[off:off+2], uint64(v)) }
	le32 := func(off int, v uint32) { le(buf[off:off+4], uint64(v)) }
	le64 := func(off int, v uint64) { le(buf[off:off+8], v) }

	le16(16, 2)
	le16(18, 0xF3)
	le32(20, 1)
	le64(24, entry)
	le64(32, ehSize)
	le16(52, ehSize)
	le16(54, phSize)
	le16(56, 1)

	le32(ehSize+0, 1)
	le32(ehSize+4, 0x7)
	le64(ehSize+8, ehSize+phSize)
	le64(ehSize+16, vaddr)
	le64(ehSize+24, vaddr)
	le64(ehSize+32, uint64(len(content)))
	le64(ehSize+40, memsz)
	le64(ehSize+48, riscv.PageSize)

	copy(buf[ehSize+phSize:], content)
	return buf
}

func newTestELF(t *testing.T) []byte {
	t.Helper()
	return buildSyntheticELF(t, 0x1000, []byte("init"), riscv.PageSize*2, 0x1000)
}

func TestSyscallGetpidAndYield(t *testing.T) {
	k, alloc := newTestKernel(t)
	proc := task.New(newTestELF(t), alloc, k.KernelSpace, k.Pids)
	k.Scheduler.Enqueue(proc)
	k.Scheduler.Dispatch()

	if got := k.Syscall(proc, riscv.SysGetpid, [3]uint64{}); got != int64(proc.PID()) {
		t.Fatalf("getpid = %d, want %d", got, proc.PID())
	}

	k.Syscall(proc, riscv.SysYield, [3]uint64{})
	if k.Scheduler.Current() != nil {
		t.Fatal("expected yield to clear the current slot")
	}
	if proc.Status() != task.Ready {
		t.Fatalf("status after yield = %v, want Ready", proc.Status())
	}
}

func TestSyscallForkChildReturnsZero(t *testing.T) {
	k, alloc := newTestKernel(t)
	parent := task.New(newTestELF(t), alloc, k.KernelSpace, k.Pids)
	k.Scheduler.Enqueue(parent)
	k.Scheduler.Dispatch()

	childPID := k.Syscall(parent, riscv.SysFork, [3]uint64{})
	if childPID <= int64(parent.PID()) {
		t.Fatalf("expected a fresh larger pid, got %d (parent %d)", childPID, parent.PID())
	}

	var child *task.TCB
	for _, c := range parent.Children() {
		if int64(c.PID()) == childPID {
			child = c
		}
	}
	if child == nil {
		t.Fatal("expected forked child among parent's children")
	}
	if child.TrapContext(alloc).X[10] != 0 {
		t.Fatal("expected child's x[10] to be zeroed by sys_fork")
	}
}

func TestSyscallExecMissingAppReturnsNegativeOne(t *testing.T) {
	k, alloc := newTestKernel(t)
	proc := task.New(newTestELF(t), alloc, k.KernelSpace, k.Pids)
	k.Scheduler.Enqueue(proc)
	k.Scheduler.Dispatch()

	// Write the path string "nope\0" into the process's first LOAD
	// page, then point a0 at it.
	uva := uint64(0x1000) // first LOAD page, safely mapped
	if !CopyOut(proc.Space(), uva, []byte("nope\x00")) {
		t.Fatal("setup: failed to stage path string")
	}

	ret := k.Syscall(proc, riscv.SysExec, [3]uint64{uva, 0, 0})
	if ret != -1 {
		t.Fatalf("exec of unregistered app = %d, want -1", ret)
	}
}

func TestSyscallExecFoundAppReplacesAddressSpace(t *testing.T) {
	k, alloc := newTestKernel(t)
	proc := task.New(newTestELF(t), alloc, k.KernelSpace, k.Pids)
	k.Scheduler.Enqueue(proc)
	k.Scheduler.Dispatch()

	appdata.Register("ch5b_user_shell", buildSyntheticELF(t, 0x2000, []byte("shell"), riscv.PageSize*2, 0x2000))
	oldSpace := proc.Space()

	uva := uint64(0x1000)
	if !CopyOut(proc.Space(), uva, []byte("ch5b_user_shell\x00")) {
		t.Fatal("setup: failed to stage path string")
	}

	ret := k.Syscall(proc, riscv.SysExec, [3]uint64{uva, 0, 0})
	if ret != 0 {
		t.Fatalf("exec of registered app = %d, want 0", ret)
	}
	if proc.Space() == oldSpace {
		t.Fatal("expected exec to install a new address space")
	}
	if proc.TrapContext(alloc).Sepc != 0x2000 {
		t.Fatalf("sepc after exec = %#x, want %#x", proc.TrapContext(alloc).Sepc, 0x2000)
	}
}

func TestSyscallWaitpidWritesExitCodeAndReaps(t *testing.T) {
	k, alloc := newTestKernel(t)
	init := task.New(newTestELF(t), alloc, k.KernelSpace, k.Pids)
	k.Scheduler.SetInitTask(init)
	k.Scheduler.Enqueue(init)
	k.Scheduler.Dispatch()

	childPID := k.Syscall(init, riscv.SysFork, [3]uint64{})
	var child *task.TCB
	for _, c := range init.Children() {
		if int64(c.PID()) == childPID {
			child = c
		}
	}
	if child == nil {
		t.Fatal("expected forked child")
	}

	// sys_fork already enqueued the child.
	k.Scheduler.Suspend() // park init so child can be dispatched
	k.Scheduler.Dispatch()
	k.Syscall(child, riscv.SysExit, [3]uint64{7})

	// Resume init to reap.
	k.Scheduler.Enqueue(init)
	k.Scheduler.Dispatch()

	outUVA := uint64(0x1ff8) // still within init's first LOAD page
	result := k.Syscall(init, riscv.SysWaitpid, [3]uint64{uint64(int64(childPID)), outUVA})
	if result != childPID {
		t.Fatalf("waitpid result = %d, want %d", result, childPID)
	}

	var buf [4]byte
	if !CopyIn(init.Space(), outUVA, buf[:]) {
		t.Fatal("failed to read back exit code")
	}
	got := int32(buf[0]) | int32(buf[1])<<8 | int32(buf[2])<<16 | int32(buf[3])<<24
	if got != 7 {
		t.Fatalf("exit code written = %d, want 7", got)
	}
}

func TestSyscallStubsReturnNegativeOne(t *testing.T) {
	k, alloc := newTestKernel(t)
	proc := task.New(newTestELF(t), alloc, k.KernelSpace, k.Pids)
	k.Scheduler.Enqueue(proc)
	k.Scheduler.Dispatch()

	for _, num := range []uint64{riscv.SysGetTime, riscv.SysTaskInfo, riscv.SysSetPriority, riscv.SysMmap, riscv.SysMunmap, riscv.SysSpawn} {
		if got := k.Syscall(proc, num, [3]uint64{}); got != -1 {
			t.Fatalf("syscall %d = %d, want -1", num, got)
		}
	}
}

func TestHandleTimerInterruptPreemptsAndReenqueues(t *testing.T) {
	k, alloc := newTestKernel(t)
	proc := task.New(newTestELF(t), alloc, k.KernelSpace, k.Pids)
	k.Scheduler.Enqueue(proc)
	k.Scheduler.Dispatch()

	k.Handle(proc, riscv.CauseSTimerInt, 0, nil)

	if k.Scheduler.Current() != nil {
		t.Fatal("expected timer interrupt to suspend the current task")
	}
	if proc.Status() != task.Ready {
		t.Fatalf("status after preemption = %v, want Ready", proc.Status())
	}
}

func TestHandlePageFaultExitsWithNegativeTwo(t *testing.T) {
	k, alloc := newTestKernel(t)
	proc := task.New(newTestELF(t), alloc, k.KernelSpace, k.Pids)
	k.Scheduler.Enqueue(proc)
	k.Scheduler.Dispatch()

	k.Handle(proc, riscv.CauseStorePageFault, 0x0, nil)

	if proc.Status() != task.Zombie {
		t.Fatal("expected faulting task to become Zombie")
	}
	if proc.ExitCode() != -2 {
		t.Fatalf("exit code = %d, want -2", proc.ExitCode())
	}
}

func TestHandleIllegalInstructionExitsWithNegativeThree(t *testing.T) {
	k, alloc := newTestKernel(t)
	proc := task.New(newTestELF(t), alloc, k.KernelSpace, k.Pids)
	k.Scheduler.Enqueue(proc)
	k.Scheduler.Dispatch()

	k.Handle(proc, riscv.CauseIllegalInsn, 0, nil)

	if proc.ExitCode() != -3 {
		t.Fatalf("exit code = %d, want -3", proc.ExitCode())
	}
}
