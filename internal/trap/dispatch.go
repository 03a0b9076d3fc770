package trap

import (
	"encoding/binary"

	"rvcore/internal/addrspace"
	"rvcore/internal/appdata"
	"rvcore/internal/frame"
	"rvcore/internal/klog"
	"rvcore/internal/pidalloc"
	"rvcore/internal/riscv"
	"rvcore/internal/task"
)

// maxPathLen bounds CopyCString reads for exec's path argument; no
// embedded application name in this kernel is anywhere near this long.
const maxPathLen = 256

// Kernel bundles the process-wide singletons the trap handler
// dispatches against (§5): the frame allocator, the kernel address
// space, the PID allocator, and the scheduler. One instance is built
// at boot and threaded through every trap.
type Kernel struct {
	Frames      *frame.Allocator
	KernelSpace *addrspace.Space
	Pids        *pidalloc.Allocator
	Scheduler   *task.Scheduler
}

// Syscall dispatches one syscall for t (which must be the scheduler's
// current task) by number, with args as x[10], x[11], x[12] (§6's
// syscall ABI), and returns the value the trap handler writes back
// into x[10] (§4.7). exit/yield never return to their caller in the
// literal sense — Suspend hands control back to the idle flow — but a
// value is still returned here for dispatch's uniform signature.
func (k *Kernel) Syscall(t *task.TCB, num uint64, args [3]uint64) int64 {
	switch num {
	case riscv.SysExit:
		return k.sysExit(int(int64(args[0])))
	case riscv.SysYield:
		return k.sysYield()
	case riscv.SysGetpid:
		return int64(t.PID())
	case riscv.SysFork:
		return k.sysFork(t)
	case riscv.SysExec:
		return k.sysExec(t, args[0])
	case riscv.SysWaitpid:
		return k.sysWaitpid(t, int(int64(args[0])), args[1])

	case riscv.SysGetTime, riscv.SysTaskInfo, riscv.SysSetPriority, riscv.SysMmap, riscv.SysMunmap, riscv.SysSpawn:
		// TODO: these are skeletons in the source kernel too (§9); their
		// intended semantics are outside this core's scope.
		return -1

	default:
		klog.Panicf("trap: unknown syscall number %d", num)
		return -1
	}
}

func (k *Kernel) sysExit(code int) int64 {
	k.Scheduler.ExitCurrent(code)
	return 0
}

func (k *Kernel) sysYield() int64 {
	k.Scheduler.YieldCurrent()
	return 0
}

func (k *Kernel) sysFork(t *task.TCB) int64 {
	child := t.Fork(k.Frames, k.KernelSpace, k.Pids)
	child.TrapContext(k.Frames).X[10] = 0 // §4.5: the child observes fork() returning 0
	k.Scheduler.Enqueue(child)
	return int64(child.PID())
}

func (k *Kernel) sysExec(t *task.TCB, pathUVA uint64) int64 {
	path, ok := CopyCString(t.Space(), pathUVA, maxPathLen)
	if !ok {
		return int64(riscv.ErrBadElf)
	}
	data, ok := appdata.GetAppDataByName(path)
	if !ok {
		return -1
	}
	t.Exec(data, k.Frames, k.KernelSpace)
	return 0
}

func (k *Kernel) sysWaitpid(t *task.TCB, pid int, outUVA uint64) int64 {
	result, code := t.Waitpid(pid)
	if result < 0 {
		return result
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32(code)))
	if !CopyOut(t.Space(), outUVA, buf[:]) {
		klog.Panicf("trap: waitpid: exit-code pointer %#x is not mapped", outUVA)
	}
	return result
}
