// Package task implements C6: the task control block, the per-TCB
// interior-mutable state guarded exclusive-access style, and the FIFO
// scheduler (§3, §4.5, §4.6). Grounded on biscuit's accnt package
// (Accnt_t: a reference-counted, mutex-guarded per-process struct) for
// the overall "immutable identity fields plus one guarded inner
// struct" shape, gvisor's pkg/sentry/kernel task_start.go/lifecycle.go
// for the parent/children/reaping bookkeeping, and original_source
// os5/src/task/{task.rs,manager.rs,process.rs} for the exact
// new/exec/fork/exit/waitpid semantics this port preserves.
package task

import (
	"rvcore/internal/addrspace"
	"rvcore/internal/frame"
	"rvcore/internal/guard"
	"rvcore/internal/klog"
	"rvcore/internal/pidalloc"
	"rvcore/internal/riscv"
	"rvcore/internal/trampoline"
	"rvcore/internal/trapctx"
)

// inner is a TCB's mutable (interior) state (§3): everything but the
// PID handle and kernel stack, which are fixed for the TCB's lifetime.
type inner struct {
	trapContextPPN riscv.PhysPageNum
	baseSize       uint64
	ctx            TaskContext
	status         Status
	space          *addrspace.Space

	// parent is a non-owning reference: Go's garbage collector makes a
	// literal Weak<T> unnecessary, but the structural invariant it
	// enforces in the source — a child must never be the reason its
	// parent stays alive — is preserved by never adding a parent to any
	// ownership list; only the children slice below is owning (§3,
	// §4.5, §9 "weak parent links").
	parent   *TCB
	children []*TCB // owning
	exitCode int
}

// TCB is the task control block (§3). PID and kernel stack are
// immutable after construction; everything else lives behind a guard
// cell, borrowed exclusively per access, matching every other
// process-wide singleton in this kernel (internal/guard).
type TCB struct {
	pid    *pidalloc.Pid
	kstack *pidalloc.KernelStack
	cell   *guard.Cell[inner]
}

func resolveTrapContextPPN(space *addrspace.Space) riscv.PhysPageNum {
	pte, ok := space.Translate(riscv.VpnOf(riscv.TrapContext))
	if !ok {
		klog.Panicf("task: trap-context page not mapped in new address space")
	}
	return pte.PPN()
}

func writeTrapContext(alloc *frame.Allocator, ppn riscv.PhysPageNum, entry, userSP, kernelSatp, kernelSP uint64) {
	trapctx.At(alloc.Bytes(ppn)).InitUserEntry(entry, userSP, kernelSatp, kernelSP, uint64(trampoline.KernelTrapHandlerEntry()))
}

// New builds the init process's TCB from an ELF image (§4.5 TCB::new,
// used only for the first task): a fresh address space, a resolved
// trap-context PPN, a freshly allocated PID and kernel stack, status
// Ready, no parent, no children, exit code 0, and a task context that
// will fall straight into the trap-return path on first dispatch.
func New(elfBytes []byte, alloc *frame.Allocator, kernelSpace *addrspace.Space, pids *pidalloc.Allocator) *TCB {
	space, userSP, entry := addrspace.FromELF(elfBytes, alloc)
	trapPPN := resolveTrapContextPPN(space)

	pid := pids.Alloc()
	kstack := pidalloc.NewKernelStack(pid.ID(), kernelSpace)

	writeTrapContext(alloc, trapPPN, entry, userSP, kernelSpace.Token(), uint64(kstack.Top()))

	return &TCB{
		pid:    pid,
		kstack: kstack,
		cell: guard.New(inner{
			trapContextPPN: trapPPN,
			status:         Ready,
			space:          space,
			ctx:            NewTrapReturnContext(uint64(kstack.Top()), uint64(trampoline.RestoreJumpTarget())),
		}),
	}
}

// PID returns this task's numeric process id.
func (t *TCB) PID() int { return t.pid.ID() }

// KernelStackTop returns the initial kernel stack pointer for this
// task, used to seed its task context.
func (t *TCB) KernelStackTop() uint64 { return uint64(t.kstack.Top()) }

// Status returns the task's current lifecycle state.
func (t *TCB) Status() Status {
	return guard.BorrowValue(t.cell, func(in *inner) Status { return in.status })
}

// SetStatus overwrites the task's lifecycle state.
func (t *TCB) SetStatus(s Status) { t.cell.Borrow(func(in *inner) { in.status = s }) }

// Token returns the satp-ready token of this task's current address
// space (exec rewrites which space that is, without changing TCB
// identity — §9).
func (t *TCB) Token() uint64 {
	return guard.BorrowValue(t.cell, func(in *inner) uint64 { return in.space.Token() })
}

// Space returns the task's current address space.
func (t *TCB) Space() *addrspace.Space {
	return guard.BorrowValue(t.cell, func(in *inner) *addrspace.Space { return in.space })
}

// TrapContext resolves and returns the task's current trap context,
// re-fetched from trapContextPPN every call so that a caller which
// dispatched an exec syscall between two reads sees the rebuilt
// context rather than a stale pointer (§4.7's "re-fetch the trap
// context after dispatch").
func (t *TCB) TrapContext(alloc *frame.Allocator) *trapctx.TrapContext {
	ppn := guard.BorrowValue(t.cell, func(in *inner) riscv.PhysPageNum { return in.trapContextPPN })
	return trapctx.At(alloc.Bytes(ppn))
}

// Parent returns the task's parent, or nil for the init process.
func (t *TCB) Parent() *TCB {
	return guard.BorrowValue(t.cell, func(in *inner) *TCB { return in.parent })
}

// Children returns a snapshot of the task's owning children list.
func (t *TCB) Children() []*TCB {
	return guard.BorrowValue(t.cell, func(in *inner) []*TCB {
		return append([]*TCB(nil), in.children...)
	})
}

// ExitCode returns the task's recorded exit code (meaningful only once
// Status is Zombie).
func (t *TCB) ExitCode() int {
	return guard.BorrowValue(t.cell, func(in *inner) int { return in.exitCode })
}

// Exec rebuilds this TCB's address space and trap-context PPN from a
// new ELF image in place (§4.5 TCB::exec): PID, kernel stack,
// parent/children, and task context are untouched — exec never changes
// task identity (§9).
func (t *TCB) Exec(elfBytes []byte, alloc *frame.Allocator, kernelSpace *addrspace.Space) {
	newSpace, userSP, entry := addrspace.FromELF(elfBytes, alloc)
	newTrapPPN := resolveTrapContextPPN(newSpace)
	kernelSP := t.KernelStackTop()

	t.cell.Borrow(func(in *inner) {
		old := in.space
		in.space = newSpace
		in.trapContextPPN = newTrapPPN
		writeTrapContext(alloc, newTrapPPN, entry, userSP, kernelSpace.Token(), kernelSP)
		old.Release()
	})
}

// Fork clones this task's address space via from_existed_user,
// allocates a fresh PID and kernel stack, and produces a child TCB
// whose trap context is an exact bit copy of the parent's except for
// kernel_sp, which is rewritten to the child's own kernel-stack top
// (§4.5 TCB::fork). The child is appended to this task's children
// list; it is the caller's (sys_fork's) responsibility to zero the
// child's x[10] and enqueue it on the scheduler.
func (t *TCB) Fork(alloc *frame.Allocator, kernelSpace *addrspace.Space, pids *pidalloc.Allocator) *TCB {
	var childSpace *addrspace.Space
	var parentTrapPPN riscv.PhysPageNum
	t.cell.Borrow(func(in *inner) {
		childSpace = addrspace.FromExistedUser(in.space)
		parentTrapPPN = in.trapContextPPN
	})

	childTrapPPN := resolveTrapContextPPN(childSpace)
	pid := pids.Alloc()
	kstack := pidalloc.NewKernelStack(pid.ID(), kernelSpace)

	copy(alloc.Bytes(childTrapPPN), alloc.Bytes(parentTrapPPN))
	trapctx.At(alloc.Bytes(childTrapPPN)).KernelSP = uint64(kstack.Top())

	child := &TCB{
		pid:    pid,
		kstack: kstack,
		cell: guard.New(inner{
			trapContextPPN: childTrapPPN,
			status:         Ready,
			space:          childSpace,
			parent:         t,
			ctx:            NewTrapReturnContext(uint64(kstack.Top()), uint64(trampoline.RestoreJumpTarget())),
		}),
	}

	t.cell.Borrow(func(in *inner) { in.children = append(in.children, child) })
	return child
}

// Exit marks this task Zombie, records code, releases its address
// space's data frames (directory frames and the trampoline PTE survive
// until the TCB itself is reaped — §4.3 recycle_data_pages), reparents
// every child to init (swapping their parent reference and moving them
// into init's children list), and clears this task's own children
// list (§4.5 exit). init may be nil only when t is itself the init
// process with no children to reparent.
func (t *TCB) Exit(code int, init *TCB) {
	var children []*TCB
	t.cell.Borrow(func(in *inner) {
		in.status = Zombie
		in.exitCode = code
		children = in.children
		in.children = nil
		in.space.RecycleDataPages()
	})

	if len(children) == 0 {
		return
	}
	if init == nil || init == t {
		klog.Panicf("task: exit of a task with children but no init process to reparent to")
	}
	init.cell.Borrow(func(initIn *inner) {
		for _, c := range children {
			c.cell.Borrow(func(cin *inner) { cin.parent = init })
			initIn.children = append(initIn.children, c)
		}
	})
}

// Waitpid implements §4.5's waitpid(pid, out_code): it does not itself
// write to any user pointer (that cross-address-space copy is
// internal/trap's concern) — it returns the reaped child's PID,
// so the caller can do the copy, or a negative riscv.Err code for no
// match (ErrNoChild) / match-not-yet-zombie (ErrNotReady). Reaping
// drops the child from this task's children list, releases its kernel
// stack and PID, and releases its (by-then data-free) address space.
// waitpid(-1, …) reaps the lowest-indexed Zombie child, per §5's
// ordering guarantee.
func (t *TCB) Waitpid(pid int) (result int64, exitCode int) {
	var anyMatch bool
	var match *TCB
	var idx int

	t.cell.Borrow(func(in *inner) {
		for i, c := range in.children {
			if pid != -1 && c.PID() != pid {
				continue
			}
			anyMatch = true
			if match != nil {
				continue
			}
			if c.Status() == Zombie {
				match = c
				idx = i
			}
		}
	})

	if !anyMatch {
		return int64(riscv.ErrNoChild), 0
	}
	if match == nil {
		return int64(riscv.ErrNotReady), 0
	}

	exitCode = match.ExitCode()
	t.cell.Borrow(func(in *inner) {
		in.children = append(in.children[:idx], in.children[idx+1:]...)
	})

	match.kstack.Release()
	match.pid.Free()
	match.Space().Release()

	return int64(match.PID()), exitCode
}
