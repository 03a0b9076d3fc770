package task

import (
	"rvcore/internal/guard"
	"rvcore/internal/klog"
)

// schedState is the scheduler's guarded inner state: the FIFO ready
// queue, the idle control flow's own task context (the pivot every
// dispatch switches out of and every suspend switches back into), the
// processor's current slot, and a reference to the init process used
// to reparent orphaned children on exit (§3, §4.6).
type schedState struct {
	ready    []*TCB
	idle     TaskContext
	current  *TCB
	initTask *TCB
}

// Scheduler is C6's single ready queue plus the one idle control flow
// this single-hart kernel runs (§3, §4.6). The stride-scheduling
// variant mentioned in §4.6 is explicitly out of scope (§9 open
// question); this is FIFO only.
type Scheduler struct {
	cell *guard.Cell[schedState]
}

// NewScheduler returns an empty scheduler with no current task and no
// init process set yet.
func NewScheduler() *Scheduler {
	return &Scheduler{cell: guard.New(schedState{})}
}

// SetInitTask records the init process, used by ExitCurrent to
// reparent orphaned children. Called once at boot, after the init
// TCB is constructed.
func (s *Scheduler) SetInitTask(t *TCB) {
	s.cell.Borrow(func(st *schedState) { st.initTask = t })
}

// InitTask returns the recorded init process.
func (s *Scheduler) InitTask() *TCB {
	return guard.BorrowValue(s.cell, func(st *schedState) *TCB { return st.initTask })
}

// Enqueue marks t Ready and appends it to the tail of the ready queue.
func (s *Scheduler) Enqueue(t *TCB) {
	t.SetStatus(Ready)
	s.cell.Borrow(func(st *schedState) { st.ready = append(st.ready, t) })
}

// Current returns whichever task currently occupies the processor's
// current slot, or nil if the processor is idle.
func (s *Scheduler) Current() *TCB {
	return guard.BorrowValue(s.cell, func(st *schedState) *TCB { return st.current })
}

func (s *Scheduler) popReady() *TCB {
	return guard.BorrowValue(s.cell, func(st *schedState) *TCB {
		if len(st.ready) == 0 {
			return nil
		}
		t := st.ready[0]
		st.ready = st.ready[1:]
		return t
	})
}

// Dispatch is the idle control flow's one productive step (§4.6): pop
// the head of the ready queue, mark it Running, install it as current,
// and switch from the idle task context into its task context. Returns
// false if the ready queue was empty (nothing to run; the real idle
// loop would spin here waiting for a timer/ready task, which this
// simulation leaves to its caller — see cmd/rvcore). The caller drives
// however many trap events constitute this task's quantum, then calls
// Suspend to hand control back.
func (s *Scheduler) Dispatch() bool {
	next := s.popReady()
	if next == nil {
		return false
	}
	next.SetStatus(Running)
	s.cell.Borrow(func(st *schedState) {
		st.current = next
		next.cell.Borrow(func(in *inner) { contextSwitch(&st.idle, &in.ctx) })
	})
	return true
}

// Suspend switches the current task's context back into the idle
// flow's and clears the current slot (§4.6's other half of the
// idle/task pivot). Callers must have already updated the task's
// status and, if it should run again, re-enqueued it — Suspend itself
// only performs the context pivot and bookkeeping.
func (s *Scheduler) Suspend() {
	s.cell.Borrow(func(st *schedState) {
		cur := st.current
		if cur == nil {
			klog.Panicf("task: suspend with no current task")
		}
		cur.cell.Borrow(func(in *inner) { contextSwitch(&in.ctx, &st.idle) })
		st.current = nil
	})
}

// YieldCurrent implements sys_yield: re-enqueue the current task at
// the ready queue's tail and return control to idle.
func (s *Scheduler) YieldCurrent() {
	cur := s.Current()
	if cur == nil {
		klog.Panicf("task: yield with no current task")
	}
	s.Enqueue(cur)
	s.Suspend()
}

// ExitCurrent implements sys_exit: run the current task's Exit
// bookkeeping (§4.5) and return control to idle. It does not
// re-enqueue — a Zombie never returns to the ready queue. Returns the
// exited task so callers (the trap handler) can still inspect its
// final state for diagnostics.
func (s *Scheduler) ExitCurrent(code int) *TCB {
	cur := s.Current()
	if cur == nil {
		klog.Panicf("task: exit with no current task")
	}
	cur.Exit(code, s.InitTask())
	s.Suspend()
	return cur
}
