package task

// TaskContext is the minimal register snapshot for cooperative
// kernel-to-kernel switching (§3): return address, kernel stack
// pointer, and the twelve callee-saved registers (s0..s11) a RISC-V
// leaf function must preserve across a call.
type TaskContext struct {
	RA uint64
	SP uint64
	S  [12]uint64
}

// NewTrapReturnContext builds the synthetic "enter user via trap
// return" task context every freshly constructed or forked task starts
// with (§4.5 TCB::new, TCB::fork): its return address is the
// trampoline's __restore entry point, so the first context switch into
// this task falls straight through to restoring the trap context and
// sret-ing to user mode, without ever having "saved" anything first.
func NewTrapReturnContext(kstackTop, restoreEntry uint64) TaskContext {
	return TaskContext{RA: restoreEntry, SP: kstackTop}
}
