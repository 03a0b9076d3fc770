// Package klog is the kernel's logging and fatal-error plumbing: the
// panic/logging collaborator the spec treats as external (§1), rendered
// concretely here in the teacher's idiom. Warnf reports the §7-class-2
// user-process faults (page faults, illegal instructions) that let the
// scheduler continue; Panicf reports §7-class-3/4 kernel-side assertion
// violations and unknown traps, which are always fatal.
//
// Grounded on biscuit's caller package (stack-dump-on-panic via
// runtime.Caller) and circbuf (a small fixed-size ring buffer), adapted
// here into a ring of recent trap events consulted by Panicf so a fatal
// dump includes the last few things that happened, not just the
// immediate cause.
package klog

import (
	"fmt"
	"runtime"
)

const recentCap = 16

var recent [recentCap]string
var recentNext int

// Note appends a short free-text note to the recent-event ring, e.g.
// "exec ch5b_user_shell (pid 3)". Best-effort; never fails.
func Note(format string, args ...any) {
	recent[recentNext%recentCap] = fmt.Sprintf(format, args...)
	recentNext++
}

// Warnf prints a non-fatal diagnostic, matching the "print diagnostic"
// requirement of §4.7 for user-process faults.
func Warnf(format string, args ...any) {
	fmt.Printf("[kernel] "+format+"\n", args...)
}

// Banner prints the boot banner required by end-to-end scenario 1.
func Banner() {
	fmt.Println("[kernel] Hello, world!")
}

// Panicf prints the call chain (mirroring biscuit's Callerdump) and the
// recent-event ring, then panics. Used for the §7 class-3/4 conditions
// double-free, double-map, ELF magic mismatch, and unknown traps; guard
// contention (internal/guard) panics directly without this dump.
func Panicf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("[kernel] PANIC: %s\n", msg)
	dumpRecent()
	dumpCallers(1)
	panic(msg)
}

func dumpRecent() {
	fmt.Println("[kernel] recent events:")
	for i := 0; i < recentCap; i++ {
		idx := (recentNext + i) % recentCap
		if recent[idx] != "" {
			fmt.Printf("\t%s\n", recent[idx])
		}
	}
}

// dumpCallers mirrors biscuit's caller.Callerdump: walk runtime.Caller
// frames starting at depth start and print a chain a<-b<-c.
func dumpCallers(start int) {
	s := ""
	for i := start; ; i++ {
		_, f, l, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if s == "" {
			s = fmt.Sprintf("%s:%d", f, l)
		} else {
			s += fmt.Sprintf("\n\t<-%s:%d", f, l)
		}
	}
	fmt.Printf("[kernel] trace:\n\t%s\n", s)
}
