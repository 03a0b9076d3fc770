//go:build !riscv64

package riscv

// simTime stands in for the `time` CSR on a host with no Sv39 MMU or
// free-running cycle counter to read; each call simply advances, which
// is enough for scheduler/timer-tick tests that only care about
// monotonic ordering, not wall-clock accuracy.
var simTime uint64

// ReadTime returns a monotonically increasing simulated tick count.
func ReadTime() uint64 {
	simTime++
	return simTime
}
