package sbi

import "os"

// Sim is a host-process Firmware backend for running without real SBI
// firmware; it takes effect only once passed to Install (cmd/rvcore
// does not install it and runs on the default no-op backend). It is
// not part of the kernel's design proper (§1 places the firmware out
// of scope).
type Sim struct {
	deadline uint64
	in       []byte
}

// NewSim constructs a simulated firmware backend.
func NewSim() *Sim { return &Sim{} }

func (s *Sim) ConsolePutChar(c byte) { os.Stdout.Write([]byte{c}) }

func (s *Sim) ConsoleGetChar() int {
	if len(s.in) == 0 {
		return -1
	}
	c := s.in[0]
	s.in = s.in[1:]
	return int(c)
}

// Feed queues bytes to be returned by subsequent ConsoleGetChar calls.
func (s *Sim) Feed(b []byte) { s.in = append(s.in, b...) }

func (s *Sim) SetTimer(deadline uint64) { s.deadline = deadline }

// Deadline reports the last programmed timer deadline, for tests.
func (s *Sim) Deadline() uint64 { return s.deadline }

func (s *Sim) Shutdown() {}
