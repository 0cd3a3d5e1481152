package platform

import (
	"io"
	"sync/atomic"
)

// Sim is a default in-memory platform used by the simulator CLI and
// by tests: wall-clock is a manually advanced counter, timers and
// preemption flags are plain slices, PMP writes are recorded rather
// than issued to real hardware, and the serial sink is an io.Writer
// the caller supplies (an in-memory buffer in tests, stderr in the
// CLI).
type Sim struct {
	now   atomic.Uint64
	timer []atomic.Uint64
	flags []atomic.Bool
	out   io.Writer

	pmpWrites []PMPWrite
}

// PMPWrite records one WritePMP call for inspection in tests.
type PMPWrite struct {
	Hart  int
	Index int
	RWX   uint8
	Addr  uint64
	Set   bool
}

// NewSim builds a simulated platform for nHart harts, emitting serial
// output to out.
func NewSim(nHart int, out io.Writer) *Sim {
	return &Sim{
		timer: make([]atomic.Uint64, nHart),
		flags: make([]atomic.Bool, nHart),
		out:   out,
	}
}

func (s *Sim) Now() uint64 { return s.now.Load() }

// Advance moves the simulated clock forward by delta ticks; the
// s3kmon dashboard calls it once per refresh tick.
func (s *Sim) Advance(delta uint64) { s.now.Add(delta) }

func (s *Sim) SetTimer(hart int, at uint64) { s.timer[hart].Store(at) }
func (s *Sim) TimerAt(hart int) uint64      { return s.timer[hart].Load() }

func (s *Sim) Preempted(hart int) bool   { return s.flags[hart].Load() }
func (s *Sim) ClearPreemption(hart int)  { s.flags[hart].Store(false) }
func (s *Sim) RaisePreemption(hart int)  { s.flags[hart].Store(true) }

func (s *Sim) Halt(hart int) {
	if s.out != nil {
		io.WriteString(s.out, "HALT\n")
	}
}

func (s *Sim) WritePMP(hart int, index int, rwx uint8, addr uint64, set bool) {
	s.pmpWrites = append(s.pmpWrites, PMPWrite{Hart: hart, Index: index, RWX: rwx, Addr: addr, Set: set})
}

// PMPWrites returns every recorded write, for assertions.
func (s *Sim) PMPWrites() []PMPWrite { return s.pmpWrites }

func (s *Sim) Serial() io.Writer { return s.out }
