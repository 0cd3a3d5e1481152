// Package platform is the hardware-hook boundary carved out of the
// core: wall-clock, timer programming, PMP write,
// preemption polling, halt, and a serial byte sink. The core depends
// only on these interfaces; a real target implements them against
// MMIO, a simulator implements them in memory.
package platform

import "io"

// Clock reads the current wall-clock tick.
type Clock interface {
	Now() uint64
}

// Timer programs a hart's next wakeup.
type Timer interface {
	SetTimer(hart int, at uint64)
}

// PreemptionSource reports whether a hart's timer ISR has raised its
// preemption flag since it was last cleared.
type PreemptionSource interface {
	Preempted(hart int) bool
	ClearPreemption(hart int)
}

// Halter stops a hart after a fatal kernel assertion.
type Halter interface {
	Halt(hart int)
}

// PMPWriter flushes a process's PMP shadow into the real per-hart PMP
// registers (the `pmp_write_hw(proc)` step).
type PMPWriter interface {
	WritePMP(hart int, index int, rwx uint8, addr uint64, set bool)
}

// Platform bundles every hardware hook the kernel core needs.
type Platform interface {
	Clock
	Timer
	PreemptionSource
	Halter
	PMPWriter
	Serial() io.Writer
}
