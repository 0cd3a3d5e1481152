package captable

import (
	"runtime"
	"sync/atomic"
)

// TicketLock is a strictly FIFO spinlock: the single global lock every
// CDT-mutating critical section serializes on. A plain sync.Mutex does
// not guarantee FIFO ordering, so this ticket-based design is used
// instead of the stdlib default.
type TicketLock struct {
	next    atomic.Uint64
	serving atomic.Uint64
}

// Lock blocks until this caller's ticket is being served.
func (t *TicketLock) Lock() {
	ticket := t.next.Add(1) - 1
	for t.serving.Load() != ticket {
		runtime.Gosched()
	}
}

// Unlock advances the serving ticket, admitting the next waiter.
func (t *TicketLock) Unlock() {
	t.serving.Add(1)
}
