// Package captable implements the capability derivation tree: a
// per-process array of capability slots, all wired
// together across every process into one circular doubly linked list
// in depth-first derivation order.
package captable

import (
	"github.com/s3k-go/s3k/cap"
	"github.com/s3k-go/s3k/errcode"
)

// InvalidIdx marks the Nil handle.
const InvalidIdx = ^uint16(0)

// Handle names a single capability slot (pid, idx).
type Handle struct {
	Pid uint16
	Idx uint16
}

// Nil is the handle that names no slot.
var Nil = Handle{Pid: InvalidIdx, Idx: InvalidIdx}

// Valid reports whether h names an actual slot.
func (h Handle) Valid() bool { return h.Idx != InvalidIdx }

type slot struct {
	cap  cap.Cap
	prev Handle
	next Handle
}

// Forest holds every process's capability table and the single global
// ticket lock that serializes all structural mutation across them
// the CDT is one global structure shared by every process.
type Forest struct {
	Lock  *TicketLock
	procs [][]slot
	nCap  int
}

// NewForest allocates a forest for nProc processes, each with nCap
// slots, all initially empty.
func NewForest(nProc, nCap int) *Forest {
	procs := make([][]slot, nProc)
	for i := range procs {
		row := make([]slot, nCap)
		for j := range row {
			row[j] = slot{prev: Nil, next: Nil}
		}
		procs[i] = row
	}
	return &Forest{Lock: &TicketLock{}, procs: procs, nCap: nCap}
}

// NProc and NCap report the forest's static dimensions.
func (f *Forest) NProc() int { return len(f.procs) }
func (f *Forest) NCap() int  { return f.nCap }

// Handle validates (pid, idx) and returns the corresponding handle.
func (f *Forest) Handle(pid, idx uint16) (Handle, errcode.Code) {
	if int(pid) >= len(f.procs) || int(idx) >= f.nCap {
		return Nil, errcode.Index
	}
	return Handle{Pid: pid, Idx: idx}, errcode.None
}

func (f *Forest) slot(h Handle) *slot { return &f.procs[h.Pid][h.Idx] }

// At returns the capability stored at h (cap.None for an empty slot).
func (f *Forest) At(h Handle) cap.Cap { return f.slot(h).cap }

// IsEmpty reports whether h currently holds no capability.
func (f *Forest) IsEmpty(h Handle) bool { return f.slot(h).cap.IsNone() }

// Next and Prev walk the depth-first derivation list. They are only
// meaningful for occupied slots; an empty slot's links are Nil.
func (f *Forest) Next(h Handle) Handle { return f.slot(h).next }
func (f *Forest) Prev(h Handle) Handle { return f.slot(h).prev }

// SeedRoot installs the first occupied slot of a brand new forest (or
// re-seeds one that has been fully revoked back to nothing),
// self-linking it into a single-element circular list. It is used
// only by boot wiring, never by the syscall engine.
func (f *Forest) SeedRoot(h Handle, c cap.Cap) {
	s := f.slot(h)
	s.cap = c
	s.prev = h
	s.next = h
}

// Insert splices the empty slot h immediately after the occupied slot
// after, storing c there. The caller is responsible for holding
// f.Lock across this call and any accompanying per-kind hook: the
// lock is held across list splice + per-kind hook + capability
// payload update.
func (f *Forest) Insert(h Handle, c cap.Cap, after Handle) errcode.Code {
	if !f.slot(h).cap.IsNone() {
		return errcode.Collision
	}
	if f.slot(after).cap.IsNone() {
		return errcode.Empty
	}
	nextH := f.slot(after).next
	f.slot(h).cap = c
	f.slot(h).prev = after
	f.slot(h).next = nextH
	f.slot(after).next = h
	f.slot(nextH).prev = h
	return errcode.None
}

// Move relocates the occupied slot src into the empty slot dst,
// preserving its position in the derivation list.
func (f *Forest) Move(src, dst Handle) errcode.Code {
	if f.slot(src).cap.IsNone() {
		return errcode.Empty
	}
	if !f.slot(dst).cap.IsNone() {
		return errcode.Collision
	}
	moved := *f.slot(src)
	if moved.prev == src {
		moved.prev = dst
	}
	if moved.next == src {
		moved.next = dst
	}
	*f.slot(dst) = moved
	f.slot(moved.prev).next = dst
	f.slot(moved.next).prev = dst
	*f.slot(src) = slot{prev: Nil, next: Nil}
	return errcode.None
}

// Delete unlinks and empties h.
func (f *Forest) Delete(h Handle) errcode.Code {
	s := f.slot(h)
	if s.cap.IsNone() {
		return errcode.Empty
	}
	prev, next := s.prev, s.next
	f.slot(prev).next = next
	f.slot(next).prev = prev
	*s = slot{prev: Nil, next: Nil}
	return errcode.None
}

// ConditionalDelete deletes h only if it still holds expectedCap and
// its prev link is still expectedPrev. This is the revocation loop's
// safeguard against a concurrent mutation of the list since it last
// observed it.
func (f *Forest) ConditionalDelete(h Handle, expectedCap cap.Cap, expectedPrev Handle) errcode.Code {
	s := f.slot(h)
	if s.cap.IsNone() {
		return errcode.Empty
	}
	if s.cap != expectedCap || s.prev != expectedPrev {
		return errcode.Collision
	}
	return f.Delete(h)
}

// Update replaces the payload stored at h in place, without touching
// its list links.
func (f *Forest) Update(h Handle, c cap.Cap) errcode.Code {
	s := f.slot(h)
	if s.cap.IsNone() {
		return errcode.Empty
	}
	s.cap = c
	return errcode.None
}
