package engine

import (
	"github.com/s3k-go/s3k/cap"
	"github.com/s3k-go/s3k/errcode"
)

// CapRevoke serves cap_revoke(i): repeatedly deletes the
// slot immediately following src for as long as it is a descendant of
// src, folding each deleted capability's state back into src, then
// restores src's watermark to its begin. It is cooperative: preempted
// between any two iterations, it returns PREEMPTED so the caller can
// re-issue, and because the loop always re-reads the list head it
// resumes cleanly across a preempted re-entry.
func (e *Engine) CapRevoke(hart int, pid uint16, cidx uint16) errcode.Code {
	h, code := e.handle(pid, cidx)
	if !code.Ok() {
		return code
	}

	srcCap := e.Forest.At(h)
	if srcCap.IsNone() {
		return errcode.Empty
	}

	for {
		if e.Plat != nil && e.Plat.Preempted(hart) {
			e.Plat.ClearPreemption(hart)
			return errcode.Preempted
		}

		next := e.Forest.Next(h)
		if next == h {
			break
		}
		nextCap := e.Forest.At(next)
		if nextCap.IsNone() || !cap.IsChild(srcCap, nextCap) {
			break
		}

		e.Forest.Lock.Lock()
		delCode := e.Forest.ConditionalDelete(next, nextCap, h)
		if delCode == errcode.None {
			srcCap = e.foldRevoked(pid, srcCap, nextCap)
			e.Forest.Update(h, srcCap)
		}
		e.Forest.Lock.Unlock()

		if e.Plat != nil && e.Plat.Preempted(hart) {
			e.Plat.ClearPreemption(hart)
			return errcode.Preempted
		}
	}

	e.Forest.Lock.Lock()
	final := srcCap.WithFree(srcCap.Begin())
	if final.Kind == cap.KindMemory {
		final = final.WithLock(false)
	}
	if final.Kind == cap.KindTime {
		t := final.MustTime()
		e.Sched.Update(int(t.HartID), int(t.Begin), int(t.End), pid, t.End)
	}
	e.Forest.Update(h, final)
	e.Forest.Lock.Unlock()

	return errcode.None
}

// foldRevoked folds a just-deleted descendant's state back into src
//, running the side effects that belong outside
// the pure cap algebra: reclaiming schedule slots for a removed Time
// descendant and clearing a bound PMP's hardware shadow slot. The
// fold depends on the deleted capability's own kind, not src's: a
// Memory capability's next sibling in the derivation list may be
// either a Memory sub-region or a bound PMP window, and each folds
// back differently.
func (e *Engine) foldRevoked(ownerPid uint16, src, deleted cap.Cap) cap.Cap {
	switch deleted.Kind {
	case cap.KindTime:
		dt := deleted.MustTime()
		t := src.MustTime()
		t.Free = dt.Free
		e.Sched.Update(int(t.HartID), int(dt.Begin), int(dt.End), ownerPid, t.End)
		return cap.NewTime(t)

	case cap.KindMemory:
		dm := deleted.MustMemory()
		m := src.MustMemory()
		m.Free = dm.Free
		m.Lock = dm.Lock
		return cap.NewMemory(m)

	case cap.KindPMP:
		dp := deleted.MustPMP()
		if dp.Used {
			if owner := e.Procs.Get(ownerPid); owner != nil {
				owner.PMPClear(int(dp.Index))
			}
		}
		return src

	case cap.KindMonitor:
		dm := deleted.MustMonitor()
		m := src.MustMonitor()
		m.Free = dm.Free
		return cap.NewMonitor(m)

	case cap.KindChannel:
		dc := deleted.MustChannel()
		c := src.MustChannel()
		c.Free = dc.Free
		return cap.NewChannel(c)

	default:
		return src
	}
}
