// Package engine implements the syscall dispatcher: validation-before-
// locking, the global CDT lock, and orchestration across capability
// algebra (cap), the CDT (captable), process control (proc), the
// scheduler (sched), and IPC (ipc).
package engine

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/s3k-go/s3k/cap"
	"github.com/s3k-go/s3k/captable"
	"github.com/s3k-go/s3k/errcode"
	"github.com/s3k-go/s3k/ipc"
	"github.com/s3k-go/s3k/platform"
	"github.com/s3k-go/s3k/proc"
	"github.com/s3k-go/s3k/sched"
)

// Engine wires every component together behind the numbered syscall
// surface. Besides Forest.Lock, the single global CDT lock, its only
// lock is recvDstMu, which guards the recvDst map.
type Engine struct {
	Forest *captable.Forest
	Procs  *proc.Table
	Sched  *sched.Table
	IPC    *ipc.Registry
	Plat   platform.Platform
	Log    *logrus.Entry

	// recvDst remembers, per blocked receiver pid, which capability
	// slot in its own table a pending sock_recv declared as the
	// landing spot for a transferred capability. IPC
	// itself stays capability-table-agnostic; this map is what lets
	// SockSend's transfer hook find the destination.
	recvDstMu sync.Mutex
	recvDst   map[uint16]uint16
}

// New builds an Engine over already-constructed components.
func New(forest *captable.Forest, procs *proc.Table, schedule *sched.Table, reg *ipc.Registry, plat platform.Platform, log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{Forest: forest, Procs: procs, Sched: schedule, IPC: reg, Plat: plat, Log: log}
}

func (e *Engine) handle(pid, idx uint16) (captable.Handle, errcode.Code) {
	return e.Forest.Handle(pid, idx)
}

// GetInfo serves get_info: infoID selects
// pid, current wall-clock, this slice's end, or the worst-case
// instrumentation counter.
func (e *Engine) GetInfo(pid uint16, infoID uint64) (errcode.Code, uint64) {
	p := e.Procs.Get(pid)
	if p == nil {
		return errcode.Index, 0
	}
	switch infoID {
	case 0:
		return errcode.None, uint64(pid)
	case 1:
		return errcode.None, e.Plat.Now()
	case 2:
		return errcode.None, p.SliceEnd
	case 3:
		return errcode.None, p.Stats.WorstCaseNs
	default:
		return errcode.Index, 0
	}
}

// GetReg / SetReg serve get_reg/set_reg, restricted to [0, REG_COUNT).
func (e *Engine) GetReg(pid uint16, reg uint16) (errcode.Code, uint64) {
	p := e.Procs.Get(pid)
	if p == nil || reg >= uint16(proc.RegCount) {
		return errcode.Index, 0
	}
	return errcode.None, p.Regs[reg]
}

func (e *Engine) SetReg(pid uint16, reg uint16, value uint64) errcode.Code {
	p := e.Procs.Get(pid)
	if p == nil || reg >= uint16(proc.RegCount) {
		return errcode.Index
	}
	p.Regs[reg] = value
	return errcode.None
}

// Yield serves yield(until): sets proc.sleep_until to until, or to
// slice_end if until is zero, then calls schedule_yield.
func (e *Engine) Yield(pid uint16, until uint64) errcode.Code {
	p := e.Procs.Get(pid)
	if p == nil {
		return errcode.Index
	}
	if until != 0 {
		p.SleepUntil = until
	} else {
		p.SleepUntil = p.SliceEnd
	}
	sched.Yield(p)
	return errcode.None
}

// CapRead serves cap_read(i).
func (e *Engine) CapRead(pid uint16, cidx uint16) (errcode.Code, cap.Cap) {
	h, code := e.handle(pid, cidx)
	if !code.Ok() {
		return code, cap.None
	}
	if e.Forest.IsEmpty(h) {
		return errcode.Empty, cap.None
	}
	return errcode.None, e.Forest.At(h)
}

// CapMove serves cap_move(src, dst): the CDT lock is held only for
// the list splice.
func (e *Engine) CapMove(pid uint16, src, dst uint16) errcode.Code {
	sh, code := e.handle(pid, src)
	if !code.Ok() {
		return code
	}
	dh, code := e.handle(pid, dst)
	if !code.Ok() {
		return code
	}

	e.Forest.Lock.Lock()
	defer e.Forest.Lock.Unlock()
	return e.Forest.Move(sh, dh)
}

// CapDelete serves cap_delete(i), running the per-kind delete hook:
// Time reclaims its watermark tail from the schedule, a bound PMP
// clears its hardware shadow slot, everything else is a plain delete.
func (e *Engine) CapDelete(pid uint16, cidx uint16) errcode.Code {
	h, code := e.handle(pid, cidx)
	if !code.Ok() {
		return code
	}

	e.Forest.Lock.Lock()
	defer e.Forest.Lock.Unlock()

	c := e.Forest.At(h)
	if c.IsNone() {
		return errcode.Empty
	}

	deleteCode := e.Forest.Delete(h)
	if deleteCode != errcode.None {
		return deleteCode
	}

	switch c.Kind {
	case cap.KindTime:
		t := c.MustTime()
		e.Sched.Delete(int(t.HartID), int(t.Free), int(t.End))
	case cap.KindPMP:
		p := c.MustPMP()
		if p.Used {
			if owner := e.Procs.Get(pid); owner != nil {
				owner.PMPClear(int(p.Index))
			}
		}
	}
	return errcode.None
}

// CapDerive serves cap_derive(src, dst, new_cap_raw):
// validates is_derivable_from, inserts under the lock, advances the
// parent's watermark, locks a Memory parent deriving a PMP child, and
// publishes a schedule update when the new capability is Time.
func (e *Engine) CapDerive(pid uint16, srcIdx, dstIdx uint16, newRaw uint64) errcode.Code {
	sh, code := e.handle(pid, srcIdx)
	if !code.Ok() {
		return code
	}
	dh, code := e.handle(pid, dstIdx)
	if !code.Ok() {
		return code
	}
	newCap := cap.FromRaw(newRaw)

	e.Forest.Lock.Lock()
	defer e.Forest.Lock.Unlock()

	srcCap := e.Forest.At(sh)
	if srcCap.IsNone() {
		return errcode.Empty
	}
	if !e.Forest.IsEmpty(dh) {
		return errcode.Collision
	}
	if !cap.IsDerivableFrom(srcCap, newCap) {
		return errcode.Derivation
	}

	if insertCode := e.Forest.Insert(dh, newCap, sh); insertCode != errcode.None {
		return insertCode
	}

	updated := srcCap.WithFree(cap.NextFree(srcCap, newCap))
	if srcCap.Kind == cap.KindMemory && newCap.Kind == cap.KindPMP {
		updated = updated.WithLock(true)
	}
	e.Forest.Update(sh, updated)

	if newCap.Kind == cap.KindTime {
		t := newCap.MustTime()
		e.Sched.Update(int(t.HartID), int(t.Begin), int(t.End), pid, t.End)
	}

	return errcode.None
}
