package engine

import (
	"github.com/s3k-go/s3k/cap"
	"github.com/s3k-go/s3k/captable"
	"github.com/s3k-go/s3k/errcode"
	"github.com/s3k-go/s3k/proc"
)

// PMPLoad serves pmp_load(cidx, pmp_index):
// binds the PMP capability at cidx to hardware slot pmpIndex. The
// shadow is written first, then the capability's used/index fields
// are CAS-published by a locked Update; on update failure the shadow
// write is rolled back so "no active PMP slot without a live PMP
// capability" always holds.
func (e *Engine) PMPLoad(pid uint16, cidx uint16, pmpIndex int) errcode.Code {
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
	p, ok := c.PMP()
	if !ok {
		return errcode.InvalidCap
	}
	if p.Used {
		return errcode.Collision
	}

	owner := e.Procs.Get(pid)
	if owner == nil {
		return errcode.Index
	}
	if owner.PMPIsSet(pmpIndex) {
		return errcode.Collision
	}

	owner.PMPSet(pmpIndex, p.Addr, uint8(p.RWX))

	p.Used = true
	p.Index = uint8(pmpIndex)
	if updCode := e.Forest.Update(h, cap.NewPMP(p)); updCode != errcode.None {
		owner.PMPClear(pmpIndex)
		return updCode
	}
	return errcode.None
}

// PMPUnload serves pmp_unload(cidx): the inverse of PMPLoad.
func (e *Engine) PMPUnload(pid uint16, cidx uint16) errcode.Code {
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
	p, ok := c.PMP()
	if !ok {
		return errcode.InvalidCap
	}
	if !p.Used {
		return errcode.None
	}

	if owner := e.Procs.Get(pid); owner != nil {
		owner.PMPClear(int(p.Index))
	}
	p.Used = false
	p.Index = 0
	return e.Forest.Update(h, cap.NewPMP(p))
}

// monitorAuthorize validates a Monitor capability at monCidx in
// caller's table and checks target is within its range (MPID), per
// Target pid must lie in [mon.free, mon.end).
func (e *Engine) monitorAuthorize(caller uint16, monCidx uint16, target uint16) (cap.Monitor, errcode.Code) {
	h, code := e.handle(caller, monCidx)
	if !code.Ok() {
		return cap.Monitor{}, code
	}
	c := e.Forest.At(h)
	if c.IsNone() {
		return cap.Monitor{}, errcode.Empty
	}
	m, ok := c.Monitor()
	if !ok {
		return cap.Monitor{}, errcode.InvalidCap
	}
	if target < m.Free || target >= m.End {
		return cap.Monitor{}, errcode.MonitorPid
	}
	return m, errcode.None
}

// MonSuspend serves mon_suspend(mon_cidx, target_pid).
func (e *Engine) MonSuspend(caller, monCidx, target uint16) errcode.Code {
	if _, code := e.monitorAuthorize(caller, monCidx, target); !code.Ok() {
		return code
	}
	p := e.Procs.Get(target)
	if p == nil {
		return errcode.Index
	}
	p.Suspend()
	return errcode.None
}

// MonResume serves mon_resume(mon_cidx, target_pid).
func (e *Engine) MonResume(caller, monCidx, target uint16) errcode.Code {
	if _, code := e.monitorAuthorize(caller, monCidx, target); !code.Ok() {
		return code
	}
	p := e.Procs.Get(target)
	if p == nil {
		return errcode.Index
	}
	p.Resume()
	return errcode.None
}

// MonRegGet/MonRegSet serve mon_reg_get/mon_reg_set: both require
// monitor_acquire(target), i.e. the target must currently be
// SUSPENDED and not already BUSY under inspection.
func (e *Engine) MonRegGet(caller, monCidx, target, reg uint16) (errcode.Code, uint64) {
	if _, code := e.monitorAuthorize(caller, monCidx, target); !code.Ok() {
		return code, 0
	}
	p := e.Procs.Get(target)
	if p == nil || reg >= uint16(proc.RegCount) {
		return errcode.Index, 0
	}
	if !p.MonitorAcquire() {
		return errcode.MonitorBusy, 0
	}
	defer p.Release()
	return errcode.None, p.Regs[reg]
}

func (e *Engine) MonRegSet(caller, monCidx, target, reg uint16, value uint64) errcode.Code {
	if _, code := e.monitorAuthorize(caller, monCidx, target); !code.Ok() {
		return code
	}
	p := e.Procs.Get(target)
	if p == nil || reg >= uint16(proc.RegCount) {
		return errcode.Index
	}
	if !p.MonitorAcquire() {
		return errcode.MonitorBusy
	}
	defer p.Release()
	p.Regs[reg] = value
	return errcode.None
}

// MonCapRead serves mon_cap_read(mon_cidx, target_pid, target_cidx).
func (e *Engine) MonCapRead(caller, monCidx, target, targetCidx uint16) (errcode.Code, cap.Cap) {
	if _, code := e.monitorAuthorize(caller, monCidx, target); !code.Ok() {
		return code, cap.None
	}
	h, code := e.handle(target, targetCidx)
	if !code.Ok() {
		return code, cap.None
	}
	if e.Forest.IsEmpty(h) {
		return errcode.Empty, cap.None
	}
	return errcode.None, e.Forest.At(h)
}

// monCapMove is the shared implementation of mon_cap_take (target ->
// caller) and mon_cap_give (caller -> target): a cross-process Move
// authorized by a Monitor capability. A moved Time capability is
// rebound to its new owner's schedule column ("re-running
// move's per-kind hooks... re-binding Time to the peer's schedule
// column"), since dstHandle.Pid is the process the schedule table
// should now credit.
func (e *Engine) monCapMove(caller, monCidx, target uint16, srcHandle, dstHandle captable.Handle) errcode.Code {
	if _, code := e.monitorAuthorize(caller, monCidx, target); !code.Ok() {
		return code
	}

	e.Forest.Lock.Lock()
	defer e.Forest.Lock.Unlock()

	moved := e.Forest.At(srcHandle)
	moveCode := e.Forest.Move(srcHandle, dstHandle)
	if moveCode != errcode.None {
		return moveCode
	}

	if t, ok := moved.Time(); ok {
		e.Sched.Update(int(t.HartID), int(t.Free), int(t.End), dstHandle.Pid, t.End)
	}
	return errcode.None
}

// MonCapTake serves mon_cap_take(mon_cidx, target_pid, src_cidx, dst_cidx):
// moves a capability out of the target's table into the caller's.
func (e *Engine) MonCapTake(caller, monCidx, target, srcCidx, dstCidx uint16) errcode.Code {
	src, code := e.handle(target, srcCidx)
	if !code.Ok() {
		return code
	}
	dst, code := e.handle(caller, dstCidx)
	if !code.Ok() {
		return code
	}
	return e.monCapMove(caller, monCidx, target, src, dst)
}

// MonCapGive serves mon_cap_give(mon_cidx, target_pid, src_cidx, dst_cidx):
// moves a capability out of the caller's table into the target's —
// the operation used to donate a Time slice.
func (e *Engine) MonCapGive(caller, monCidx, target, srcCidx, dstCidx uint16) errcode.Code {
	src, code := e.handle(caller, srcCidx)
	if !code.Ok() {
		return code
	}
	dst, code := e.handle(target, dstCidx)
	if !code.Ok() {
		return code
	}
	return e.monCapMove(caller, monCidx, target, src, dst)
}

// MonPMPLoad/MonPMPUnload serve mon_pmp_load/mon_pmp_unload: PMPLoad/
// PMPUnload performed against the target process instead of the
// caller.
func (e *Engine) MonPMPLoad(caller, monCidx, target, pmpCidx uint16, pmpIndex int) errcode.Code {
	if _, code := e.monitorAuthorize(caller, monCidx, target); !code.Ok() {
		return code
	}
	return e.PMPLoad(target, pmpCidx, pmpIndex)
}

func (e *Engine) MonPMPUnload(caller, monCidx, target, pmpCidx uint16) errcode.Code {
	if _, code := e.monitorAuthorize(caller, monCidx, target); !code.Ok() {
		return code
	}
	return e.PMPUnload(target, pmpCidx)
}
