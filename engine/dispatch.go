package engine

import (
	"github.com/google/uuid"

	"github.com/s3k-go/s3k/errcode"
)

// Syscall numbers.
const (
	SysGetInfo = iota
	SysGetReg
	SysSetReg
	SysYield
	SysCapRead
	SysCapMove
	SysCapDelete
	SysCapRevoke
	SysCapDerive
	SysPMPLoad
	SysPMPUnload
	SysMonSuspend
	SysMonResume
	SysMonRegGet
	SysMonRegSet
	SysMonCapRead
	SysMonCapTake
	SysMonCapGive
	SysMonPMPLoad
	SysMonPMPUnload
	SysSockSend
	SysSockRecv
	SysSockSendRecv
)

// Result is the up-to-five-word result a syscall trap writes back
// into a0..a4, with Code always landing in a0.
type Result struct {
	Code       errcode.Code
	Words      [4]uint64
	Capability uint64 // raw wire form, when the call returns a capability
}

// Dispatch serves one trapped syscall: it logs the call with a
// per-trap correlation id  and routes to the matching
// component method. hart identifies which hart trapped, for
// preemption polling in cap_revoke.
func (e *Engine) Dispatch(hart int, pid uint16, num int, args [6]uint64) Result {
	traceID := uuid.New()
	log := e.Log.WithFields(map[string]interface{}{
		"trace": traceID.String(),
		"pid":   pid,
		"hart":  hart,
		"sys":   num,
	})

	res := e.dispatch(hart, pid, num, args)

	if res.Code != errcode.None {
		log.WithField("code", res.Code.String()).Debug("syscall returned non-NONE")
	} else {
		log.Trace("syscall NONE")
	}
	return res
}

func (e *Engine) dispatch(hart int, pid uint16, num int, args [6]uint64) Result {
	switch num {
	case SysGetInfo:
		code, v := e.GetInfo(pid, args[0])
		return Result{Code: code, Words: [4]uint64{v}}

	case SysGetReg:
		code, v := e.GetReg(pid, uint16(args[0]))
		return Result{Code: code, Words: [4]uint64{v}}

	case SysSetReg:
		return Result{Code: e.SetReg(pid, uint16(args[0]), args[1])}

	case SysYield:
		return Result{Code: e.Yield(pid, args[0])}

	case SysCapRead:
		code, c := e.CapRead(pid, uint16(args[0]))
		return Result{Code: code, Capability: c.Raw()}

	case SysCapMove:
		return Result{Code: e.CapMove(pid, uint16(args[0]), uint16(args[1]))}

	case SysCapDelete:
		return Result{Code: e.CapDelete(pid, uint16(args[0]))}

	case SysCapRevoke:
		return Result{Code: e.CapRevoke(hart, pid, uint16(args[0]))}

	case SysCapDerive:
		return Result{Code: e.CapDerive(pid, uint16(args[0]), uint16(args[1]), args[2])}

	case SysPMPLoad:
		return Result{Code: e.PMPLoad(pid, uint16(args[0]), int(args[1]))}

	case SysPMPUnload:
		return Result{Code: e.PMPUnload(pid, uint16(args[0]))}

	case SysMonSuspend:
		return Result{Code: e.MonSuspend(pid, uint16(args[0]), uint16(args[1]))}

	case SysMonResume:
		return Result{Code: e.MonResume(pid, uint16(args[0]), uint16(args[1]))}

	case SysMonRegGet:
		code, v := e.MonRegGet(pid, uint16(args[0]), uint16(args[1]), uint16(args[2]))
		return Result{Code: code, Words: [4]uint64{v}}

	case SysMonRegSet:
		return Result{Code: e.MonRegSet(pid, uint16(args[0]), uint16(args[1]), uint16(args[2]), args[3])}

	case SysMonCapRead:
		code, c := e.MonCapRead(pid, uint16(args[0]), uint16(args[1]), uint16(args[2]))
		return Result{Code: code, Capability: c.Raw()}

	case SysMonCapTake:
		return Result{Code: e.MonCapTake(pid, uint16(args[0]), uint16(args[1]), uint16(args[2]), uint16(args[3]))}

	case SysMonCapGive:
		return Result{Code: e.MonCapGive(pid, uint16(args[0]), uint16(args[1]), uint16(args[2]), uint16(args[3]))}

	case SysMonPMPLoad:
		return Result{Code: e.MonPMPLoad(pid, uint16(args[0]), uint16(args[1]), uint16(args[2]), int(args[3]))}

	case SysMonPMPUnload:
		return Result{Code: e.MonPMPUnload(pid, uint16(args[0]), uint16(args[1]), uint16(args[2]))}

	case SysSockSend:
		msgs := [4]uint64{args[1], args[2], args[3], args[4]}
		hasCap := args[5] != noCap
		yieldTime := args[0]&sockSendYieldFlag != 0
		return Result{Code: e.SockSend(pid, uint16(args[0]), msgs, uint16(args[5]), hasCap, yieldTime)}

	case SysSockRecv:
		return Result{Code: e.SockRecv(hart, pid, uint16(args[0]), uint16(args[1]))}

	case SysSockSendRecv:
		msgs := [4]uint64{args[1], args[2], args[3], args[4]}
		hasCap := args[5] != noCap
		return Result{Code: e.SockSendRecv(hart, pid, uint16(args[0]), msgs, uint16(args[5]), hasCap, uint16(args[5]))}

	default:
		return Result{Code: errcode.Unimplemented}
	}
}

// noCap is the sentinel argument value meaning "no capability
// attached to this send", since 0 is itself a valid slot index.
const noCap = ^uint64(0)

// sockSendYieldFlag steals bit 16 of sock_send's sock_cidx word to
// carry yield_time: sock_cidx itself is a uint16, so every bit above
// it is otherwise unused and free of any sentinel collision (unlike
// args[5], whose all-ones value is already noCap).
const sockSendYieldFlag = uint64(1) << 16
