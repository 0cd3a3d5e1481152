package engine

import (
	"github.com/s3k-go/s3k/cap"
	"github.com/s3k-go/s3k/captable"
	"github.com/s3k-go/s3k/errcode"
	"github.com/s3k-go/s3k/ipc"
	"github.com/s3k-go/s3k/sched"
)

func (e *Engine) socketAt(pid, cidx uint16) (cap.Socket, captable.Handle, errcode.Code) {
	h, code := e.handle(pid, cidx)
	if !code.Ok() {
		return cap.Socket{}, captable.Handle{}, code
	}
	c := e.Forest.At(h)
	if c.IsNone() {
		return cap.Socket{}, captable.Handle{}, errcode.Empty
	}
	s, ok := c.Socket()
	if !ok {
		return cap.Socket{}, captable.Handle{}, errcode.InvalidCap
	}
	return s, h, errcode.None
}

// SockRecv serves sock_recv(sock_cidx, cap_dst_cidx)
// recv): only a server socket (tag==0) may receive. capDstCidx names
// where, in the caller's table, a capability arriving with a later
// send should land; the engine remembers it per-process so Send's
// hook can find it without IPC needing to know about capability
// tables at all.
func (e *Engine) SockRecv(hart int, pid uint16, sockCidx uint16, capDstCidx uint16) errcode.Code {
	sock, _, code := e.socketAt(pid, sockCidx)
	if !code.Ok() {
		return code
	}
	if sock.Tag != 0 {
		return errcode.InvalidCap
	}

	p := e.Procs.Get(pid)
	if p == nil {
		return errcode.Index
	}

	e.recvDstMu.Lock()
	if e.recvDst == nil {
		e.recvDst = make(map[uint16]uint16)
	}
	e.recvDst[pid] = capDstCidx
	e.recvDstMu.Unlock()

	ipc.Recv(e.IPC, p, pid, sock.Channel)
	return errcode.None
}

// SockSend serves sock_send(sock_cidx, m0..m3, cap_src_cidx). Both
// server and client sockets resolve the same listener lookup. If
// capSrcCidx names an occupied slot, the
// capability there is moved into the peer's declared destination
// under the CDT lock, re-running the Time rebind hook on a
// successful transfer.
func (e *Engine) SockSend(pid uint16, sockCidx uint16, msgs [4]uint64, capSrcCidx uint16, hasCap bool, yieldTime bool) errcode.Code {
	sock, _, code := e.socketAt(pid, sockCidx)
	if !code.Ok() {
		return code
	}

	var xfer ipc.CapTransfer
	if hasCap {
		srcHandle, code := e.handle(pid, capSrcCidx)
		if !code.Ok() {
			return code
		}
		xfer = func(peerPid uint16) errcode.Code {
			e.recvDstMu.Lock()
			dstCidx, ok := e.recvDst[peerPid]
			e.recvDstMu.Unlock()
			if !ok {
				return errcode.SendCap
			}
			dstHandle, code := e.handle(peerPid, dstCidx)
			if !code.Ok() {
				return errcode.SendCap
			}

			e.Forest.Lock.Lock()
			defer e.Forest.Lock.Unlock()
			moved := e.Forest.At(srcHandle)
			moveCode := e.Forest.Move(srcHandle, dstHandle)
			if moveCode != errcode.None {
				return errcode.SendCap
			}
			if t, ok := moved.Time(); ok {
				e.Sched.Update(int(t.HartID), int(t.Free), int(t.End), peerPid, t.End)
			}
			return errcode.None
		}
	}

	var donate ipc.TimeDonation
	if yieldTime {
		donate = func() {
			if sender := e.Procs.Get(pid); sender != nil {
				sender.SleepUntil = sender.SliceEnd
				sched.Yield(sender)
			}
		}
	}

	return ipc.Send(e.IPC, e.Procs, sock.Channel, msgs, xfer, donate)
}

// SockSendRecv serves sock_sendrecv: send immediately followed by
// recv on the same socket, the RPC-client pattern.
func (e *Engine) SockSendRecv(hart int, pid uint16, sockCidx uint16, msgs [4]uint64, capSrcCidx uint16, hasCap bool, capDstCidx uint16) errcode.Code {
	if code := e.SockSend(pid, sockCidx, msgs, capSrcCidx, hasCap, false); !code.Ok() {
		return code
	}
	return e.SockRecv(hart, pid, sockCidx, capDstCidx)
}
