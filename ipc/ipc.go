// Package ipc implements the synchronous channel rendezvous: a
// channel-id -> blocked-listener registry plus recv/send/sendrecv
// over it.
package ipc

import (
	"sync/atomic"

	"github.com/s3k-go/s3k/errcode"
	"github.com/s3k-go/s3k/proc"
)

// NonePid marks a channel with no registered listener.
const NonePid = ^uint16(0)

// Registry is the listeners[channel_id] -> process table from spec
// §4.F. Each cell packs pid+1 so the zero value means "no listener"
// without a separate presence bit.
type Registry struct {
	cells []atomic.Uint32
}

// NewRegistry allocates a registry for n channels.
func NewRegistry(n int) *Registry {
	return &Registry{cells: make([]atomic.Uint32, n)}
}

// Publish records pid as the current listener on channel.
func (r *Registry) Publish(channel uint16, pid uint16) {
	r.cells[channel].Store(uint32(pid) + 1)
}

// NChannels reports how many channels this registry tracks, for
// callers (the s3kmon dashboard) that need to enumerate every slot.
func (r *Registry) NChannels() int { return len(r.cells) }

// Listener returns the current listener on channel, if any.
func (r *Registry) Listener(channel uint16) (uint16, bool) {
	v := r.cells[channel].Load()
	if v == 0 {
		return 0, false
	}
	return uint16(v - 1), true
}

// compareAndClear clears channel's listener only if it still names
// pid, so a delivered wakeup can't race a fresh recv publish.
func (r *Registry) compareAndClear(channel uint16, pid uint16) bool {
	return r.cells[channel].CompareAndSwap(uint32(pid)+1, 0)
}

// Recv publishes pid as channel's listener, then tries to block. If a
// suspend raced in and the BUSY->BLOCKED CAS fails, the process is
// released instead of blocking.
func Recv(reg *Registry, p *proc.PCB, pid uint16, channel uint16) {
	reg.Publish(channel, pid)
	if !p.IPCWait(channel) {
		p.Release()
	}
}

// CapTransfer is supplied by the caller (the syscall engine, which
// alone holds the CDT lock and the capability table) to move the
// sender's capability into the peer's declared destination slot,
// re-running the per-kind derivation hooks §4.F calls out (rebinding
// a transferred Time capability to the peer's schedule column, and
// so on). Send passes the peer pid it already resolved, since by the
// time capXfer runs the registry entry has been cleared and is no
// longer available to look up again. A nil CapTransfer means the
// send carries no capability.
type CapTransfer func(peerPid uint16) errcode.Code

// TimeDonation is supplied by the caller to donate the sender's
// remaining slice to the peer (schedule_yield under the scheduler's
// own bookkeeping) when the send requests it.
type TimeDonation func()

// Send locates the socket's peer via the channel's current listener
// (both server and client sockets resolve the same way — client
// sockets also target the server of that channel), wakes it, delivers
// msgs, and optionally runs capXfer and donate.
func Send(reg *Registry, procs *proc.Table, channel uint16, msgs [4]uint64, capXfer CapTransfer, donate TimeDonation) errcode.Code {
	peerPid, ok := reg.Listener(channel)
	if !ok {
		return errcode.NoReceiver
	}

	peer := procs.Get(peerPid)
	if peer == nil || !peer.IPCAcquire(channel) {
		return errcode.NoReceiver
	}
	reg.compareAndClear(channel, peerPid)

	peer.Mailbox = msgs

	if capXfer != nil {
		if code := capXfer(peerPid); code != errcode.None {
			peer.Release()
			return errcode.SendCap
		}
	}

	if donate != nil {
		donate()
	}

	return errcode.None
}

// SendRecv is send immediately followed by recv on the same socket,
// the one-step RPC-client pattern.
func SendRecv(reg *Registry, procs *proc.Table, p *proc.PCB, pid uint16, channel uint16, msgs [4]uint64, capXfer CapTransfer, donate TimeDonation) errcode.Code {
	if code := Send(reg, procs, channel, msgs, capXfer, donate); code != errcode.None {
		return code
	}
	Recv(reg, p, pid, channel)
	return errcode.None
}
