// Package errcode defines the closed set of exception codes every
// syscall returns in its first result register.
package errcode

// Code is the closed syscall result taxonomy. It is a wire
// value, not a Go error: syscalls return it by value so user-space
// sees exactly the numbering the ABI promises.
type Code uint8

const (
	None Code = iota
	Index
	Empty
	Collision
	Derivation
	InvalidCap
	Preempted
	Suspended
	MonitorBusy
	MonitorPid
	NoReceiver
	SendCap
	Unimplemented
)

func (c Code) String() string {
	switch c {
	case None:
		return "NONE"
	case Index:
		return "INDEX"
	case Empty:
		return "EMPTY"
	case Collision:
		return "COLLISION"
	case Derivation:
		return "DERIVATION"
	case InvalidCap:
		return "INVALID_CAP"
	case Preempted:
		return "PREEMPTED"
	case Suspended:
		return "SUSPENDED"
	case MonitorBusy:
		return "MBUSY"
	case MonitorPid:
		return "MPID"
	case NoReceiver:
		return "NO_RECEIVER"
	case SendCap:
		return "SEND_CAP"
	case Unimplemented:
		return "UNIMPLEMENTED"
	}
	return "UNKNOWN"
}

// Ok reports whether c is the success code.
func (c Code) Ok() bool { return c == None }
