package cap

// IsChild reports whether child is a structural descendant of parent
// in the derivation tree shape, independent of watermarks.
func IsChild(parent, child Cap) bool {
	switch parent.Kind {
	case KindTime:
		if child.Kind != KindTime {
			return false
		}
		p, c := parent.time, child.time
		return p.HartID == c.HartID && p.Begin <= c.Begin && c.End <= p.End

	case KindMemory:
		p := parent.memory
		switch child.Kind {
		case KindMemory:
			c := child.memory
			return p.Offset == c.Offset && p.Begin <= c.Begin && c.End <= p.End
		case KindPMP:
			c := child.pmp
			cb, ce := NAPOTRange(c.Addr)
			pb, pe := p.FrameAddr(p.Begin), p.FrameAddr(p.End)
			return pb <= cb && ce <= pe
		}
		return false

	case KindMonitor:
		if child.Kind != KindMonitor {
			return false
		}
		p, c := parent.monitor, child.monitor
		return p.Begin <= c.Begin && c.End <= p.End

	case KindChannel:
		p := parent.channel
		switch child.Kind {
		case KindChannel:
			c := child.channel
			return p.Begin <= c.Begin && c.End <= p.End
		case KindSocket:
			c := child.socket
			return c.Channel >= p.Begin && c.Channel < p.End
		}
		return false

	case KindSocket:
		if child.Kind != KindSocket {
			return false
		}
		p, c := parent.socket, child.socket
		return p.Tag == 0 && p.Channel == c.Channel
	}
	return false
}

// IsDerivableFrom reports whether new can be carved from parent right
// now: stricter than IsChild, requiring an append-only carve off
// parent's watermark, freshness of new, and a permission subset where
// applicable.
func IsDerivableFrom(parent, new Cap) bool {
	if !IsChild(parent, new) {
		return false
	}

	switch parent.Kind {
	case KindTime:
		p, n := parent.time, new.time
		return n.Begin < n.End && n.Free == n.Begin && p.Free == n.Begin

	case KindMemory:
		p := parent.memory
		switch new.Kind {
		case KindMemory:
			n := new.memory
			return !p.Lock && n.Begin < n.End && n.Free == n.Begin &&
				p.Free == n.Begin && n.RWX.Subset(p.RWX)
		case KindPMP:
			n := new.pmp
			if n.Used || !n.RWX.Subset(p.RWX) {
				return false
			}
			cb, ce := NAPOTRange(n.Addr)
			if cb >= ce {
				return false
			}
			if p.Lock {
				// Must fit strictly inside the already-allocated prefix.
				pb, pe := p.FrameAddr(p.Begin), p.FrameAddr(p.Free)
				return pb <= cb && ce <= pe
			}
			// Unlocked: carve out of the unallocated suffix, same as a
			// normal append, but this carve does not advance the
			// watermark -- it sets Lock instead.
			pb, pe := p.FrameAddr(p.Free), p.FrameAddr(p.End)
			return pb <= cb && ce <= pe
		}
		return false

	case KindMonitor:
		p, n := parent.monitor, new.monitor
		return n.Begin < n.End && n.Free == n.Begin && p.Free == n.Begin

	case KindChannel:
		p := parent.channel
		switch new.Kind {
		case KindChannel:
			n := new.channel
			return n.Begin < n.End && n.Free == n.Begin && p.Free == n.Begin
		case KindSocket:
			n := new.socket
			return n.Tag == 0 && n.Channel == p.Free
		}
		return false

	case KindSocket:
		p, n := parent.socket, new.socket
		return p.Tag == 0 && n.Tag > 0 && n.Channel == p.Channel
	}
	return false
}

// NextFree computes the watermark parent should carry after
// successfully deriving new from it. Slice-like kinds (Time, Memory,
// Monitor, Channel-from-Channel) advance to new's End; a server
// Socket derived from a Channel consumes exactly one channel id;
// Memory deriving a PMP and Socket deriving a Socket do not move the
// watermark at all.
func NextFree(parent, new Cap) uint16 {
	switch parent.Kind {
	case KindTime:
		return new.time.End
	case KindMemory:
		if new.Kind == KindMemory {
			return new.memory.End
		}
		return parent.memory.Free
	case KindMonitor:
		return new.monitor.End
	case KindChannel:
		if new.Kind == KindChannel {
			return new.channel.End
		}
		return new.socket.Channel + 1
	}
	return 0
}
