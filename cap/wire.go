package cap

// Raw packs c into its normative 64-bit wire representation: a 4-bit
// kind tag in the low bits, followed by kind-specific fields at fixed
// little-endian bit positions. The zero word is KindNone.
func (c Cap) Raw() uint64 {
	var w uint64
	w = setBits(w, uint64(c.Kind), 0, 4)

	switch c.Kind {
	case KindTime:
		t := c.time
		w = setBits(w, uint64(t.HartID), 4, 8)
		w = setBits(w, uint64(t.Begin), 12, 16)
		w = setBits(w, uint64(t.Free), 28, 16)
		w = setBits(w, uint64(t.End), 44, 16)

	case KindMemory:
		m := c.memory
		w = setBits(w, uint64(m.RWX), 4, 3)
		w = setBits(w, boolBit(m.Lock), 7, 1)
		w = setBits(w, uint64(m.Offset), 8, 8)
		w = setBits(w, uint64(m.Begin), 16, 16)
		w = setBits(w, uint64(m.Free), 32, 16)
		w = setBits(w, uint64(m.End), 48, 16)

	case KindPMP:
		p := c.pmp
		w = setBits(w, uint64(p.RWX), 4, 3)
		w = setBits(w, boolBit(p.Used), 7, 1)
		w = setBits(w, uint64(p.Index), 8, 4)
		w = setBits(w, p.Addr, 12, 48)

	case KindMonitor:
		m := c.monitor
		w = setBits(w, uint64(m.Begin), 4, 16)
		w = setBits(w, uint64(m.Free), 20, 16)
		w = setBits(w, uint64(m.End), 36, 16)

	case KindChannel:
		ch := c.channel
		w = setBits(w, uint64(ch.Begin), 4, 16)
		w = setBits(w, uint64(ch.Free), 20, 16)
		w = setBits(w, uint64(ch.End), 36, 16)

	case KindSocket:
		s := c.socket
		w = setBits(w, uint64(s.Channel), 4, 16)
		w = setBits(w, uint64(s.Tag), 20, 16)
	}

	return w
}

// FromRaw is the inverse of Raw.
func FromRaw(w uint64) Cap {
	kind := Kind(getBits(w, 0, 4))

	switch kind {
	case KindNone:
		return None

	case KindTime:
		return NewTime(Time{
			HartID: uint8(getBits(w, 4, 8)),
			Begin:  uint16(getBits(w, 12, 16)),
			Free:   uint16(getBits(w, 28, 16)),
			End:    uint16(getBits(w, 44, 16)),
		})

	case KindMemory:
		return NewMemory(Memory{
			RWX:    RWX(getBits(w, 4, 3)),
			Lock:   getBits(w, 7, 1) != 0,
			Offset: uint8(getBits(w, 8, 8)),
			Begin:  uint16(getBits(w, 16, 16)),
			Free:   uint16(getBits(w, 32, 16)),
			End:    uint16(getBits(w, 48, 16)),
		})

	case KindPMP:
		return NewPMP(PMP{
			RWX:   RWX(getBits(w, 4, 3)),
			Used:  getBits(w, 7, 1) != 0,
			Index: uint8(getBits(w, 8, 4)),
			Addr:  getBits(w, 12, 48),
		})

	case KindMonitor:
		return NewMonitor(Monitor{
			Begin: uint16(getBits(w, 4, 16)),
			Free:  uint16(getBits(w, 20, 16)),
			End:   uint16(getBits(w, 36, 16)),
		})

	case KindChannel:
		return NewChannel(Channel{
			Begin: uint16(getBits(w, 4, 16)),
			Free:  uint16(getBits(w, 20, 16)),
			End:   uint16(getBits(w, 36, 16)),
		})

	case KindSocket:
		return NewSocket(Socket{
			Channel: uint16(getBits(w, 4, 16)),
			Tag:     uint16(getBits(w, 20, 16)),
		})
	}

	return None
}

func setBits(word, value uint64, offset, width uint) uint64 {
	mask := (uint64(1)<<width - 1) << offset
	return (word &^ mask) | ((value << offset) & mask)
}

func getBits(word uint64, offset, width uint) uint64 {
	mask := uint64(1)<<width - 1
	return (word >> offset) & mask
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
