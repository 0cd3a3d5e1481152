package proc

// HWPMP is the hardware hook a platform implements to flush a
// process's PMP shadow into the real PMP registers on dispatch (the
// platform's `pmp_write_hw(proc)` leaf).
type HWPMP interface {
	WritePMP(index int, rwx uint8, addr uint64, set bool)
}

// PMPSet stores a NAPOT-encoded region into shadow slot i.
func (p *PCB) PMPSet(i int, addr uint64, rwx uint8) {
	p.PMP[i] = PMPEntry{Set: true, RWX: rwx & 0x7, Addr: addr}
}

// PMPClear empties shadow slot i.
func (p *PCB) PMPClear(i int) {
	p.PMP[i] = PMPEntry{}
}

// PMPIsSet reports whether shadow slot i currently holds a region.
func (p *PCB) PMPIsSet(i int) bool {
	return p.PMP[i].Set
}

// PMPLoad flushes the whole shadow into hardware via hw, called by
// the kernel's per-hart run loop immediately before dispatching the
// owning process.
func (p *PCB) PMPLoad(hw HWPMP) {
	for i, e := range p.PMP {
		hw.WritePMP(i, e.RWX, e.Addr, e.Set)
	}
}
