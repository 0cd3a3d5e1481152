package proc

// Table is the fixed-size array of every process in the system,
// indexed by pid. The process set is fixed at boot.
type Table struct {
	procs []*PCB
}

// NewTable allocates n processes, all SUSPENDED except pid 0, which
// boots READY.
func NewTable(n int) *Table {
	t := &Table{procs: make([]*PCB, n)}
	for i := range t.procs {
		t.procs[i] = New(uint16(i))
	}
	if n > 0 {
		t.procs[0].state.Store(0)
	}
	return t
}

// N reports the table's fixed size.
func (t *Table) N() int { return len(t.procs) }

// Get returns the PCB for pid, or nil if pid is out of range.
func (t *Table) Get(pid uint16) *PCB {
	if int(pid) >= len(t.procs) {
		return nil
	}
	return t.procs[pid]
}
