// Package sched implements the time-partitioned scheduler: a static
// 2-D table schedule[hart][slot] -> (pid,
// end_slot), plus the dispatch logic that turns a wall-clock reading
// into a runnable process.
package sched

import (
	"sync/atomic"

	"github.com/s3k-go/s3k/proc"
)

// NonePid marks an unowned slot.
const NonePid = ^uint16(0)

// Entry is one cell of the schedule table.
type Entry struct {
	Pid     uint16
	EndSlot uint16
}

// Config carries the platform-declared constants that turn a
// wall-clock tick into a slot index.
type Config struct {
	NHart   int
	NSlot   int
	SlotLen uint64
	Slack   uint64
}

// Table is the static per-hart schedule plus the publish timestamp
// schedule_update/schedule_delete bump on every edit: a store fence
// and a timestamp bump so dispatch decisions computed before the edit
// are invalidated.
type Table struct {
	cfg       Config
	rows      [][]Entry
	timestamp atomic.Uint64
}

// NewTable builds a schedule table and runs schedule_init: every
// hart's slot row is given entirely to pid 0.
func NewTable(cfg Config) *Table {
	t := &Table{cfg: cfg, rows: make([][]Entry, cfg.NHart)}
	for h := range t.rows {
		row := make([]Entry, cfg.NSlot)
		for s := range row {
			row[s] = Entry{Pid: 0, EndSlot: uint16(cfg.NSlot)}
		}
		t.rows[h] = row
	}
	return t
}

// Timestamp reports the current publish generation.
func (t *Table) Timestamp() uint64 { return t.timestamp.Load() }

// Update writes (pid, endAt) into schedule[hart][from:to) and bumps
// the timestamp (schedule_update).
func (t *Table) Update(hart int, from, to int, pid uint16, endAt uint16) {
	for s := from; s < to; s++ {
		t.rows[hart][s] = Entry{Pid: pid, EndSlot: endAt}
	}
	t.timestamp.Add(1)
}

// Delete clears schedule[hart][from:to) to NonePid (schedule_delete).
func (t *Table) Delete(hart int, from, to int) {
	for s := from; s < to; s++ {
		t.rows[hart][s] = Entry{Pid: NonePid}
	}
	t.timestamp.Add(1)
}

// At reads a single cell, for inspection and tests.
func (t *Table) At(hart, slot int) Entry { return t.rows[hart][slot] }

// winningHart implements the cross-hart priority rule: among every
// hart whose row names pid at slot, the one
// whose run extends longest wins; ties break toward the lowest hart
// id. It is used to prevent the same pid being dispatched twice in
// the same slot across different harts.
func (t *Table) winningHart(slot int, pid uint16) int {
	best := -1
	bestRun := -1
	for h, row := range t.rows {
		e := row[slot]
		if e.Pid != pid {
			continue
		}
		run := int(e.EndSlot) - slot
		if run > bestRun {
			bestRun = run
			best = h
		}
	}
	return best
}

// slotFor converts a wall-clock reading into the slot index and the
// bounding quantum.
func (t *Table) slotFor(now uint64) (slot int, quantumStart, quantumEnd uint64) {
	adjusted := now + t.cfg.Slack
	tick := adjusted / t.cfg.SlotLen
	slot = int(tick) % t.cfg.NSlot
	quantumStart = tick * t.cfg.SlotLen
	quantumEnd = quantumStart + t.cfg.SlotLen
	return
}

// PickResult reports why a single dispatch attempt did not return a
// runnable process, so the caller's loop knows whether to retry
// immediately or wait for a state change.
type PickResult int

const (
	// Picked means p now holds the process, primed for this quantum.
	Picked PickResult = iota
	// RetryUnowned means the slot named NonePid; wait and retry.
	RetryUnowned
	// RetryStale means a concurrent edit raced this read; retry.
	RetryStale
	// RetryNotWinner means another hart owns this pid/slot pair.
	RetryNotWinner
	// RetryBusy means another hart currently holds the process.
	RetryBusy
	// RetrySleeping means the process is asleep past this quantum;
	// it was released back to idle and should not run this slot.
	RetrySleeping
)

// PickOnce attempts a single dispatch decision for hart at wall-clock
// now (schedule_pick). It does not block; a
// RetryUnowned/RetryStale/RetryNotWinner/RetryBusy/RetrySleeping
// result means the caller should re-observe and call again.
func (t *Table) PickOnce(hart int, now uint64, procs *proc.Table) (pid uint16, result PickResult) {
	slot, quantumStart, quantumEnd := t.slotFor(now)
	before := t.Timestamp()

	e := t.rows[hart][slot]
	if e.Pid == NonePid {
		return 0, RetryUnowned
	}

	if t.Timestamp() != before {
		return 0, RetryStale
	}

	if t.winningHart(slot, e.Pid) != hart {
		return 0, RetryNotWinner
	}

	p := procs.Get(e.Pid)
	if p == nil || !p.Acquire() {
		return 0, RetryBusy
	}

	if p.SleepUntil > quantumEnd {
		p.Release()
		return 0, RetrySleeping
	}

	p.SliceEnd = quantumEnd
	start := quantumStart
	if p.SleepUntil > start {
		start = p.SleepUntil
	}
	p.Start = start

	return e.Pid, Picked
}

// Yield releases p and is followed by the caller re-invoking
// PickOnce (schedule_yield).
func Yield(p *proc.PCB) {
	p.Release()
}
