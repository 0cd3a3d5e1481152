package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s3k-go/s3k/proc"
)

func testConfig() Config {
	return Config{NHart: 2, NSlot: 16, SlotLen: 100, Slack: 5}
}

func TestInitGivesWholeRoundToPidZero(t *testing.T) {
	tbl := NewTable(testConfig())
	for h := 0; h < 2; h++ {
		for s := 0; s < 16; s++ {
			e := tbl.At(h, s)
			assert.Equal(t, uint16(0), e.Pid)
			assert.Equal(t, uint16(16), e.EndSlot)
		}
	}
}

func TestUpdateAndDeleteBumpTimestamp(t *testing.T) {
	tbl := NewTable(testConfig())
	before := tbl.Timestamp()

	tbl.Update(0, 2, 5, 3, 5)
	assert.Greater(t, tbl.Timestamp(), before)
	assert.Equal(t, Entry{Pid: 3, EndSlot: 5}, tbl.At(0, 3))
	assert.Equal(t, Entry{Pid: 0, EndSlot: 16}, tbl.At(0, 1), "untouched slots are unaffected")

	afterUpdate := tbl.Timestamp()
	tbl.Delete(0, 2, 5)
	assert.Greater(t, tbl.Timestamp(), afterUpdate)
	assert.Equal(t, NonePid, tbl.At(0, 3).Pid)
}

func TestPickOnceReturnsUnownedSlot(t *testing.T) {
	tbl := NewTable(testConfig())
	procs := proc.NewTable(4)
	tbl.Delete(0, 0, 16)

	_, result := tbl.PickOnce(0, 0, procs)
	assert.Equal(t, RetryUnowned, result)
}

func TestPickOnceHappyPathAcquiresProcess(t *testing.T) {
	tbl := NewTable(testConfig())
	procs := proc.NewTable(4)

	pid, result := tbl.PickOnce(0, 0, procs)
	assert.Equal(t, Picked, result)
	assert.Equal(t, uint16(0), pid)

	p := procs.Get(0)
	assert.True(t, p.Load().Busy())
	assert.Equal(t, uint64(100), p.SliceEnd)
}

func TestPickOnceFailsWhenProcessAlreadyBusy(t *testing.T) {
	tbl := NewTable(testConfig())
	procs := proc.NewTable(4)
	procs.Get(0).Acquire()

	_, result := tbl.PickOnce(0, 0, procs)
	assert.Equal(t, RetryBusy, result)
}

func TestPickOnceRetriesWhenNotWinningHart(t *testing.T) {
	cfg := testConfig()
	tbl := NewTable(cfg)
	procs := proc.NewTable(4)

	// Both harts name pid 2 at slot 0; hart 1's run is longer, so
	// hart 0 must retry rather than double-dispatch pid 2.
	tbl.Update(0, 0, 1, 2, 1)
	tbl.Update(1, 0, 1, 2, 8)
	procs.Get(2).Resume() // non-zero pids boot SUSPENDED; make it schedulable

	_, result := tbl.PickOnce(0, 0, procs)
	assert.Equal(t, RetryNotWinner, result)

	pid, result := tbl.PickOnce(1, 0, procs)
	assert.Equal(t, Picked, result)
	assert.Equal(t, uint16(2), pid)
}

func TestPickOnceRespectsSleepUntil(t *testing.T) {
	tbl := NewTable(testConfig())
	procs := proc.NewTable(4)
	procs.Get(0).SleepUntil = 10_000

	_, result := tbl.PickOnce(0, 0, procs)
	assert.Equal(t, RetrySleeping, result)
	assert.False(t, procs.Get(0).Load().Busy(), "process is released back to idle on RetrySleeping")
}

func TestYieldReleasesForNextPick(t *testing.T) {
	tbl := NewTable(testConfig())
	procs := proc.NewTable(4)

	pid, result := tbl.PickOnce(0, 0, procs)
	assert.Equal(t, Picked, result)

	Yield(procs.Get(pid))
	assert.False(t, procs.Get(pid).Load().Busy())

	_, result = tbl.PickOnce(0, 0, procs)
	assert.Equal(t, Picked, result)
}
