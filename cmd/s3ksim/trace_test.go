package main

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3k-go/s3k/captable"
	"github.com/s3k-go/s3k/engine"
	"github.com/s3k-go/s3k/ipc"
	"github.com/s3k-go/s3k/platform"
	"github.com/s3k-go/s3k/proc"
	"github.com/s3k-go/s3k/sched"
)

func testEngine() *engine.Engine {
	forest := captable.NewForest(2, 8)
	procs := proc.NewTable(2)
	scheduler := sched.NewTable(sched.Config{NHart: 1, NSlot: 4, SlotLen: 10, Slack: 0})
	reg := ipc.NewRegistry(4)
	sim := platform.NewSim(1, io.Discard)
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return engine.New(forest, procs, scheduler, reg, sim, logrus.NewEntry(l))
}

func TestLoadTraceGroupsEntriesByPid(t *testing.T) {
	fs := afero.NewMemMapFs()
	const traceBody = `{"pid": 1, "hart": 0, "sys": 3, "args": [0,0,0,0,0,0]}
{"pid": 0, "hart": 0, "sys": 3, "args": [0,0,0,0,0,0]}
{"pid": 1, "hart": 0, "sys": 4, "args": [1,2,0,0,0,0]}
`
	require.NoError(t, afero.WriteFile(fs, "/trace.jsonl", []byte(traceBody), 0o644))

	entries, err := loadTrace(fs, "/trace.jsonl")
	require.NoError(t, err)

	assert.Len(t, entries[0], 1)
	assert.Len(t, entries[1], 2)
	assert.Equal(t, 4, entries[1][1].Sys)
	assert.Equal(t, [6]uint64{1, 2, 0, 0, 0, 0}, entries[1][1].Args)
}

func TestLoadTraceRejectsMalformedLine(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.jsonl", []byte("not json\n"), 0o644))

	_, err := loadTrace(fs, "/bad.jsonl")
	assert.Error(t, err)
}

func TestTraceWorkloadStepDrainsQueueAndCancelsWhenDone(t *testing.T) {
	entries := map[uint16][]traceEntry{
		0: {{Pid: 0, Sys: 3}, {Pid: 0, Sys: 3}},
	}
	wl := newTraceWorkload(entries, discardWriter{})

	canceled := false
	wl.cancel = func() { canceled = true }
	eng := testEngine()

	more := wl.Step(0, 0, eng)
	assert.True(t, more, "one entry remains queued for pid 0")
	assert.False(t, canceled)

	more = wl.Step(0, 0, eng)
	assert.False(t, more)
	assert.True(t, canceled, "cancel fires once every recorded entry has been dispatched")
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
