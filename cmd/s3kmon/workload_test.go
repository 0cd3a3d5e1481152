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

func TestNewDashboardWorkloadWithNoTraceIsIdle(t *testing.T) {
	w, err := newDashboardWorkload("")
	require.NoError(t, err)
	assert.False(t, w.Step(0, 0, testEngine()))
	assert.Empty(t, w.recent())
}

func TestDashboardWorkloadReplaysTraceAndRecordsActivity(t *testing.T) {
	fs := afero.NewOsFs()
	dir := t.TempDir()
	tracePath := dir + "/trace.jsonl"
	body := `{"pid":0,"hart":0,"sys":3,"args":[0,0,0,0,0,0]}
{"pid":0,"hart":0,"sys":3,"args":[0,0,0,0,0,0]}
`
	require.NoError(t, afero.WriteFile(fs, tracePath, []byte(body), 0o644))

	w, err := newDashboardWorkload(tracePath)
	require.NoError(t, err)

	eng := testEngine()
	more := w.Step(0, 0, eng)
	assert.True(t, more, "one entry remains for pid 0")
	more = w.Step(0, 0, eng)
	assert.False(t, more)

	lines := w.recent()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "pid=0")
}

func TestNewDashboardWorkloadRejectsMissingTrace(t *testing.T) {
	_, err := newDashboardWorkload("/does/not/exist.jsonl")
	assert.Error(t, err)
}
