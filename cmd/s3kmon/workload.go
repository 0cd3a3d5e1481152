package main

import (
	"bufio"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/s3k-go/s3k/engine"
)

// traceEntry mirrors s3ksim's trace line format, kept independent here
// so s3kmon stays a self-contained binary rather than depending on
// s3ksim for a single struct.
type traceEntry struct {
	Pid  uint16    `json:"pid"`
	Hart int       `json:"hart"`
	Sys  int       `json:"sys"`
	Args [6]uint64 `json:"args"`
}

// dashboardWorkload drives syscall traffic while the TUI is open. With
// no trace file it is a no-op: the schedule still advances, every
// slot simply has nothing to dispatch.
type dashboardWorkload struct {
	mu     sync.Mutex
	queues map[uint16][]traceEntry
	log    []string
}

func newDashboardWorkload(tracePath string) (*dashboardWorkload, error) {
	w := &dashboardWorkload{queues: make(map[uint16][]traceEntry)}
	if tracePath == "" {
		return w, nil
	}

	f, err := afero.NewOsFs().Open(tracePath)
	if err != nil {
		return nil, errors.Wrap(err, "s3kmon: opening trace")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e traceEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, errors.Wrap(err, "s3kmon: decoding trace line")
		}
		w.queues[e.Pid] = append(w.queues[e.Pid], e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return w, nil
}

// Step dispatches the next queued entry for pid, if any, and records a
// one-line summary the dashboard's recent-activity panel displays.
func (w *dashboardWorkload) Step(hart int, pid uint16, eng *engine.Engine) bool {
	w.mu.Lock()
	q := w.queues[pid]
	if len(q) == 0 {
		w.mu.Unlock()
		return false
	}
	entry := q[0]
	w.queues[pid] = q[1:]
	remaining := len(w.queues[pid])
	w.mu.Unlock()

	res := eng.Dispatch(hart, pid, entry.Sys, entry.Args)
	w.record(pid, hart, entry.Sys, res.Code.String())
	return remaining > 0
}

func (w *dashboardWorkload) record(pid uint16, hart, sys int, code string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	line := formatActivity(pid, hart, sys, code)
	w.log = append(w.log, line)
	if len(w.log) > maxActivityLines {
		w.log = w.log[len(w.log)-maxActivityLines:]
	}
}

// recent returns a snapshot of the most recent activity lines, newest
// last, for the dashboard's View to render without racing Step.
func (w *dashboardWorkload) recent() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.log))
	copy(out, w.log)
	return out
}

const maxActivityLines = 8
