package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/s3k-go/s3k/engine"
	"github.com/s3k-go/s3k/kernel"
)

var traceCmd = &cobra.Command{
	Use:   "trace <file>",
	Short: "Replay a JSON-lines syscall trace against a booted kernel",
	Long: "Each line of the trace file is a JSON object:\n" +
		`  {"pid": 1, "hart": 0, "sys": 4, "args": [1, 0, 0, 0, 0, 0]}` + "\n" +
		"sys is one of the engine.Sys* syscall numbers. Entries for\n" +
		"the same pid replay in file order; entries for different pids may\n" +
		"interleave across harts.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := loadTrace(afero.NewOsFs(), args[0])
		if err != nil {
			return errors.Wrap(err, "s3ksim: loading trace")
		}

		k, err := kernel.Boot(afero.NewOsFs(), descriptorPath, newSimPlatform(), logrus.NewEntry(log))
		if err != nil {
			return errors.Wrap(err, "s3ksim: booting kernel")
		}

		wl := newTraceWorkload(entries, os.Stdout)

		ctx, cancel := context.WithCancel(cmd.Context())
		wl.cancel = cancel
		if wl.total == 0 {
			cancel()
		}

		if err := k.Run(ctx, wl); err != nil {
			var fault *kernel.Fault
			if errors.As(err, &fault) {
				return errors.Wrapf(fault, "s3ksim: trace replay faulted")
			}
			return err
		}
		fmt.Fprintf(os.Stderr, "replayed %d syscalls\n", wl.total)
		return nil
	},
}

// traceEntry is one recorded syscall trap.
type traceEntry struct {
	Pid  uint16    `json:"pid"`
	Hart int       `json:"hart"`
	Sys  int       `json:"sys"`
	Args [6]uint64 `json:"args"`
}

func loadTrace(fs afero.Fs, path string) (map[uint16][]traceEntry, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	byPid := make(map[uint16][]traceEntry)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var e traceEntry
		if err := json.Unmarshal(text, &e); err != nil {
			return nil, errors.Wrapf(err, "trace line %d", line)
		}
		byPid[e.Pid] = append(byPid[e.Pid], e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return byPid, nil
}

// traceWorkload replays a parsed trace through kernel.Run, canceling
// the run once every recorded entry has been dispatched.
type traceWorkload struct {
	mu     sync.Mutex
	queues map[uint16][]traceEntry
	total  int
	done   int
	cancel context.CancelFunc
	out    io.Writer
}

func newTraceWorkload(entries map[uint16][]traceEntry, out io.Writer) *traceWorkload {
	total := 0
	for _, q := range entries {
		total += len(q)
	}
	return &traceWorkload{queues: entries, total: total, out: out}
}

func (w *traceWorkload) Step(hart int, pid uint16, eng *engine.Engine) bool {
	w.mu.Lock()
	q := w.queues[pid]
	if len(q) == 0 {
		w.mu.Unlock()
		return false
	}
	entry := q[0]
	w.queues[pid] = q[1:]
	w.done++
	drained := w.done >= w.total
	remaining := len(w.queues[pid])
	w.mu.Unlock()

	res := eng.Dispatch(hart, pid, entry.Sys, entry.Args)
	fmt.Fprintf(w.out, "pid=%d hart=%d sys=%d -> code=%s words=%v\n", pid, hart, entry.Sys, res.Code, res.Words)

	if drained && w.cancel != nil {
		w.cancel()
	}
	return remaining > 0
}
