// Package kernel wires every component (captable, proc, sched, ipc,
// platform, engine) into one running separation kernel: one hart run
// loop per hardware thread, dispatching whatever syscall a workload
// issues when the scheduler hands it a process.
package kernel

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/s3k-go/s3k/captable"
	"github.com/s3k-go/s3k/engine"
	"github.com/s3k-go/s3k/ipc"
	"github.com/s3k-go/s3k/platform"
	"github.com/s3k-go/s3k/proc"
	"github.com/s3k-go/s3k/sched"
)

// Fault is a kernel assertion failure: assertion failures are fatal,
// halting the offending hart with a serial diagnostic. It is panicked
// by workloads or kernel-internal code
// that detects a violated invariant, and recovered at the top of each
// hart's run loop rather than propagated as an ordinary Go error.
type Fault struct {
	Hart   int
	Reason string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("hart %d fault: %s", f.Hart, f.Reason)
}

// Workload drives whatever process the scheduler hands a hart for one
// quantum: Step is invoked once per syscall trap and returns whether
// the process has another trap queued up before its slice ends.
// cmd/s3ksim's trace player implements Workload by replaying a
// recorded syscall sequence per pid.
type Workload interface {
	Step(hart int, pid uint16, eng *engine.Engine) (more bool)
}

// Kernel owns every component and the per-hart run loops over them.
type Kernel struct {
	Forest *captable.Forest
	Procs  *proc.Table
	Sched  *sched.Table
	IPC    *ipc.Registry
	Plat   platform.Platform
	Engine *engine.Engine
	Cfg    *platform.Config
	Log    *logrus.Entry
}

// New builds a Kernel from an already-loaded Config and Platform,
// seeding process 0's capability table from the config's boot
// capability list.
func New(cfg *platform.Config, plat platform.Platform, log *logrus.Entry) (*Kernel, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	forest := captable.NewForest(cfg.NProc, cfg.NCap)
	procs := proc.NewTable(cfg.NProc)
	schedule := sched.NewTable(sched.Config{
		NHart:   cfg.NHart,
		NSlot:   cfg.NSlot,
		SlotLen: cfg.SlotLen,
		Slack:   cfg.Slack,
	})
	reg := ipc.NewRegistry(cfg.NChannel)
	eng := engine.New(forest, procs, schedule, reg, plat, log)

	k := &Kernel{
		Forest: forest,
		Procs:  procs,
		Sched:  schedule,
		IPC:    reg,
		Plat:   plat,
		Engine: eng,
		Cfg:    cfg,
		Log:    log,
	}
	if err := k.seedBootCapabilities(); err != nil {
		return nil, errors.Wrap(err, "kernel: seeding boot capabilities")
	}
	return k, nil
}

// Boot loads a platform descriptor from fs and builds a Kernel over
// it — the path cmd/s3ksim's boot subcommand drives.
func Boot(fs afero.Fs, descriptorPath string, plat platform.Platform, log *logrus.Entry) (*Kernel, error) {
	cfg, err := platform.LoadConfig(fs, descriptorPath)
	if err != nil {
		return nil, errors.Wrap(err, "kernel: loading platform descriptor")
	}
	return New(cfg, plat, log)
}

// seedBootCapabilities installs the config's boot capability list into
// process 0's table as one derivation chain: the first entry
// self-linked via SeedRoot, every following entry spliced in right
// after the previous one, in cidx order.
func (k *Kernel) seedBootCapabilities() error {
	caps, err := k.Cfg.BootCapabilities()
	if err != nil {
		return err
	}
	if len(caps) == 0 {
		return nil
	}

	prev, code := k.Forest.Handle(0, 0)
	if !code.Ok() {
		return errors.Errorf("boot capability 0 out of range (n_cap=%d)", k.Cfg.NCap)
	}
	k.Forest.SeedRoot(prev, caps[0])

	for i := 1; i < len(caps); i++ {
		h, code := k.Forest.Handle(0, uint16(i))
		if !code.Ok() {
			return errors.Errorf("boot capability %d out of range (n_cap=%d)", i, k.Cfg.NCap)
		}
		if insCode := k.Forest.Insert(h, caps[i], prev); !insCode.Ok() {
			return errors.Errorf("installing boot capability %d: %s", i, insCode)
		}
		prev = h
	}
	return nil
}

// Run starts one goroutine per hart and blocks until ctx is canceled
// or a hart's workload raises a Fault: one dedicated executor
// goroutine runs per hart, and every hart runs in parallel.
func (k *Kernel) Run(ctx context.Context, wl Workload) error {
	g, ctx := errgroup.WithContext(ctx)
	for hart := 0; hart < k.Cfg.NHart; hart++ {
		hart := hart
		g.Go(func() error {
			return k.runHart(ctx, hart, wl)
		})
	}
	return g.Wait()
}

// runHart repeatedly asks the scheduler for a process and, once
// picked, drives it through wl until it yields its slice or the
// context is canceled. A panicked Fault is caught here, logged, and
// turned into a platform Halt without tearing down the whole process.
func (k *Kernel) runHart(ctx context.Context, hart int, wl Workload) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		fault, ok := r.(*Fault)
		if !ok {
			fault = &Fault{Hart: hart, Reason: fmt.Sprintf("%v", r)}
		}
		k.Log.WithField("hart", hart).Error(fault.Error())
		k.Plat.Halt(hart)
		err = fault
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		pid, result := k.Sched.PickOnce(hart, k.Plat.Now(), k.Procs)
		if result != sched.Picked {
			continue
		}

		k.runSlice(ctx, hart, pid, wl)
	}
}

// hartPMP adapts platform.PMPWriter to proc.HWPMP for a single hart,
// so a PCB's shadow can be flushed without the PCB knowing which hart
// it landed on.
type hartPMP struct {
	plat platform.Platform
	hart int
}

func (h hartPMP) WritePMP(index int, rwx uint8, addr uint64, set bool) {
	h.plat.WritePMP(h.hart, index, rwx, addr, set)
}

// runSlice drives one dispatched process through wl.Step until it has
// no more queued traps, its slice ends, or ctx is canceled, then
// releases it back to idle for the scheduler's next pick.
func (k *Kernel) runSlice(ctx context.Context, hart int, pid uint16, wl Workload) {
	p := k.Procs.Get(pid)
	defer p.Release()

	k.Plat.SetTimer(hart, p.Start)
	k.Plat.SetTimer(hart, p.SliceEnd)
	p.PMPLoad(hartPMP{plat: k.Plat, hart: hart})

	for wl.Step(hart, pid, k.Engine) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if k.Plat.Now() >= p.SliceEnd {
			return
		}
	}
}
