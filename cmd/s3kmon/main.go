// Command s3kmon is a live terminal dashboard over a running
// simulated s3k kernel: a per-hart schedule strip, a flat listing of
// a selected process's occupied capability slots, and the IPC channel
// listener table,
// refreshed on a tick while a background workload drives syscall
// traffic through the kernel.
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/s3k-go/s3k/kernel"
	"github.com/s3k-go/s3k/platform"
)

func main() {
	descriptor := pflag.String("descriptor", "platform.toml", "path to the TOML platform descriptor")
	tracePath := pflag.String("trace", "", "optional JSON-lines syscall trace to replay while the dashboard is open")
	pflag.Parse()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	sim := platform.NewSim(64, nil)
	k, err := kernel.Boot(afero.NewOsFs(), *descriptor, sim, logrus.NewEntry(log))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wl, err := newDashboardWorkload(*tracePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var fault faultState
	go func() {
		if err := k.Run(ctx, wl); err != nil {
			fault.set(err)
			log.WithError(err).Error("kernel run ended")
		}
	}()

	m := newModel(k, sim, wl, &fault)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
