package main

import (
	"os"

	"github.com/s3k-go/s3k/platform"
)

// newSimPlatform builds the default simulated platform, emitting
// hart-halt diagnostics to stderr the way a real target's serial
// console would.
func newSimPlatform() *platform.Sim {
	return platform.NewSim(maxConfiguredHarts, os.Stderr)
}

// maxConfiguredHarts bounds platform.Sim's per-hart slices before the
// descriptor has been read. It is generous enough for any descriptor
// this simulator is expected to load; kernel.Boot sizes its own
// components from the descriptor's n_hart and does not check it
// against this bound.
const maxConfiguredHarts = 64
