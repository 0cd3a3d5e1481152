package main

import "sync"

// faultState records the error the kernel's hart executor returned
// with (a kernel.Fault or any other error), so the dashboard can
// surface it instead of silently going stale. A return without an
// error is not recorded.
type faultState struct {
	mu  sync.Mutex
	msg string
}

func (f *faultState) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.msg = err.Error()
	}
}

func (f *faultState) get() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msg
}
