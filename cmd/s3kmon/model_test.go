package main

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/s3k-go/s3k/kernel"
	"github.com/s3k-go/s3k/platform"
)

const modelTestDescriptor = `
n_proc = 2
n_cap = 4
n_channel = 2
n_hart = 1
n_pmp = 2
n_slot = 4
slot_len = 10
slack = 0

[[boot_cap]]
kind = "memory"
rwx = "rwx"
offset = 1
begin = 0
free = 0
end = 16
`

func testModel(t *testing.T) model {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/boot.toml", []byte(modelTestDescriptor), 0o644))

	sim := platform.NewSim(1, nil)
	k, err := kernel.Boot(fs, "/boot.toml", sim, nil)
	require.NoError(t, err)

	wl, err := newDashboardWorkload("")
	require.NoError(t, err)

	var fault faultState
	return newModel(k, sim, wl, &fault)
}

func TestRenderCapTableShowsSeededBootCapability(t *testing.T) {
	m := testModel(t)
	out := renderCapTable(m)
	if !strings.Contains(out, "memory") {
		t.Errorf("expected the seeded memory capability to appear, got:\n%s", out)
	}
}

func TestRenderCapTableReportsEmptyForUnseededPid(t *testing.T) {
	m := testModel(t)
	m.selectedPid = 1
	out := renderCapTable(m)
	if !strings.Contains(out, "empty") {
		t.Errorf("expected pid 1's table to be reported empty, got:\n%s", out)
	}
}

func TestRenderChannelTableReportsNoListenersInitially(t *testing.T) {
	m := testModel(t)
	out := renderChannelTable(m)
	if !strings.Contains(out, "no listeners") {
		t.Errorf("expected no listeners initially, got:\n%s", out)
	}
}

func TestRenderHartRowShowsEveryOwnedSlot(t *testing.T) {
	m := testModel(t)
	out := renderHartRow(m, 0)
	if !strings.Contains(out, "0") {
		t.Errorf("expected pid 0 to own every slot at boot, got:\n%s", out)
	}
}

func TestViewIncludesFaultBanner(t *testing.T) {
	m := testModel(t)
	m.fault.set(errForTest{"hart 0 fault: simulated"})
	out := m.View()
	if !strings.Contains(out, "hart executor stopped") {
		t.Errorf("expected fault banner in view, got:\n%s", out)
	}
}

type errForTest struct{ msg string }

func (e errForTest) Error() string { return e.msg }
