package platform

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3k-go/s3k/cap"
)

const sampleDescriptor = `
n_proc = 4
n_cap = 16
n_channel = 4
n_hart = 2
n_pmp = 8
n_slot = 64
slot_len = 100
slack = 5

[[boot_cap]]
kind = "pmp"
rwx = "rw"
addr = 4096

[[boot_cap]]
kind = "memory"
rwx = "rwx"
begin = 0
free = 0
end = 256
offset = 1

[[boot_cap]]
kind = "time"
hart_id = 0
begin = 0
free = 0
end = 64

[[boot_cap]]
kind = "monitor"
begin = 0
free = 0
end = 4

[[boot_cap]]
kind = "channel"
begin = 0
free = 0
end = 4
`

func TestLoadConfigParsesDimensionsAndBootCaps(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/plat.toml", []byte(sampleDescriptor), 0o644))

	cfg, err := LoadConfig(fs, "/plat.toml")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.NProc)
	assert.Equal(t, 64, cfg.NSlot)
	assert.Len(t, cfg.BootCaps, 5)

	caps, err := cfg.BootCapabilities()
	require.NoError(t, err)
	require.Len(t, caps, 5)
	assert.Equal(t, cap.KindPMP, caps[0].Kind)
	assert.Equal(t, cap.KindMemory, caps[1].Kind)
	assert.Equal(t, cap.RWXAll, caps[1].MustMemory().RWX)
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := LoadConfig(fs, "/missing.toml")
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalidDimensions(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.toml", []byte("n_proc = 0\n"), 0o644))
	_, err := LoadConfig(fs, "/bad.toml")
	assert.Error(t, err)
}

func TestBootCapabilitiesRejectsUnknownKind(t *testing.T) {
	cfg := &Config{BootCaps: []BootCap{{Kind: "bogus"}}}
	_, err := cfg.BootCapabilities()
	assert.Error(t, err)
}

func TestSimClockAndPreemption(t *testing.T) {
	var buf bytes.Buffer
	sim := NewSim(2, &buf)

	assert.Equal(t, uint64(0), sim.Now())
	sim.Advance(10)
	assert.Equal(t, uint64(10), sim.Now())

	assert.False(t, sim.Preempted(0))
	sim.RaisePreemption(0)
	assert.True(t, sim.Preempted(0))
	assert.False(t, sim.Preempted(1))
	sim.ClearPreemption(0)
	assert.False(t, sim.Preempted(0))
}

func TestSimWritePMPRecordsCalls(t *testing.T) {
	sim := NewSim(1, nil)
	sim.WritePMP(0, 3, 0x5, 0x1000, true)
	writes := sim.PMPWrites()
	require.Len(t, writes, 1)
	assert.Equal(t, 3, writes[0].Index)
	assert.True(t, writes[0].Set)
}

func TestSimHaltWritesSerial(t *testing.T) {
	var buf bytes.Buffer
	sim := NewSim(1, &buf)
	sim.Halt(0)
	assert.Contains(t, buf.String(), "HALT")
}
