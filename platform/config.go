package platform

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/s3k-go/s3k/cap"
)

// Config carries the fixed platform constants, set once at boot.
type Config struct {
	NProc    int `toml:"n_proc"`
	NCap     int `toml:"n_cap"`
	NChannel int `toml:"n_channel"`
	NHart    int `toml:"n_hart"`
	NPMP     int `toml:"n_pmp"`
	NSlot    int `toml:"n_slot"`
	SlotLen  uint64 `toml:"slot_len"`
	Slack    uint64 `toml:"slack"`

	BootCaps []BootCap `toml:"boot_cap"`
}

// BootCap is one entry of the platform-declared initial capability
// set, as it appears in the TOML descriptor. Exactly one
// of the kind-specific field groups is meaningful, selected by Kind.
type BootCap struct {
	Kind string `toml:"kind"`

	// time
	HartID uint8 `toml:"hart_id"`

	// memory / monitor / channel / time share begin/free/end
	Begin uint16 `toml:"begin"`
	Free  uint16 `toml:"free"`
	End   uint16 `toml:"end"`

	// memory
	RWX    string `toml:"rwx"`
	Lock   bool   `toml:"lock"`
	Offset uint8  `toml:"offset"`

	// pmp
	Used  bool   `toml:"used"`
	Index uint8  `toml:"index"`
	Addr  uint64 `toml:"addr"`

	// socket
	Channel uint16 `toml:"channel"`
	Tag     uint16 `toml:"tag"`
}

func parseRWX(s string) cap.RWX {
	var r cap.RWX
	for _, c := range s {
		switch c {
		case 'r', 'R':
			r |= cap.R
		case 'w', 'W':
			r |= cap.W
		case 'x', 'X':
			r |= cap.X
		}
	}
	return r
}

// ToCap converts a descriptor entry into a real capability.
func (b BootCap) ToCap() (cap.Cap, error) {
	switch b.Kind {
	case "time":
		return cap.NewTime(cap.Time{HartID: b.HartID, Begin: b.Begin, Free: b.Free, End: b.End}), nil
	case "memory":
		return cap.NewMemory(cap.Memory{RWX: parseRWX(b.RWX), Lock: b.Lock, Offset: b.Offset, Begin: b.Begin, Free: b.Free, End: b.End}), nil
	case "pmp":
		return cap.NewPMP(cap.PMP{RWX: parseRWX(b.RWX), Used: b.Used, Index: b.Index, Addr: b.Addr}), nil
	case "monitor":
		return cap.NewMonitor(cap.Monitor{Begin: b.Begin, Free: b.Free, End: b.End}), nil
	case "channel":
		return cap.NewChannel(cap.Channel{Begin: b.Begin, Free: b.Free, End: b.End}), nil
	case "socket":
		return cap.NewSocket(cap.Socket{Channel: b.Channel, Tag: b.Tag}), nil
	default:
		return cap.None, errors.Errorf("platform: unknown boot capability kind %q", b.Kind)
	}
}

// LoadConfig reads and parses a TOML platform descriptor from fs. Tests
// pass an afero.NewMemMapFs(); production callers pass afero.NewOsFs().
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "platform: reading descriptor %s", path)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.Wrapf(err, "platform: decoding descriptor %s", path)
	}

	if cfg.NProc <= 0 || cfg.NCap <= 0 || cfg.NHart <= 0 || cfg.NSlot <= 0 {
		return nil, errors.Errorf("platform: descriptor %s has invalid dimensions: %+v", path, cfg)
	}

	return &cfg, nil
}

// BootCapabilities resolves every descriptor entry into a real
// capability, failing closed on the first malformed one.
func (c *Config) BootCapabilities() ([]cap.Cap, error) {
	caps := make([]cap.Cap, 0, len(c.BootCaps))
	for i, b := range c.BootCaps {
		cp, err := b.ToCap()
		if err != nil {
			return nil, errors.Wrapf(err, "platform: boot capability %d", i)
		}
		caps = append(caps, cp)
	}
	return caps, nil
}
