package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/s3k-go/s3k/kernel"
	"github.com/s3k-go/s3k/platform"
)

const tickInterval = 200 * time.Millisecond

type tickMsg time.Time

type model struct {
	k     *kernel.Kernel
	sim   *platform.Sim
	wl    *dashboardWorkload
	fault *faultState

	selectedPid  uint16
	selectedHart int

	width, height int
}

func newModel(k *kernel.Kernel, sim *platform.Sim, wl *dashboardWorkload, fault *faultState) model {
	return model{k: k, sim: sim, wl: wl, fault: fault}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		m.sim.Advance(m.k.Cfg.SlotLen)
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.selectedPid > 0 {
				m.selectedPid--
			}
		case "down", "j":
			if int(m.selectedPid) < m.k.Cfg.NProc-1 {
				m.selectedPid++
			}
		case "left", "h":
			if m.selectedHart > 0 {
				m.selectedHart--
			}
		case "right", "l":
			if m.selectedHart < m.k.Cfg.NHart-1 {
				m.selectedHart++
			}
		}
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	fmt.Fprintln(&b, headerStyle.Render("s3kmon — live separation-kernel dashboard"))
	fmt.Fprintf(&b, " now=%d  hart %d/%d  pid %d/%d  (arrows/hjkl to navigate, q to quit)\n",
		m.sim.Now(), m.selectedHart, m.k.Cfg.NHart-1, m.selectedPid, m.k.Cfg.NProc-1)

	if msg := m.fault.get(); msg != "" {
		b.WriteString(faultStyle.Render("hart executor stopped: "+msg) + "\n")
	}

	b.WriteString(sectionStyle.Render("Schedule"))
	b.WriteString("\n")
	for hart := 0; hart < m.k.Cfg.NHart; hart++ {
		b.WriteString(renderHartRow(m, hart))
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Capabilities — pid %d", m.selectedPid)))
	b.WriteString("\n")
	b.WriteString(renderCapTable(m))

	b.WriteString(sectionStyle.Render("IPC channel listeners"))
	b.WriteString("\n")
	b.WriteString(renderChannelTable(m))

	b.WriteString(sectionStyle.Render("Recent syscall activity"))
	b.WriteString("\n")
	lines := m.wl.recent()
	if len(lines) == 0 {
		b.WriteString(dimStyle.Render("  (none yet)\n"))
	}
	for _, line := range lines {
		b.WriteString("  " + line + "\n")
	}

	b.WriteString(helpStyle.Render("hjkl/arrows: select pid/hart   q: quit"))
	return b.String()
}

func renderHartRow(m model, hart int) string {
	var row strings.Builder
	row.WriteString(strconv.Itoa(hart) + ": ")
	for slot := 0; slot < m.k.Cfg.NSlot; slot++ {
		e := m.k.Sched.At(hart, slot)
		label := strconv.Itoa(int(e.Pid))
		style := slotStyle
		if hart == m.selectedHart {
			style = selectedSlotStyle
		}
		row.WriteString(style.Render(label))
	}
	return row.String()
}

func renderCapTable(m model) string {
	var b strings.Builder
	found := false
	for idx := 0; idx < m.k.Cfg.NCap; idx++ {
		h, code := m.k.Forest.Handle(m.selectedPid, uint16(idx))
		if !code.Ok() {
			break
		}
		if m.k.Forest.IsEmpty(h) {
			continue
		}
		found = true
		c := m.k.Forest.At(h)
		fmt.Fprintf(&b, "  [%3d] %-8s begin=%-5d free=%-5d end=%-5d\n", idx, c.Kind, c.Begin(), c.Free(), c.End())
	}
	if !found {
		b.WriteString(dimStyle.Render("  (empty)\n"))
	}
	return b.String()
}

func renderChannelTable(m model) string {
	var b strings.Builder
	found := false
	for ch := 0; ch < m.k.IPC.NChannels(); ch++ {
		pid, ok := m.k.IPC.Listener(uint16(ch))
		if !ok {
			continue
		}
		found = true
		fmt.Fprintf(&b, "  channel %3d -> pid %d\n", ch, pid)
	}
	if !found {
		b.WriteString(dimStyle.Render("  (no listeners)\n"))
	}
	return b.String()
}
