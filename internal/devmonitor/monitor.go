// Package devmonitor is a raw-terminal live status view of a project's
// node states, grounded on terminal_host.go's golang.org/x/term raw-mode
// handling, generalized from raw stdin input (reading firmware keystrokes)
// to raw stdout output (redrawing a status line in place without the
// terminal echoing control characters into the scrollback).
package devmonitor

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/term"
)

// NodeStatus is one line of the status view: a node's identity and a
// short human-readable state string (e.g. a shader's last error, an
// output's last write result).
type NodeStatus struct {
	ID    string
	Kind  string
	State string
}

// Monitor redraws a fixed-height status block in place on a raw terminal.
// cmd/lp-host creates one in every mode but only calls Start outside
// headless mode, so headless runs append plain lines. Never used in tests.
type Monitor struct {
	mu       sync.Mutex
	out      io.Writer
	fd       int
	oldState *term.State
	raw      bool
	lastRows int
}

func New() *Monitor {
	return &Monitor{out: os.Stdout, fd: int(os.Stdout.Fd())}
}

// Start puts the terminal into raw mode so the monitor can redraw lines
// in place instead of scrolling. If stdout isn't a real terminal (e.g.
// piped to a file), Start is a no-op and Render falls back to appending
// plain lines.
func (m *Monitor) Start() error {
	if !term.IsTerminal(m.fd) {
		return nil
	}
	old, err := term.MakeRaw(m.fd)
	if err != nil {
		return fmt.Errorf("devmonitor: failed to set raw mode: %w", err)
	}
	m.oldState = old
	m.raw = true
	return nil
}

func (m *Monitor) Stop() {
	if m.raw && m.oldState != nil {
		_ = term.Restore(m.fd, m.oldState)
		m.raw = false
	}
}

// Render repaints the status block for the given frame, sorted by node ID
// for a stable, diffable-by-eye display across ticks.
func (m *Monitor) Render(frame uint64, statuses []NodeStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sorted := make([]NodeStatus, len(statuses))
	copy(sorted, statuses)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var b strings.Builder
	if m.raw {
		// Move cursor up over the previous block, then overwrite it.
		for i := 0; i < m.lastRows; i++ {
			b.WriteString("\x1b[1A\x1b[2K")
		}
	}
	fmt.Fprintf(&b, "frame %d\r\n", frame)
	for _, s := range sorted {
		fmt.Fprintf(&b, "  [%s] %-8s %s\r\n", s.ID, s.Kind, s.State)
	}
	m.lastRows = len(sorted) + 1
	io.WriteString(m.out, b.String())
}
