// Package ui draws the controller state on a terminal and reads keystrokes
// from it.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"magnetctl/internal/domain"
	"magnetctl/internal/session"
)

var (
	errorColor   = lipgloss.Color("#EF4444")
	warningColor = lipgloss.Color("#F59E0B")
	successColor = lipgloss.Color("#10B981")
	mutedColor   = lipgloss.Color("#6B7280")
	primaryColor = lipgloss.Color("#7C3AED")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor)
	warningStyle  = lipgloss.NewStyle().Foreground(warningColor)
	doneStyle     = lipgloss.NewStyle().Foreground(successColor)
	mutedStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

const (
	clearScreen = "\x1b[H\x1b[2J"
	// the terminal is in raw mode, so lines need an explicit carriage return
	newline = "\r\n"

	progressWidth = 30
)

var helpLines = []string{
	"[q] quit            [space] pause/resume session   [m] add magnet",
	"[p] pause torrent   [D] delete torrent and data    [j] force recheck",
	"[r] reannounce      [v] scrape                     [s] toggle sequential",
	"[R] save resume     [o] set piece deadlines        [up/down] select",
	"[t] trackers  [i] peers  [l] log  [d] details  [f] progress  [g] dht  [x] disk  [h] help",
}

// Renderer redraws the whole screen on every call.
type Renderer struct {
	out   io.Writer
	clear bool
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out, clear: true}
}

func (r *Renderer) Render(st *session.State) {
	var b strings.Builder
	if r.clear {
		b.WriteString(clearScreen)
	}
	writeView(&b, st)
	_, _ = io.WriteString(r.out, b.String())
}

func writeView(b *strings.Builder, st *session.State) {
	line := func(format string, args ...any) {
		fmt.Fprintf(b, format, args...)
		b.WriteString(newline)
	}

	stats := st.UI.Stats
	status := "running"
	if stats.Paused {
		status = warningStyle.Render("paused")
	}
	line("%s  %s  peers: %d  down: %s/s  up: %s/s  saves pending: %d",
		titleStyle.Render("magnetctl"), status, stats.Peers,
		formatBytes(stats.DownloadRate), formatBytes(stats.UploadRate),
		st.Outstanding.Outstanding())
	if st.Phase != session.PhaseIdle {
		line("shutting down: %s", st.Phase)
	}

	for _, t := range st.UI.Torrents {
		row := torrentRow(t)
		if t.Identity == st.UI.Selected {
			row = selectedStyle.Render(row)
		}
		line("%s", row)
	}
	if len(st.UI.Torrents) == 0 {
		line("%s", mutedStyle.Render("no torrents"))
	}

	active, ok := st.UI.Active()
	if ok {
		writeActive(line, st.Display, active)
	}
	if st.Display.DiskStats {
		line("%s", sectionStyle.Render("disk"))
		line("read: %s  written: %s", formatBytes(stats.BytesRead), formatBytes(stats.BytesWritten))
	}
	if st.Display.DHT {
		writeDHT(line, st.UI.DHT)
	}
	if st.Display.Log {
		line("%s", sectionStyle.Render("events"))
		for _, e := range st.Events.Entries() {
			line("%s", eventStyle(e.Category).Render(e.String()))
		}
	}
	if st.Display.Help {
		line("%s", sectionStyle.Render("keys"))
		for _, h := range helpLines {
			line("%s", mutedStyle.Render(h))
		}
	}
}

func torrentRow(t domain.TorrentStatus) string {
	state := string(t.State)
	if t.Error != "" {
		state = errorStyle.Render("error")
	} else if t.State == domain.StateSeeding {
		state = doneStyle.Render(state)
	}
	name := t.Name
	if name == "" {
		name = t.Identity.Hex()
	}
	return fmt.Sprintf("%-40.40s %-11s %5.1f%% down: %s/s up: %s/s peers: %d (%d)",
		name, state, t.Progress()*100,
		formatBytes(t.DownloadRate), formatBytes(t.UploadRate),
		t.ActivePeers, t.TotalPeers)
}

func writeActive(line func(string, ...any), d session.Display, t domain.TorrentStatus) {
	if t.Error != "" {
		line("%s", errorStyle.Render(t.Error))
	}
	if d.Downloads {
		line("%s", sectionStyle.Render("details"))
		line("hash: %s  pieces: %d  size: %s  done: %s",
			t.Identity.Hex(), t.NumPieces, formatBytes(t.TotalSize), formatBytes(t.BytesCompleted))
		line("save path: %s  sequential: %t  max connections: %d",
			t.SavePath, t.Flags.Has(domain.FlagSequential), t.MaxConnections)
	}
	if d.FileProgress {
		line("%s", progressBar(t.Progress(), progressWidth))
	}
	if d.Peers {
		line("%s", sectionStyle.Render("peers"))
		line("connected: %d  active: %d  seeds: %d  half open: %d",
			t.TotalPeers, t.ActivePeers, t.ConnectedSeeders, t.HalfOpenPeers)
	}
	if d.Trackers {
		line("%s", sectionStyle.Render("trackers"))
		for _, tr := range t.Trackers {
			line("%s", tr)
		}
	}
}

func writeDHT(line func(string, ...any), s domain.DHTStatus) {
	line("%s", sectionStyle.Render("dht"))
	line("nodes: %d", len(s.Nodes))
	for _, n := range s.Nodes {
		line("%-24s %s", n.Addr, n.Stats)
	}
	for _, l := range s.Lookups {
		line("lookup: %s", l)
	}
}

func eventStyle(c domain.Category) lipgloss.Style {
	switch {
	case c.Has(domain.CategoryError):
		return errorStyle
	case c.Has(domain.CategoryPeer | domain.CategoryStorage):
		return warningStyle
	default:
		return lipgloss.NewStyle()
	}
}

func progressBar(p float64, width int) string {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	filled := int(p * float64(width))
	return "[" + doneStyle.Render(strings.Repeat("#", filled)) + strings.Repeat("-", width-filled) + "]"
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB",
		float64(b)/float64(div),
		"KMGTPE"[exp],
	)
}

var _ session.Renderer = (*Renderer)(nil)
