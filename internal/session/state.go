package session

import (
	"sort"

	"magnetctl/internal/domain"
	"magnetctl/internal/ingest"
)

// UIState holds the snapshots shown by the renderer. Each snapshot is
// replaced wholesale when its alert arrives.
type UIState struct {
	Torrents []domain.TorrentStatus
	Stats    domain.SessionStats
	DHT      domain.DHTStatus
	Selected domain.Identity
}

// ReplaceTorrents installs a new per-torrent snapshot, sorted by name.
func (u *UIState) ReplaceTorrents(ts []domain.TorrentStatus) {
	sorted := append([]domain.TorrentStatus(nil), ts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].Identity.Hex() < sorted[j].Identity.Hex()
	})
	u.Torrents = sorted
	if _, ok := u.Active(); !ok && len(sorted) > 0 {
		u.Selected = sorted[0].Identity
	}
}

// Active returns the selected torrent, if it is still present.
func (u *UIState) Active() (domain.TorrentStatus, bool) {
	for _, t := range u.Torrents {
		if t.Identity == u.Selected {
			return t, true
		}
	}
	return domain.TorrentStatus{}, false
}

// Move shifts the selection by delta, clamped to the list.
func (u *UIState) Move(delta int) {
	if len(u.Torrents) == 0 {
		return
	}
	idx := 0
	for i, t := range u.Torrents {
		if t.Identity == u.Selected {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(u.Torrents) {
		idx = len(u.Torrents) - 1
	}
	u.Selected = u.Torrents[idx].Identity
}

// Display holds the view toggles.
type Display struct {
	Trackers     bool
	Peers        bool
	Log          bool
	Downloads    bool
	FileProgress bool
	DHT          bool
	DiskStats    bool
	Help         bool
}

// State is the controller state threaded through every tick. Only the main
// loop touches it.
type State struct {
	Outstanding Barrier
	Events      EventLog
	UI          UIState
	Display     Display
	Monitor     ingest.MonitorState
	Phase       Phase
	Quit        bool
}

func NewState() *State {
	return &State{Display: Display{Log: true}}
}
