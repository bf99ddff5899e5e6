package domain

import "time"

// TorrentState is the coarse lifecycle state reported by the engine.
type TorrentState string

const (
	StateMetadata    TorrentState = "metadata"
	StateChecking    TorrentState = "checking"
	StateDownloading TorrentState = "downloading"
	StateSeeding     TorrentState = "seeding"
	StatePaused      TorrentState = "paused"
)

// TorrentStatus is the last known snapshot of a single torrent.
type TorrentStatus struct {
	Identity         Identity
	Name             string
	SavePath         string
	State            TorrentState
	Flags            TorrentFlags
	HasMetadata      bool
	NumPieces        int
	TotalSize        int64
	BytesCompleted   int64
	DownloadRate     int64
	UploadRate       int64
	TotalPeers       int
	ActivePeers      int
	ConnectedSeeders int
	HalfOpenPeers    int
	MaxConnections   int
	Trackers         []string
	Error            string
}

// NeedSave reports whether the torrent has unsaved modifications.
func (s TorrentStatus) NeedSave() bool {
	return s.Flags.Has(FlagNeedSave)
}

// Progress returns completion in the [0,1] range.
func (s TorrentStatus) Progress() float64 {
	if s.TotalSize <= 0 {
		return 0
	}
	return float64(s.BytesCompleted) / float64(s.TotalSize)
}

// SessionStats is the session-wide counter snapshot.
type SessionStats struct {
	At           time.Time
	Torrents     int
	Peers        int
	BytesRead    int64
	BytesWritten int64
	DownloadRate int64
	UploadRate   int64
	Paused       bool
}

// DHTStatus is the routing and lookup snapshot shown in the DHT panel.
type DHTStatus struct {
	Nodes   []DHTNode
	Lookups []string
}

type DHTNode struct {
	Addr  string
	Stats string
}
