package domain

import (
	"fmt"
	"time"
)

// AlertKind tags each member of the closed alert set.
type AlertKind int

const (
	KindTorrentAdded AlertKind = iota
	KindMetadataReceived
	KindTorrentFinished
	KindTorrentPaused
	KindSaveSucceeded
	KindSaveFailed
	KindPeerDisconnected
	KindPeerConnected
	KindStatsSnapshot
	KindDHTSnapshot
	KindStateUpdate
	KindGeneric
)

var alertKindNames = [...]string{
	KindTorrentAdded:     "torrent_added",
	KindMetadataReceived: "metadata_received",
	KindTorrentFinished:  "torrent_finished",
	KindTorrentPaused:    "torrent_paused",
	KindSaveSucceeded:    "save_succeeded",
	KindSaveFailed:       "save_failed",
	KindPeerDisconnected: "peer_disconnected",
	KindPeerConnected:    "peer_connected",
	KindStatsSnapshot:    "stats_snapshot",
	KindDHTSnapshot:      "dht_snapshot",
	KindStateUpdate:      "state_update",
	KindGeneric:          "generic",
}

func (k AlertKind) String() string {
	if k < 0 || int(k) >= len(alertKindNames) {
		return fmt.Sprintf("alert_kind(%d)", int(k))
	}
	return alertKindNames[k]
}

// Category is a bit set describing the severity and area of an alert.
type Category uint32

const (
	CategoryError Category = 1 << iota
	CategoryPeer
	CategoryStorage
	CategoryStatus
	CategoryStats
	CategoryDHT
)

// Has reports whether any bit of mask is set.
func (c Category) Has(mask Category) bool {
	return c&mask != 0
}

// Header is the part shared by every alert.
type Header struct {
	Time     time.Time
	Category Category
	Torrent  Identity
	Name     string
}

// Alert is a notification emitted by the engine. The set of implementations is
// closed: only the types declared in this file satisfy it.
type Alert interface {
	Kind() AlertKind
	Head() Header
	Message() string
	sealed()
}

func (h Header) Head() Header { return h }
func (Header) sealed()        {}

func (h Header) label() string {
	if h.Name != "" {
		return h.Name
	}
	if h.Torrent.IsZero() {
		return "session"
	}
	return h.Torrent.Hex()
}

// TorrentAdded reports the outcome of an add request.
type TorrentAdded struct {
	Header
	Err error
}

func (TorrentAdded) Kind() AlertKind { return KindTorrentAdded }
func (a TorrentAdded) Message() string {
	if a.Err != nil {
		return fmt.Sprintf("failed to add torrent: %s: %v", a.label(), a.Err)
	}
	return fmt.Sprintf("%s: added", a.label())
}

type MetadataReceived struct {
	Header
}

func (MetadataReceived) Kind() AlertKind   { return KindMetadataReceived }
func (a MetadataReceived) Message() string { return fmt.Sprintf("%s: metadata received", a.label()) }

type TorrentFinished struct {
	Header
}

func (TorrentFinished) Kind() AlertKind   { return KindTorrentFinished }
func (a TorrentFinished) Message() string { return fmt.Sprintf("%s: torrent finished downloading", a.label()) }

type TorrentPaused struct {
	Header
}

func (TorrentPaused) Kind() AlertKind   { return KindTorrentPaused }
func (a TorrentPaused) Message() string { return fmt.Sprintf("%s: paused", a.label()) }

// SaveSucceeded carries the serialized resume blob for a torrent.
type SaveSucceeded struct {
	Header
	SavePath string
	Payload  []byte
}

func (SaveSucceeded) Kind() AlertKind   { return KindSaveSucceeded }
func (a SaveSucceeded) Message() string { return fmt.Sprintf("%s: resume data generated", a.label()) }

// SaveFailReason classifies why a save request did not produce data.
type SaveFailReason int

const (
	SaveFailedOther SaveFailReason = iota
	// SaveFailedNotModified means nothing changed since the last save.
	SaveFailedNotModified
	SaveFailedInvalidTorrent
	SaveFailedNoMetadata
)

func (r SaveFailReason) String() string {
	switch r {
	case SaveFailedNotModified:
		return "resume data not modified"
	case SaveFailedInvalidTorrent:
		return "invalid torrent handle"
	case SaveFailedNoMetadata:
		return "torrent has no metadata"
	default:
		return "save failed"
	}
}

type SaveFailed struct {
	Header
	Reason SaveFailReason
	Err    error
}

func (SaveFailed) Kind() AlertKind { return KindSaveFailed }
func (a SaveFailed) Message() string {
	if a.Err != nil {
		return fmt.Sprintf("%s: resume data failed: %s: %v", a.label(), a.Reason, a.Err)
	}
	return fmt.Sprintf("%s: resume data failed: %s", a.label(), a.Reason)
}

// DisconnectReason explains why a peer connection ended.
type DisconnectReason int

const (
	DisconnectClosed DisconnectReason = iota
	// DisconnectNoHandshake means the peer never completed the handshake.
	DisconnectNoHandshake
	// DisconnectConnectFailed means the outgoing connection attempt failed.
	DisconnectConnectFailed
	DisconnectError
)

func (r DisconnectReason) String() string {
	switch r {
	case DisconnectNoHandshake:
		return "timed out waiting for handshake"
	case DisconnectConnectFailed:
		return "connect failed"
	case DisconnectError:
		return "error"
	default:
		return "closed"
	}
}

type PeerDisconnected struct {
	Header
	Addr   string
	Reason DisconnectReason
	Err    error
}

func (PeerDisconnected) Kind() AlertKind { return KindPeerDisconnected }
func (a PeerDisconnected) Message() string {
	if a.Err != nil {
		return fmt.Sprintf("%s: peer %s disconnected (%s): %v", a.label(), a.Addr, a.Reason, a.Err)
	}
	return fmt.Sprintf("%s: peer %s disconnected (%s)", a.label(), a.Addr, a.Reason)
}

type PeerConnected struct {
	Header
	Addr string
}

func (PeerConnected) Kind() AlertKind   { return KindPeerConnected }
func (a PeerConnected) Message() string { return fmt.Sprintf("%s: connected to peer %s", a.label(), a.Addr) }

type StatsSnapshot struct {
	Header
	Stats SessionStats
}

func (StatsSnapshot) Kind() AlertKind { return KindStatsSnapshot }
func (StatsSnapshot) Message() string { return "session stats" }

type DHTSnapshot struct {
	Header
	DHT DHTStatus
}

func (DHTSnapshot) Kind() AlertKind { return KindDHTSnapshot }
func (DHTSnapshot) Message() string { return "dht stats" }

// StateUpdate is the aggregated per-torrent status update.
type StateUpdate struct {
	Header
	Torrents []TorrentStatus
}

func (StateUpdate) Kind() AlertKind   { return KindStateUpdate }
func (a StateUpdate) Message() string { return fmt.Sprintf("state update for %d torrents", len(a.Torrents)) }

// Generic is any notification without dedicated handling.
type Generic struct {
	Header
	Text string
}

func (Generic) Kind() AlertKind   { return KindGeneric }
func (a Generic) Message() string { return a.Text }
