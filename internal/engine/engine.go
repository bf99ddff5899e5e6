// Package engine adapts the transfer engine to the narrow capability surface
// the session controller consumes.
package engine

import (
	"context"
	"errors"
	"time"

	"magnetctl/internal/domain"
)

var (
	// ErrUnknownTorrent is returned for operations on an identity the engine
	// does not hold.
	ErrUnknownTorrent = errors.New("unknown torrent")
	// ErrClosed is returned for asynchronous requests made after Close.
	ErrClosed = errors.New("engine closed")
)

// SaveFlags tune a resume data request.
type SaveFlags uint8

const (
	// SaveInfoDict includes the metadata dictionary in the blob.
	SaveInfoDict SaveFlags = 1 << iota
	// SaveOnlyIfModified skips the save when nothing changed since the last
	// one; the request then completes with a not-modified failure.
	SaveOnlyIfModified
)

// Engine is the capability interface of the transfer engine. Implementations
// are safe for concurrent use.
type Engine interface {
	// Submit hands an add request to the engine. The outcome is also
	// reported through a TorrentAdded alert.
	Submit(ctx context.Context, req domain.AddRequest) (domain.Identity, error)
	// PopAlerts drains every queued alert in emission order without blocking.
	PopAlerts() []domain.Alert
	// WaitForAlert blocks until an alert is queued or timeout elapses. It
	// returns the front alert without removing it, or nil on timeout.
	WaitForAlert(timeout time.Duration) domain.Alert
	// PostUpdates asks for state update, stats and DHT snapshot alerts.
	PostUpdates()

	// RequestSave is asynchronous. Every accepted call produces exactly one
	// SaveSucceeded or SaveFailed alert; a refused call returns an error and
	// produces none.
	RequestSave(id domain.Identity, flags SaveFlags) error

	Pause()
	Resume()
	IsPaused() bool

	Statuses(pred func(domain.TorrentStatus) bool) []domain.TorrentStatus
	SetMaxConnections(id domain.Identity, n int) error
	ConnectPeer(id domain.Identity, addr string) error

	PauseTorrent(id domain.Identity) error
	ResumeTorrent(id domain.Identity) error
	Remove(id domain.Identity, deleteData bool) error
	ForceRecheck(id domain.Identity) error
	ForceReannounce(id domain.Identity) error
	Scrape(id domain.Identity) error
	SetSequential(id domain.Identity, on bool) error
	SetPieceDeadlines(id domain.Identity, pieces int) error

	// SaveState serializes global engine state such as the DHT routing table.
	SaveState() ([]byte, error)
	Close() error
}
