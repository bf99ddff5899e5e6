package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"magnetctl/internal/domain"
	"magnetctl/internal/engine"
	"magnetctl/internal/resume"
)

// Key is a keystroke. Printable keys are their rune; navigation keys are
// negative.
type Key rune

const (
	KeyUp Key = -(iota + 1)
	KeyDown
)

// maxDeadlinePieces bounds the 'o' command.
const maxDeadlinePieces = 300

const confirmTimeout = 10 * time.Second

// KeySource delivers keystrokes to the main loop.
type KeySource interface {
	// Next waits up to timeout for a key. ok is false on timeout.
	Next(timeout time.Duration) (k Key, ok bool)
	// ReadLine reads a line of text after printing prompt.
	ReadLine(prompt string) (string, error)
}

// Renderer draws the controller state once per tick.
type Renderer interface {
	Render(st *State)
}

// HandleKey applies one keystroke. Keys outside the command set are ignored.
func (c *Controller) HandleKey(ctx context.Context, st *State, k Key) {
	switch k {
	case 'q':
		st.Quit = true
	case ' ':
		if c.engine.IsPaused() {
			c.engine.Resume()
		} else {
			c.engine.Pause()
		}
	case 'm':
		c.addMagnet(ctx, st)
	case 'R':
		c.saveAll(st)
	case KeyUp:
		st.UI.Move(-1)
	case KeyDown:
		st.UI.Move(1)

	case 't':
		st.Display.Trackers = !st.Display.Trackers
	case 'i':
		st.Display.Peers = !st.Display.Peers
	case 'l':
		st.Display.Log = !st.Display.Log
	case 'd':
		st.Display.Downloads = !st.Display.Downloads
	case 'f':
		st.Display.FileProgress = !st.Display.FileProgress
	case 'g':
		st.Display.DHT = !st.Display.DHT
	case 'x':
		st.Display.DiskStats = !st.Display.DiskStats
	case 'h':
		st.Display.Help = !st.Display.Help

	case 'p', 'D', 'j', 'r', 'v', 's', 'o':
		ts, ok := st.UI.Active()
		if !ok {
			return
		}
		if err := c.torrentCommand(ctx, st, k, ts); err != nil {
			c.dispatcher.Record(st, domain.CategoryError, fmt.Sprintf("%s: %v", ts.Name, err))
		}
	}
}

func (c *Controller) torrentCommand(ctx context.Context, st *State, k Key, ts domain.TorrentStatus) error {
	id := ts.Identity
	switch k {
	case 'p':
		if ts.State == domain.StatePaused {
			return c.engine.ResumeTorrent(id)
		}
		return c.engine.PauseTorrent(id)
	case 'D':
		return c.deleteTorrent(ctx, st, ts)
	case 'j':
		return c.engine.ForceRecheck(id)
	case 'r':
		return c.engine.ForceReannounce(id)
	case 'v':
		return c.engine.Scrape(id)
	case 's':
		return c.engine.SetSequential(id, !ts.Flags.Has(domain.FlagSequential))
	case 'o':
		return c.engine.SetPieceDeadlines(id, min(ts.NumPieces, maxDeadlinePieces))
	}
	return nil
}

func (c *Controller) addMagnet(ctx context.Context, st *State) {
	if c.keys == nil {
		return
	}
	uri, err := c.keys.ReadLine("magnet link: ")
	if err != nil || uri == "" {
		return
	}
	if _, err := c.pipeline.AddMagnet(ctx, uri); err != nil {
		c.recordAddError(st, err.Error(), err)
	}
}

// deleteTorrent removes the torrent with its data and resume file once the
// user confirms with 'y'.
func (c *Controller) deleteTorrent(ctx context.Context, st *State, ts domain.TorrentStatus) error {
	if c.keys == nil {
		return nil
	}
	c.dispatcher.Record(st, domain.CategoryStatus,
		fmt.Sprintf("are you sure you want to delete the files for '%s'? (y/N)", ts.Name))
	c.render(st)
	if k, ok := c.keys.Next(confirmTimeout); !ok || k != 'y' {
		return nil
	}
	if err := c.engine.Remove(ts.Identity, true); err != nil {
		return fmt.Errorf("remove torrent: %w", err)
	}
	if c.stores == nil {
		return nil
	}
	store, err := c.stores.For(ts.SavePath)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, ts.Identity); err != nil && !errors.Is(err, resume.ErrNotFound) {
		return fmt.Errorf("delete resume data: %w", err)
	}
	return nil
}

// saveAll requests a save for every torrent with unsaved changes.
func (c *Controller) saveAll(st *State) {
	dirty := c.engine.Statuses(func(ts domain.TorrentStatus) bool {
		return ts.NeedSave()
	})
	for _, ts := range dirty {
		if err := requestSave(c.engine, st, ts.Identity, engine.SaveInfoDict); err != nil {
			c.dispatcher.Record(st, domain.CategoryError|domain.CategoryStorage, err.Error())
		}
	}
	c.metrics.SetOutstanding(st.Outstanding.Outstanding())
}
