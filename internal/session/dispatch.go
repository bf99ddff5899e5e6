package session

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"magnetctl/internal/domain"
	"magnetctl/internal/engine"
	"magnetctl/internal/metrics"
	"magnetctl/internal/resume"
)

// Dispatcher applies the side effects of each alert to the controller state,
// the engine and the resume store.
type Dispatcher struct {
	engine         engine.Engine
	stores         resume.Locator
	peer           string
	maxConnections int
	logger         *logrus.Entry
	metrics        *metrics.Metrics
	now            func() time.Time
}

type DispatcherConfig struct {
	Engine engine.Engine
	Stores resume.Locator
	// Peer, when set, is connected to every successfully added torrent.
	Peer string
	// MaxConnections is the per-torrent connection limit; finished torrents
	// get half of it.
	MaxConnections int
	Logger         *logrus.Logger
	Metrics        *metrics.Metrics
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Dispatcher{
		engine:         cfg.Engine,
		stores:         cfg.Stores,
		peer:           cfg.Peer,
		maxConnections: cfg.MaxConnections,
		logger:         logger.WithField("component", "dispatch"),
		metrics:        cfg.Metrics,
		now:            time.Now,
	}
}

// Dispatch classifies a and applies its side effects. Every alert kind has
// exactly one case.
func (d *Dispatcher) Dispatch(ctx context.Context, st *State, a domain.Alert) Outcome {
	out := d.classify(ctx, st, a)
	d.metrics.Alert(a.Kind().String(), out.IsSurfaced())
	d.metrics.SetOutstanding(st.Outstanding.Outstanding())
	return out
}

func (d *Dispatcher) classify(ctx context.Context, st *State, a domain.Alert) Outcome {
	switch a := a.(type) {
	case domain.StatsSnapshot:
		st.UI.Stats = a.Stats
		return Suppressed()
	case domain.DHTSnapshot:
		st.UI.DHT = a.DHT
		return Suppressed()

	case domain.PeerConnected:
		return Suppressed()
	case domain.PeerDisconnected:
		switch a.Reason {
		case domain.DisconnectNoHandshake, domain.DisconnectConnectFailed:
			return Suppressed()
		}
		return surface(a)

	case domain.MetadataReceived:
		d.requestSave(st, a.Torrent, engine.SaveInfoDict)
		return surface(a)

	case domain.TorrentAdded:
		if a.Err != nil {
			return surface(a)
		}
		d.requestSave(st, a.Torrent, engine.SaveInfoDict|engine.SaveOnlyIfModified)
		if d.peer != "" {
			if err := d.engine.ConnectPeer(a.Torrent, d.peer); err != nil {
				d.logger.WithField("torrent", a.Torrent.Hex()).Warnf("failed to connect to %s: %v", d.peer, err)
			}
		}
		return surface(a)

	case domain.TorrentFinished:
		if err := d.engine.SetMaxConnections(a.Torrent, d.maxConnections/2); err != nil {
			d.logger.WithField("torrent", a.Torrent.Hex()).Warnf("failed to lower connection limit: %v", err)
		}
		d.requestSave(st, a.Torrent, engine.SaveInfoDict)
		return surface(a)

	case domain.TorrentPaused:
		d.requestSave(st, a.Torrent, engine.SaveInfoDict)
		return surface(a)

	case domain.SaveSucceeded:
		d.complete(st, a.Torrent)
		if err := d.persist(ctx, a); err != nil {
			return Surfaced(domain.CategoryError|domain.CategoryStorage,
				fmt.Sprintf("%s: failed to write resume data: %v", a.Torrent.Hex(), err))
		}
		return Suppressed()

	case domain.SaveFailed:
		d.complete(st, a.Torrent)
		if a.Reason == domain.SaveFailedNotModified {
			return Suppressed()
		}
		return Surfaced(a.Category|domain.CategoryError, a.Message())

	case domain.StateUpdate:
		st.UI.ReplaceTorrents(a.Torrents)
		d.metrics.SetTorrents(len(a.Torrents))
		return Suppressed()

	case domain.Generic:
		return surface(a)

	default:
		panic(fmt.Sprintf("session: unhandled alert kind %s", a.Kind()))
	}
}

func surface(a domain.Alert) Outcome {
	return Surfaced(a.Head().Category, a.Message())
}

func (d *Dispatcher) requestSave(st *State, id domain.Identity, flags engine.SaveFlags) {
	if err := requestSave(d.engine, st, id, flags); err != nil {
		d.logger.WithField("torrent", id.Hex()).Warn(err)
	}
}

func (d *Dispatcher) complete(st *State, id domain.Identity) {
	if err := st.Outstanding.Decrement(); err != nil {
		d.logger.WithField("torrent", id.Hex()).Errorf("save completion without request: %v", err)
	}
}

func (d *Dispatcher) persist(ctx context.Context, a domain.SaveSucceeded) error {
	if d.stores == nil {
		return nil
	}
	store, err := d.stores.For(a.SavePath)
	if err != nil {
		return err
	}
	return store.Save(ctx, a.Torrent, a.Payload)
}

// Record appends an event to the log and mirrors it to the log file.
func (d *Dispatcher) Record(st *State, category domain.Category, message string) {
	d.RecordAt(st, d.now(), category, message)
}

func (d *Dispatcher) RecordAt(st *State, at time.Time, category domain.Category, message string) {
	if at.IsZero() {
		at = d.now()
	}
	st.Events.Append(Event{Time: at, Category: category, Message: message})
	d.metrics.Event()
	entry := d.logger.WithField("source", "event")
	if category.Has(domain.CategoryError) {
		entry.Error(message)
		return
	}
	entry.Info(message)
}

// Handle dispatches a and records it when surfaced.
func (d *Dispatcher) Handle(ctx context.Context, st *State, a domain.Alert) {
	if cat, msg, ok := d.Dispatch(ctx, st, a).Event(); ok {
		d.RecordAt(st, a.Head().Time, cat, msg)
	}
}
