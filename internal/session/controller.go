// Package session runs the lifecycle controller: it ingests torrents, pumps
// engine alerts through the dispatcher, serves key commands and drives the
// shutdown sequence.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"magnetctl/internal/domain"
	"magnetctl/internal/engine"
	"magnetctl/internal/ingest"
	"magnetctl/internal/metrics"
	"magnetctl/internal/resume"
)

const DefaultRefreshInterval = 500 * time.Millisecond

type Config struct {
	Engine   engine.Engine
	Stores   resume.Locator
	Pipeline *ingest.Pipeline
	Replayer *ingest.Replayer
	// Monitor is optional; nil disables the spool directory.
	Monitor *ingest.Monitor
	// Keys and Renderer are nil in headless mode.
	Keys     KeySource
	Renderer Renderer

	// Sources are the torrent files and magnet links given at startup.
	Sources         []string
	Peer            string
	MaxConnections  int
	RefreshInterval time.Duration
	DrainTimeout    time.Duration
	ShutdownBatch   int
	StatePath       string

	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

// Controller owns the State and is the only code that touches it, apart
// from the Renderer it calls.
type Controller struct {
	engine     engine.Engine
	stores     resume.Locator
	pipeline   *ingest.Pipeline
	replayer   *ingest.Replayer
	monitor    *ingest.Monitor
	keys       KeySource
	renderer   Renderer
	dispatcher *Dispatcher
	pump       *Pump
	sequencer  *Sequencer
	sources    []string
	refresh    time.Duration
	logger     *logrus.Entry
	metrics    *metrics.Metrics
	state      *State
}

func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	refresh := cfg.RefreshInterval
	if refresh <= 0 {
		refresh = DefaultRefreshInterval
	}
	d := NewDispatcher(DispatcherConfig{
		Engine:         cfg.Engine,
		Stores:         cfg.Stores,
		Peer:           cfg.Peer,
		MaxConnections: cfg.MaxConnections,
		Logger:         logger,
		Metrics:        cfg.Metrics,
	})
	pump := NewPump(cfg.Engine, d)
	return &Controller{
		engine:     cfg.Engine,
		stores:     cfg.Stores,
		pipeline:   cfg.Pipeline,
		replayer:   cfg.Replayer,
		monitor:    cfg.Monitor,
		keys:       cfg.Keys,
		renderer:   cfg.Renderer,
		dispatcher: d,
		pump:       pump,
		sequencer:  NewSequencer(cfg.Engine, pump, cfg.ShutdownBatch, cfg.DrainTimeout, cfg.StatePath, logger),
		sources:    cfg.Sources,
		refresh:    refresh,
		logger:     logger.WithField("component", "controller"),
		metrics:    cfg.Metrics,
		state:      NewState(),
	}
}

func (c *Controller) State() *State {
	return c.state
}

// Run ingests the startup sources, starts the resume replay and runs the tick
// loop until quit is requested or ctx is cancelled. It then joins the replay
// and runs the shutdown sequence, which is not interrupted by ctx.
func (c *Controller) Run(ctx context.Context) error {
	st := c.state
	for _, src := range c.sources {
		if _, err := c.pipeline.Add(ctx, src); err != nil {
			c.recordAddError(st, err.Error(), err)
		}
	}

	loopCtx, stop := context.WithCancel(ctx)
	defer stop()
	if c.replayer != nil {
		c.replayer.Start(loopCtx)
	}
	if c.monitor != nil {
		go func() {
			if err := c.monitor.Watch(loopCtx); err != nil {
				c.logger.Warnf("spool watch disabled: %v", err)
			}
		}()
	}

	for !st.Quit {
		if ctx.Err() != nil {
			st.Quit = true
			break
		}
		c.Tick(ctx, time.Now())
	}
	c.logger.Info("quit requested")

	stop()
	if c.replayer != nil {
		if err := c.replayer.Wait(); err != nil {
			c.logger.Errorf("resume replay failed: %v", err)
		}
	}

	if err := c.sequencer.Run(context.WithoutCancel(ctx), st); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Tick runs one iteration of the main loop: request updates, wait for input,
// dispatch alerts, render and scan the spool directory.
func (c *Controller) Tick(ctx context.Context, now time.Time) {
	st := c.state
	c.engine.PostUpdates()

	c.waitInput(ctx, st)
	if st.Quit {
		return
	}

	c.pump.Poll(ctx, st)
	c.render(st)

	if c.monitor != nil && c.monitor.Due(&st.Monitor, now) {
		c.scan(ctx, st, now)
	}
}

// waitInput blocks for at most one refresh interval. Every queued key is
// handled and quit is checked after each one.
func (c *Controller) waitInput(ctx context.Context, st *State) {
	if c.keys == nil {
		t := time.NewTimer(c.refresh)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
		return
	}
	timeout := c.refresh
	for !st.Quit {
		k, ok := c.keys.Next(timeout)
		if !ok {
			return
		}
		c.HandleKey(ctx, st, k)
		timeout = 0
	}
}

func (c *Controller) render(st *State) {
	if c.renderer != nil {
		c.renderer.Render(st)
	}
}

func (c *Controller) scan(ctx context.Context, st *State, now time.Time) {
	results, err := c.monitor.Scan(ctx, &st.Monitor, now)
	if err != nil {
		c.logger.Warnf("spool scan failed: %v", err)
		return
	}
	for _, r := range results {
		switch {
		case r.Err != nil:
			c.recordAddError(st, fmt.Sprintf("failed to add %s: %v", r.Path, r.Err), r.Err)
		case r.RemoveErr != nil:
			c.dispatcher.Record(st, domain.CategoryError|domain.CategoryStorage, r.RemoveErr.Error())
		}
	}
}

// recordAddError records a failed ingestion unless the engine rejected the
// request, in which case its failed torrent-added alert is the record.
func (c *Controller) recordAddError(st *State, msg string, err error) {
	if errors.Is(err, ingest.ErrRejected) {
		c.logger.Debugf("add rejected: %v", err)
		return
	}
	c.dispatcher.Record(st, domain.CategoryError, msg)
}
