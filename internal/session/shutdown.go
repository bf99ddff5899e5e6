package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"

	"magnetctl/internal/domain"
	"magnetctl/internal/engine"
)

const (
	DefaultShutdownBatch = 32
	DefaultDrainTimeout  = 10 * time.Second
)

// Sequencer saves every dirty torrent, waits for all outstanding saves and
// then persists the global engine state.
type Sequencer struct {
	engine       engine.Engine
	pump         *Pump
	batch        int
	drainTimeout time.Duration
	statePath    string
	logger       *logrus.Entry
}

func NewSequencer(e engine.Engine, pump *Pump, batch int, drainTimeout time.Duration, statePath string, logger *logrus.Logger) *Sequencer {
	if batch <= 0 {
		batch = DefaultShutdownBatch
	}
	if drainTimeout <= 0 {
		drainTimeout = DefaultDrainTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Sequencer{
		engine:       e,
		pump:         pump,
		batch:        batch,
		drainTimeout: drainTimeout,
		statePath:    statePath,
		logger:       logger.WithField("component", "shutdown"),
	}
}

// Run walks st through the shutdown phases. Saves already in flight are
// always drained; ctx is only handed to the dispatcher for store writes.
func (s *Sequencer) Run(ctx context.Context, st *State) error {
	st.Phase = PhasePausing
	s.engine.Pause()

	st.Phase = PhaseEnumerating
	dirty := s.engine.Statuses(func(ts domain.TorrentStatus) bool {
		return ts.HasMetadata && ts.NeedSave()
	})

	st.Phase = PhaseRequesting
	s.logger.Infof("saving resume data for %d torrents", len(dirty))
	for i, ts := range dirty {
		if err := requestSave(s.engine, st, ts.Identity, engine.SaveInfoDict); err != nil {
			s.logger.Warn(err)
		}
		if (i+1)%s.batch == 0 {
			s.pump.Poll(ctx, st)
		}
	}

	st.Phase = PhaseDraining
	s.logger.Infof("waiting for resume data [%d]", st.Outstanding.Outstanding())
	for !st.Outstanding.Done() {
		s.pump.Drain(ctx, st, s.drainTimeout)
	}

	st.Phase = PhasePersisting
	var persistErr error
	if s.statePath != "" {
		if err := s.persistState(); err != nil {
			s.logger.Errorf("failed to save session state: %v", err)
			persistErr = err
		}
	}

	st.Phase = PhaseClosed
	if err := s.engine.Close(); err != nil {
		return fmt.Errorf("close engine: %w", err)
	}
	return persistErr
}

func (s *Sequencer) persistState() error {
	blob, err := s.engine.SaveState()
	if err != nil {
		return fmt.Errorf("serialize session state: %w", err)
	}
	return WriteStateFile(s.statePath, blob)
}

// WriteStateFile atomically replaces path with blob.
func WriteStateFile(path string, blob []byte) error {
	if err := renameio.WriteFile(path, blob, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// ReadStateFile returns the saved session state, or nil when there is none.
func ReadStateFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	return b, nil
}
