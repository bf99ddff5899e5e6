package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const (
	// DescriptorSuffix selects the spool files picked up by the monitor.
	DescriptorSuffix = ".torrent"

	DefaultScanInterval = 5 * time.Second
)

// MonitorState is the per-scan bookkeeping of the directory monitor. It is
// owned by the main loop.
type MonitorState struct {
	// Claimed holds the names already handled during the current scan.
	Claimed  map[string]struct{}
	NextScan time.Time
}

// FileResult describes what happened to one spool file.
type FileResult struct {
	Path string
	// Err is set when the file could not be ingested.
	Err error
	// RemoveErr is set when the file was ingested but could not be removed.
	RemoveErr error
	Removed   bool
}

// Monitor ingests descriptor files dropped into a spool directory. A file is
// removed once it has been submitted and left in place for the next scan
// otherwise.
type Monitor struct {
	dir      string
	interval time.Duration
	pipeline *Pipeline
	logger   *logrus.Entry
	wake     chan struct{}
}

func NewMonitor(dir string, interval time.Duration, pipeline *Pipeline, logger *logrus.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Monitor{
		dir:      dir,
		interval: interval,
		pipeline: pipeline,
		logger:   logger.WithField("component", "monitor"),
		wake:     make(chan struct{}, 1),
	}
}

func (m *Monitor) Dir() string {
	return m.dir
}

// Due reports whether a scan should run at now.
func (m *Monitor) Due(st *MonitorState, now time.Time) bool {
	if m == nil || m.dir == "" {
		return false
	}
	select {
	case <-m.wake:
		return true
	default:
	}
	return !now.Before(st.NextScan)
}

// Watch asks fsnotify to shorten the wait when a descriptor appears in the
// spool directory. Polling stays the source of truth; Watch only makes the
// next scan happen sooner. It returns when ctx is done.
func (m *Monitor) Watch(ctx context.Context) error {
	if m == nil || m.dir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(m.dir); err != nil {
		return fmt.Errorf("watch %s: %w", m.dir, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, DescriptorSuffix) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case m.wake <- struct{}{}:
			default:
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.Warnf("watcher error: %v", err)
		}
	}
}

// Scan lists the spool directory and ingests every descriptor in it. The next
// scan is scheduled one interval after now whatever the outcome. A listing
// failure is returned and the directory is retried on the next scan.
func (m *Monitor) Scan(ctx context.Context, st *MonitorState, now time.Time) ([]FileResult, error) {
	st.NextScan = now.Add(m.interval)
	st.Claimed = make(map[string]struct{})

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", m.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), DescriptorSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var results []FileResult
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		if _, ok := st.Claimed[name]; ok {
			continue
		}
		st.Claimed[name] = struct{}{}
		results = append(results, m.ingest(ctx, filepath.Join(m.dir, name)))
	}
	return results, nil
}

func (m *Monitor) ingest(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}
	if _, err := m.pipeline.AddFile(ctx, path); err != nil {
		res.Err = err
		m.logger.WithField("file", path).Warnf("failed to ingest: %v", err)
		return res
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		res.RemoveErr = fmt.Errorf("remove %s: %w", path, err)
		m.logger.WithField("file", path).Warnf("failed to remove ingested file: %v", err)
		return res
	}
	res.Removed = true
	return res
}
