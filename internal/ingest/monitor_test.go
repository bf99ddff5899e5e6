package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"magnetctl/internal/domain"
)

func TestMonitorScanRemovesIngestedFiles(t *testing.T) {
	p, sub, _ := newTestPipeline(t, domain.Options{})
	dir := t.TempDir()
	good := filepath.Join(dir, "good.torrent")
	writeTorrent(t, good, "good.bin")
	bad := filepath.Join(dir, "bad.torrent")
	if err := os.WriteFile(bad, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewMonitor(dir, time.Second, p, quietLogger())
	var st MonitorState
	now := time.Now()
	results, err := m.Scan(context.Background(), &st, now)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v, want 2", results)
	}
	if _, err := os.Stat(good); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("ingested file still present: %v", err)
	}
	if _, err := os.Stat(bad); err != nil {
		t.Fatalf("failed file removed: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("non descriptor touched: %v", err)
	}
	if len(sub.requests()) != 1 {
		t.Fatalf("submitted %d, want 1", len(sub.requests()))
	}
	if !st.NextScan.Equal(now.Add(time.Second)) {
		t.Fatalf("next scan = %v", st.NextScan)
	}
}

func TestMonitorRetriesFailedFiles(t *testing.T) {
	p, sub, _ := newTestPipeline(t, domain.Options{})
	sub.err = errors.New("engine busy")
	dir := t.TempDir()
	path := filepath.Join(dir, "retry.torrent")
	writeTorrent(t, path, "retry.bin")

	m := NewMonitor(dir, time.Second, p, quietLogger())
	var st MonitorState
	now := time.Now()
	results, err := m.Scan(context.Background(), &st, now)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 1 || results[0].Err == nil || results[0].Removed {
		t.Fatalf("results = %+v", results)
	}
	if !errors.Is(results[0].Err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", results[0].Err)
	}
	if m.Due(&st, now) {
		t.Fatal("monitor due before the interval elapsed")
	}

	sub.err = nil
	later := now.Add(time.Second)
	if !m.Due(&st, later) {
		t.Fatal("monitor not due after the interval")
	}
	if _, err := m.Scan(context.Background(), &st, later); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file not removed after retry: %v", err)
	}
}

func TestMonitorReportsRemoveFailure(t *testing.T) {
	p, sub, _ := newTestPipeline(t, domain.Options{})
	dir := t.TempDir()
	path := filepath.Join(dir, "stuck.torrent")
	writeTorrent(t, path, "stuck.bin")
	sub.onSubmit = func(domain.AddRequest) {
		// replace the descriptor with a directory os.Remove cannot delete
		if err := os.Remove(path); err != nil {
			t.Error(err)
		}
		if err := os.MkdirAll(filepath.Join(path, "keep"), 0o755); err != nil {
			t.Error(err)
		}
	}

	m := NewMonitor(dir, time.Second, p, quietLogger())
	var st MonitorState
	results, err := m.Scan(context.Background(), &st, time.Now())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	r := results[0]
	if r.Err != nil || r.Removed || r.RemoveErr == nil {
		t.Fatalf("result = %+v, want ingested but not removed", r)
	}
	if len(sub.requests()) != 1 {
		t.Fatal("file was not submitted")
	}
}

func TestMonitorListingFailure(t *testing.T) {
	p, _, _ := newTestPipeline(t, domain.Options{})
	m := NewMonitor(filepath.Join(t.TempDir(), "missing"), 0, p, quietLogger())
	var st MonitorState
	now := time.Now()
	if _, err := m.Scan(context.Background(), &st, now); err == nil {
		t.Fatal("Scan of a missing directory succeeded")
	}
	if !st.NextScan.Equal(now.Add(DefaultScanInterval)) {
		t.Fatalf("next scan = %v, want default interval", st.NextScan)
	}
}

func TestMonitorDisabled(t *testing.T) {
	var m *Monitor
	if m.Due(&MonitorState{}, time.Now()) {
		t.Fatal("nil monitor is due")
	}
}
