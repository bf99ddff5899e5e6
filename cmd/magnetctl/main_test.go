package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"magnetctl/internal/config"
)

func TestOpenLogBadLevelFallsBackToInfo(t *testing.T) {
	var cfg config.Config
	cfg.Log.Level = "chatty"
	var warn bytes.Buffer
	logger := logrus.New()

	if f := openLog(logger, cfg, &warn); f != nil {
		t.Fatal("no log file configured but one was opened")
	}
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %s, want info", logger.GetLevel())
	}
	if !strings.Contains(warn.String(), "chatty") {
		t.Fatalf("warning = %q, want the bad level named", warn.String())
	}
	if logger.Out != io.Discard {
		t.Fatal("interactive run without a log file must not write to the terminal")
	}
}

func TestOpenLogUnopenableFileContinues(t *testing.T) {
	var cfg config.Config
	cfg.Log.Level = "debug"
	cfg.Log.File = filepath.Join(t.TempDir(), "missing", "magnetctl.log")
	cfg.UI.Headless = true
	var warn bytes.Buffer
	logger := logrus.New()

	if f := openLog(logger, cfg, &warn); f != nil {
		f.Close()
		t.Fatal("log file in a missing directory was opened")
	}
	if !strings.Contains(warn.String(), "open log file") {
		t.Fatalf("warning = %q", warn.String())
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %s, want debug", logger.GetLevel())
	}

	warn.Reset()
	logger.Info("still running")
	if !strings.Contains(warn.String(), "still running") {
		t.Fatal("headless run without a log file should log to stderr")
	}
}

func TestOpenLogWritesFile(t *testing.T) {
	var cfg config.Config
	cfg.Log.Level = "info"
	cfg.Log.File = filepath.Join(t.TempDir(), "magnetctl.log")
	var warn bytes.Buffer
	logger := logrus.New()

	f := openLog(logger, cfg, &warn)
	if f == nil {
		t.Fatalf("log file not opened: %s", warn.String())
	}
	logger.Info("hello")
	f.Close()

	b, err := os.ReadFile(cfg.Log.File)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "hello") {
		t.Fatalf("log file = %q", b)
	}
	if warn.Len() != 0 {
		t.Fatalf("unexpected warning %q", warn.String())
	}
}
