package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"magnetctl/internal/config"
	"magnetctl/internal/engine"
	"magnetctl/internal/ingest"
	"magnetctl/internal/metrics"
	"magnetctl/internal/session"
	"magnetctl/internal/ui"
)

var rootCmd = &cobra.Command{
	Use:   "magnetctl [flags] [torrent-file | magnet-link]...",
	Short: "magnetctl - interactive BitTorrent client",
	Long: `magnetctl downloads and seeds torrents given as files or magnet links,
optionally picking up new .torrent files from a monitored directory. Resume
data is saved for every torrent and replayed on the next start.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg, args)
	},
}

func init() {
	config.RegisterFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(parent context.Context, cfg config.Config, args []string) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if logFile := openLog(logger, cfg, os.Stderr); logFile != nil {
		defer logFile.Close()
	}
	logger.AddHook(runIDHook{id: uuid.NewString()})
	// tracker scrapes log through the standard logger
	log.SetOutput(logger.Writer())

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, locator, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Errorf("setup resume store: %v", err)
		return fmt.Errorf("setup resume store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warnf("close resume store: %v", err)
		}
	}()

	state, err := session.ReadStateFile(cfg.SessionState)
	if err != nil {
		logger.Warnf("load session state: %v", err)
	}
	engCfg := engine.Config{
		DataDir:       cfg.SavePath,
		ListenPort:    cfg.Engine.ListenPort,
		NoDHT:         cfg.Engine.NoDHT,
		Seed:          true,
		UploadLimit:   cfg.Torrent.UploadLimit,
		DownloadLimit: cfg.Torrent.DownloadLimit,
		State:         state,
		Logger:        logger,
	}
	if cfg.IPFilter != "" {
		if list, err := engine.LoadIPFilter(cfg.IPFilter); err != nil {
			logger.Warnf("ip filter not applied: %v", err)
		} else {
			logger.Infof("ip filter: %d blocked ranges", list.NumRanges())
			engCfg.IPBlocklist = list
		}
	}
	eng, err := engine.NewClient(engCfg)
	if err != nil {
		logger.Errorf("start engine: %v", err)
		return fmt.Errorf("start engine: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Addr != "" {
		m = metrics.New()
		go m.Serve(ctx, cfg.Metrics.Addr, logger)
	}

	pipeline := ingest.NewPipeline(eng, store, cfg.AddOptions(), logger, m)
	var monitor *ingest.Monitor
	if cfg.Monitor.Dir != "" {
		monitor = ingest.NewMonitor(cfg.Monitor.Dir, cfg.Monitor.Interval, pipeline, logger)
	}

	ctrlCfg := session.Config{
		Engine:          eng,
		Stores:          locator,
		Pipeline:        pipeline,
		Replayer:        ingest.NewReplayer(store, pipeline, logger),
		Monitor:         monitor,
		Sources:         args,
		Peer:            cfg.Peer,
		MaxConnections:  cfg.Torrent.MaxConnections,
		RefreshInterval: cfg.UI.Refresh,
		StatePath:       cfg.SessionState,
		Logger:          logger,
		Metrics:         m,
	}
	if !cfg.UI.Headless {
		keys, err := ui.OpenTerminal(os.Stdin, os.Stdout)
		if err != nil {
			logger.Warnf("no terminal, running headless: %v", err)
		} else {
			defer keys.Close()
			ctrlCfg.Keys = keys
			ctrlCfg.Renderer = ui.NewRenderer(os.Stdout)
		}
	}

	logger.WithField("sources", len(args)).Info("magnetctl starting")
	if err := session.New(ctrlCfg).Run(ctx); err != nil {
		logger.Errorf("session: %v", err)
	}
	logger.Info("bye")
	return nil
}

// openLog points the logger at the configured log file. The terminal belongs
// to the interface, so stderr only gets a copy in headless mode. A bad level
// or an unopenable file is reported on warn and the run goes on.
func openLog(logger *logrus.Logger, cfg config.Config, warn io.Writer) *os.File {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(warn, "magnetctl: %v, using info\n", err)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	var f *os.File
	if cfg.Log.File != "" {
		f, err = os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(warn, "magnetctl: open log file: %v\n", err)
		}
	}
	switch {
	case f != nil && cfg.UI.Headless:
		logger.SetOutput(io.MultiWriter(warn, f))
	case f != nil:
		logger.SetOutput(f)
	case cfg.UI.Headless:
		logger.SetOutput(warn)
	default:
		logger.SetOutput(io.Discard)
	}
	return f
}

// runIDHook tags every entry with the id of this process run.
type runIDHook struct {
	id string
}

func (h runIDHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h runIDHook) Fire(e *logrus.Entry) error {
	e.Data["run"] = h.id
	return nil
}
