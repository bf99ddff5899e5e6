package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"magnetctl/internal/domain"
)

// Config holds application level configuration aggregated from flags, env and
// config files, in that order of precedence.
type Config struct {
	SavePath     string
	SessionState string
	// IPFilter is a blocklist file applied to every peer connection.
	IPFilter string
	// Peer is an IP:port every added torrent connects to.
	Peer    string
	Monitor struct {
		Dir      string
		Interval time.Duration
	}
	UI struct {
		Refresh  time.Duration
		Headless bool
	}
	Torrent struct {
		MaxConnections int
		// rate limits are in bytes per second, 0 means unlimited
		UploadLimit   int
		DownloadLimit int
		SeedMode      bool
		ShareMode     bool
		Sequential    bool
	}
	Log struct {
		File  string
		Level string
	}
	Resume struct {
		Backend    string
		SQLitePath string
		S3         struct {
			Bucket   string
			Prefix   string
			Region   string
			Endpoint string
		}
	}
	AWS struct {
		Profile string
	}
	Engine struct {
		ListenPort int
		NoDHT      bool
	}
	Metrics struct {
		Addr string
	}
}

// Resume backends.
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// flag names shared by RegisterFlags and Load
const (
	flagConfig        = "config"
	flagSavePath      = "save-path"
	flagMonitorDir    = "monitor-dir"
	flagScanInterval  = "scan-interval"
	flagRefresh       = "refresh"
	flagMaxConns      = "max-connections"
	flagUploadLimit   = "upload-limit"
	flagDownloadLimit = "download-limit"
	flagSeedMode      = "seed-mode"
	flagShareMode     = "share-mode"
	flagSequential    = "sequential"
	flagPeer          = "peer"
	flagLogFile       = "log-file"
	flagHeadless      = "headless"
	flagBackend       = "resume-backend"
	flagMetricsAddr   = "metrics-addr"
	flagIPFilter      = "ip-filter"
)

// RegisterFlags adds the command line surface to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(flagConfig, "", "path to a config file")
	fs.StringP(flagSavePath, "s", ".", "directory to save downloads and resume data in")
	fs.StringP(flagMonitorDir, "m", "", "directory to watch for .torrent files")
	fs.IntP(flagScanInterval, "t", 5, "seconds between scans of the monitor directory")
	fs.IntP(flagRefresh, "F", 500, "screen refresh interval in milliseconds")
	fs.IntP(flagMaxConns, "T", 50, "maximum connections per torrent")
	fs.IntP(flagUploadLimit, "U", 0, "upload rate limit in kB/s, 0 for unlimited")
	fs.IntP(flagDownloadLimit, "D", 0, "download rate limit in kB/s, 0 for unlimited")
	fs.BoolP(flagSeedMode, "G", false, "add torrents in seed mode")
	fs.BoolP(flagShareMode, "Q", false, "add torrents in share mode")
	fs.Bool(flagSequential, false, "download pieces in order")
	fs.StringP(flagPeer, "r", "", "connect every torrent to this IP:port")
	fs.StringP(flagLogFile, "f", "", "write every event to this file")
	fs.Bool(flagHeadless, false, "run without the terminal interface")
	fs.String(flagBackend, BackendFS, "resume data backend: fs, sqlite or s3")
	fs.String(flagMetricsAddr, "", "serve prometheus metrics on this address")
	fs.StringP(flagIPFilter, "x", "", "load an IP filter of \"first - last access\" ranges from this file")
}

// Load reads configuration from flags, environment variables and optional
// config files. flags may be nil.
func Load(flags *pflag.FlagSet) (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("MAGNETCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("savepath", ".")
	v.SetDefault("sessionstate", ".ses_state")
	v.SetDefault("peer", "")
	v.SetDefault("ipfilter", "")
	v.SetDefault("monitor.dir", "")
	v.SetDefault("monitor.interval", 5*time.Second)
	v.SetDefault("ui.refresh", 500*time.Millisecond)
	v.SetDefault("ui.headless", false)
	v.SetDefault("torrent.maxconnections", 50)
	v.SetDefault("torrent.uploadlimit", 0)
	v.SetDefault("torrent.downloadlimit", 0)
	v.SetDefault("torrent.seedmode", false)
	v.SetDefault("torrent.sharemode", false)
	v.SetDefault("torrent.sequential", false)
	v.SetDefault("log.file", "magnetctl.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("resume.backend", BackendFS)
	v.SetDefault("resume.sqlitepath", "resume.db")
	v.SetDefault("resume.s3.bucket", "")
	v.SetDefault("resume.s3.prefix", "magnetctl-resume")
	v.SetDefault("resume.s3.region", "us-east-1")
	v.SetDefault("resume.s3.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("engine.listenport", 42069)
	v.SetDefault("engine.nodht", false)
	v.SetDefault("metrics.addr", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if flags != nil {
		if path, _ := flags.GetString(flagConfig); path != "" {
			v.SetConfigFile(path)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	direct := map[string]string{
		flagSavePath:    "savepath",
		flagMonitorDir:  "monitor.dir",
		flagMaxConns:    "torrent.maxconnections",
		flagSeedMode:    "torrent.seedmode",
		flagShareMode:   "torrent.sharemode",
		flagSequential:  "torrent.sequential",
		flagPeer:        "peer",
		flagLogFile:     "log.file",
		flagHeadless:    "ui.headless",
		flagBackend:     "resume.backend",
		flagMetricsAddr: "metrics.addr",
		flagIPFilter:    "ipfilter",
	}
	for name, key := range direct {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	// flags whose unit differs from the config key
	if flags.Changed(flagScanInterval) {
		n, _ := flags.GetInt(flagScanInterval)
		v.Set("monitor.interval", time.Duration(n)*time.Second)
	}
	if flags.Changed(flagRefresh) {
		n, _ := flags.GetInt(flagRefresh)
		v.Set("ui.refresh", time.Duration(n)*time.Millisecond)
	}
	if flags.Changed(flagUploadLimit) {
		n, _ := flags.GetInt(flagUploadLimit)
		v.Set("torrent.uploadlimit", n*1000)
	}
	if flags.Changed(flagDownloadLimit) {
		n, _ := flags.GetInt(flagDownloadLimit)
		v.Set("torrent.downloadlimit", n*1000)
	}
	return nil
}

func (c Config) validate() error {
	switch c.Resume.Backend {
	case BackendFS, BackendSQLite:
	case BackendS3:
		if c.Resume.S3.Bucket == "" {
			return fmt.Errorf("resume.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown resume backend %q", c.Resume.Backend)
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive")
	}
	if c.UI.Refresh <= 0 {
		return fmt.Errorf("ui.refresh must be positive")
	}
	return nil
}

// AddOptions returns the request options every explicitly added torrent gets.
// Modes are only forced on, so a mode stored in resume data survives.
func (c Config) AddOptions() domain.Options {
	o := domain.Options{}.
		WithSavePath(c.SavePath).
		WithLimits(c.Torrent.UploadLimit, c.Torrent.DownloadLimit).
		WithMaxConnections(c.Torrent.MaxConnections)
	if c.Torrent.SeedMode {
		o = o.WithSeedMode(true)
	}
	if c.Torrent.ShareMode {
		o = o.WithShareMode(true)
	}
	if c.Torrent.Sequential {
		o = o.WithSequential(true)
	}
	return o
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
