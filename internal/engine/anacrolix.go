package engine

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/iplist"
	"github.com/anacrolix/torrent/metainfo"
	tstorage "github.com/anacrolix/torrent/storage"
	"github.com/anacrolix/torrent/tracker"
	"github.com/anacrolix/torrent/tracker/udp"
	"github.com/anacrolix/torrent/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"magnetctl/internal/domain"
	"magnetctl/internal/resume"
)

// Config configures the anacrolix client. Rate limits are in bytes per second
// and apply to the whole client.
type Config struct {
	DataDir string
	// ListenPort 0 picks a free port.
	ListenPort       int
	NoDHT            bool
	NoPortForwarding bool
	Seed             bool
	UploadLimit      int
	DownloadLimit    int
	TrackerList      []string
	IPBlocklist      iplist.Ranger
	// State is a blob previously returned by SaveState.
	State        []byte
	PollInterval time.Duration
	Logger       *logrus.Logger
}

const trackerTimeout = 15 * time.Second

// Client runs an anacrolix torrent client and reports its activity as alerts.
type Client struct {
	cfg    Config
	client *torrent.Client
	alerts *Queue
	logger *logrus.Entry

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	paused   bool
	torrents map[domain.Identity]*handle
	peers    sync.Map // *torrent.PeerConn -> domain.Identity
}

type handle struct {
	t        *torrent.Torrent
	params   domain.Params
	finished bool
	lastRead int64
	lastSent int64
	lastAt   time.Time
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if len(cfg.TrackerList) == 0 {
		cfg.TrackerList = defaultTrackers()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	c := &Client{
		cfg:      cfg,
		alerts:   NewQueue(),
		logger:   cfg.Logger.WithField("component", "engine"),
		torrents: make(map[domain.Identity]*handle),
	}

	clientConfig := torrent.NewDefaultClientConfig()
	clientConfig.DataDir = cfg.DataDir
	clientConfig.Seed = cfg.Seed
	clientConfig.NoDHT = cfg.NoDHT
	clientConfig.NoDefaultPortForwarding = cfg.NoPortForwarding
	clientConfig.ListenPort = cfg.ListenPort
	if cfg.IPBlocklist != nil {
		clientConfig.IPBlocklist = cfg.IPBlocklist
	}
	if cfg.UploadLimit > 0 {
		clientConfig.UploadRateLimiter = rate.NewLimiter(rate.Limit(cfg.UploadLimit), cfg.UploadLimit)
	}
	if cfg.DownloadLimit > 0 {
		clientConfig.DownloadRateLimiter = rate.NewLimiter(rate.Limit(cfg.DownloadLimit), cfg.DownloadLimit)
	}
	if err := applyState(clientConfig, cfg.State); err != nil {
		c.logger.Warnf("ignoring session state: %v", err)
	}
	clientConfig.Callbacks.CompletedHandshake = c.onHandshake
	clientConfig.Callbacks.PeerConnClosed = c.onPeerClosed

	client, err := torrent.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create torrent client: %w", err)
	}

	c.client = client
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.logger.Infof("engine started, data dir: %s", cfg.DataDir)
	return c, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	if c.client != nil {
		c.client.Close()
	}
	c.logger.Info("engine stopped")
	return nil
}

func (c *Client) PopAlerts() []domain.Alert {
	return c.alerts.Pop()
}

func (c *Client) WaitForAlert(timeout time.Duration) domain.Alert {
	return c.alerts.Wait(timeout)
}

func (c *Client) Submit(_ context.Context, req domain.AddRequest) (domain.Identity, error) {
	p := req.Resolve()
	if p.Identity.IsZero() {
		err := fmt.Errorf("add request without identity")
		c.alerts.Push(domain.TorrentAdded{Header: header(domain.CategoryError, p), Err: err})
		return p.Identity, err
	}
	if p.SavePath == "" {
		p.SavePath = c.cfg.DataDir
	}

	// seed mode trusts the data on disk instead of hashing it up front
	spec := &torrent.TorrentSpec{
		AddTorrentOpts: torrent.AddTorrentOpts{
			InfoHash:                 metainfo.Hash(p.Identity),
			InfoBytes:                p.InfoBytes,
			Storage:                  tstorage.NewFile(p.SavePath),
			DisableInitialPieceCheck: p.Flags.Has(domain.FlagSeedMode),
		},
		DisplayName: p.Name,
	}
	trackers := p.Trackers
	if len(trackers) == 0 {
		trackers = c.cfg.TrackerList
	}
	for _, tr := range trackers {
		spec.Trackers = append(spec.Trackers, []string{tr})
	}

	t, isNew, err := c.client.AddTorrentSpec(spec)
	if err != nil {
		err = fmt.Errorf("add torrent: %w", err)
		c.alerts.Push(domain.TorrentAdded{Header: header(domain.CategoryError, p), Err: err})
		return p.Identity, err
	}
	if !isNew {
		// duplicates are not errors, the existing torrent is kept
		c.alerts.Push(domain.TorrentAdded{Header: header(domain.CategoryStatus, p)})
		return p.Identity, nil
	}
	if p.MaxConnections > 0 {
		t.SetMaxEstablishedConns(p.MaxConnections)
	}

	h := &handle{t: t, params: p, lastAt: time.Now()}
	c.mu.Lock()
	c.torrents[p.Identity] = h
	paused := c.paused || p.Flags.Has(domain.FlagPaused)
	c.mu.Unlock()
	if paused {
		t.DisallowDataDownload()
		t.DisallowDataUpload()
	}

	c.alerts.Push(domain.TorrentAdded{Header: header(domain.CategoryStatus, p)})

	fetchMetadata := len(p.InfoBytes) == 0
	if err := c.spawn(func(context.Context) { c.watch(h, fetchMetadata) }); err != nil {
		c.logger.WithField("torrent", p.Identity.Hex()).Warnf("not watching torrent: %v", err)
	}
	return p.Identity, nil
}

// spawn runs fn on a goroutine that Close waits for. It fails once the engine
// is closed.
func (c *Client) spawn(fn func(ctx context.Context)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.ctx)
	}()
	return nil
}

// watch follows a torrent until it is dropped or the engine closes, turning
// metadata arrival and completion into alerts.
func (c *Client) watch(h *handle, fetchMetadata bool) {
	t := h.t
	select {
	case <-c.ctx.Done():
		return
	case <-t.Closed():
		return
	case <-t.GotInfo():
	}

	c.mu.Lock()
	if fetchMetadata {
		h.params.Flags |= domain.FlagNeedSave
	}
	h.params.Name = t.Name()
	hdr := header(domain.CategoryStatus, h.params)
	c.mu.Unlock()
	if fetchMetadata {
		c.alerts.Push(domain.MetadataReceived{Header: hdr})
	}
	t.DownloadAll()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-t.Closed():
			return
		case <-ticker.C:
			if t.BytesMissing() != 0 {
				continue
			}
			c.mu.Lock()
			done := h.finished
			h.finished = true
			h.params.Flags |= domain.FlagNeedSave
			hdr := header(domain.CategoryStatus, h.params)
			c.mu.Unlock()
			if !done {
				c.alerts.Push(domain.TorrentFinished{Header: hdr})
			}
		}
	}
}

func (c *Client) lookup(id domain.Identity) (*handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.torrents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTorrent, id)
	}
	return h, nil
}

func (c *Client) RequestSave(id domain.Identity, flags SaveFlags) error {
	return c.spawn(func(context.Context) {
		c.alerts.Push(c.save(id, flags))
	})
}

func (c *Client) save(id domain.Identity, flags SaveFlags) domain.Alert {
	hdr := domain.Header{Time: time.Now(), Category: domain.CategoryStorage | domain.CategoryError, Torrent: id}
	c.mu.Lock()
	h, ok := c.torrents[id]
	if !ok {
		c.mu.Unlock()
		return domain.SaveFailed{Header: hdr, Reason: domain.SaveFailedInvalidTorrent}
	}
	if flags&SaveOnlyIfModified != 0 && !h.params.Flags.Has(domain.FlagNeedSave) {
		c.mu.Unlock()
		hdr.Category = domain.CategoryStorage
		return domain.SaveFailed{Header: hdr, Reason: domain.SaveFailedNotModified}
	}
	p := h.params
	p.Flags &^= domain.FlagNeedSave
	h.params.Flags &^= domain.FlagNeedSave
	c.mu.Unlock()

	if info := h.t.Info(); info != nil {
		p.Name = h.t.Name()
		if flags&SaveInfoDict != 0 {
			p.InfoBytes = h.t.Metainfo().InfoBytes
		}
	}
	hdr.Name = p.Name

	blob, err := resume.Encode(p)
	if err != nil {
		c.mu.Lock()
		h.params.Flags |= domain.FlagNeedSave
		c.mu.Unlock()
		return domain.SaveFailed{Header: hdr, Err: err}
	}
	hdr.Category = domain.CategoryStorage
	return domain.SaveSucceeded{Header: hdr, SavePath: p.SavePath, Payload: blob}
}

func (c *Client) Pause() {
	c.mu.Lock()
	c.paused = true
	hs := c.handles()
	c.mu.Unlock()
	for _, h := range hs {
		h.t.DisallowDataDownload()
		h.t.DisallowDataUpload()
	}
}

func (c *Client) Resume() {
	c.mu.Lock()
	c.paused = false
	var active []*handle
	for _, h := range c.torrents {
		if !h.params.Flags.Has(domain.FlagPaused) {
			active = append(active, h)
		}
	}
	c.mu.Unlock()
	for _, h := range active {
		h.t.AllowDataDownload()
		h.t.AllowDataUpload()
	}
}

func (c *Client) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// handles must be called with c.mu held.
func (c *Client) handles() []*handle {
	out := make([]*handle, 0, len(c.torrents))
	for _, h := range c.torrents {
		out = append(out, h)
	}
	return out
}

func (c *Client) Statuses(pred func(domain.TorrentStatus) bool) []domain.TorrentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	out := make([]domain.TorrentStatus, 0, len(c.torrents))
	for _, h := range c.torrents {
		st := c.status(h, now)
		if pred == nil || pred(st) {
			out = append(out, st)
		}
	}
	return out
}

// status must be called with c.mu held.
func (c *Client) status(h *handle, now time.Time) domain.TorrentStatus {
	t := h.t
	stats := t.Stats()
	st := domain.TorrentStatus{
		Identity:         h.params.Identity,
		Name:             t.Name(),
		SavePath:         h.params.SavePath,
		Flags:            h.params.Flags,
		TotalPeers:       stats.TotalPeers,
		ActivePeers:      stats.ActivePeers,
		ConnectedSeeders: stats.ConnectedSeeders,
		HalfOpenPeers:    stats.HalfOpenPeers,
		MaxConnections:   h.params.MaxConnections,
		Trackers:         h.params.Trackers,
	}

	read := stats.BytesReadUsefulData.Int64()
	sent := stats.BytesWrittenData.Int64()
	if elapsed := now.Sub(h.lastAt).Seconds(); elapsed > 0 {
		st.DownloadRate = int64(float64(read-h.lastRead) / elapsed)
		st.UploadRate = int64(float64(sent-h.lastSent) / elapsed)
	}
	h.lastRead, h.lastSent, h.lastAt = read, sent, now

	switch {
	case c.paused || h.params.Flags.Has(domain.FlagPaused):
		st.State = domain.StatePaused
	case t.Info() == nil:
		st.State = domain.StateMetadata
	case t.BytesMissing() == 0:
		st.State = domain.StateSeeding
	default:
		st.State = domain.StateDownloading
	}
	if t.Info() != nil {
		st.HasMetadata = true
		st.NumPieces = t.NumPieces()
		st.TotalSize = t.Length()
		st.BytesCompleted = t.BytesCompleted()
	}
	return st
}

func (c *Client) PostUpdates() {
	now := time.Now()
	statuses := c.Statuses(nil)
	c.alerts.Push(domain.StateUpdate{
		Header:   domain.Header{Time: now, Category: domain.CategoryStatus},
		Torrents: statuses,
	})

	stats := domain.SessionStats{At: now, Torrents: len(statuses), Paused: c.IsPaused()}
	for _, st := range statuses {
		stats.Peers += st.ActivePeers
		stats.DownloadRate += st.DownloadRate
		stats.UploadRate += st.UploadRate
	}
	for _, t := range c.client.Torrents() {
		ts := t.Stats()
		stats.BytesRead += ts.BytesReadUsefulData.Int64()
		stats.BytesWritten += ts.BytesWrittenData.Int64()
	}
	c.alerts.Push(domain.StatsSnapshot{
		Header: domain.Header{Time: now, Category: domain.CategoryStats},
		Stats:  stats,
	})

	if c.cfg.NoDHT {
		return
	}
	var dht domain.DHTStatus
	for _, s := range c.client.DhtServers() {
		dht.Nodes = append(dht.Nodes, domain.DHTNode{
			Addr:  s.Addr().String(),
			Stats: fmt.Sprintf("%+v", s.Stats()),
		})
	}
	c.alerts.Push(domain.DHTSnapshot{
		Header: domain.Header{Time: now, Category: domain.CategoryDHT},
		DHT:    dht,
	})
}

func (c *Client) SetMaxConnections(id domain.Identity, n int) error {
	h, err := c.lookup(id)
	if err != nil {
		return err
	}
	if n < 1 {
		n = 1
	}
	h.t.SetMaxEstablishedConns(n)
	c.mu.Lock()
	h.params.MaxConnections = n
	h.params.Flags |= domain.FlagNeedSave
	c.mu.Unlock()
	return nil
}

func (c *Client) ConnectPeer(id domain.Identity, addr string) error {
	h, err := c.lookup(id)
	if err != nil {
		return err
	}
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return fmt.Errorf("resolve peer %q: %w", addr, err)
	}
	if tcpAddr.Port <= 0 {
		return fmt.Errorf("peer %q has no port", addr)
	}
	h.t.AddPeers([]torrent.PeerInfo{{Addr: tcpAddr}})
	return nil
}

func (c *Client) PauseTorrent(id domain.Identity) error {
	h, err := c.lookup(id)
	if err != nil {
		return err
	}
	h.t.DisallowDataDownload()
	h.t.DisallowDataUpload()
	c.mu.Lock()
	h.params.Flags = (h.params.Flags | domain.FlagPaused | domain.FlagNeedSave) &^ domain.FlagAutoManaged
	hdr := header(domain.CategoryStatus, h.params)
	c.mu.Unlock()
	c.alerts.Push(domain.TorrentPaused{Header: hdr})
	return nil
}

func (c *Client) ResumeTorrent(id domain.Identity) error {
	h, err := c.lookup(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	h.params.Flags = (h.params.Flags &^ domain.FlagPaused) | domain.FlagAutoManaged | domain.FlagNeedSave
	sessionPaused := c.paused
	hdr := header(domain.CategoryStatus, h.params)
	c.mu.Unlock()
	if !sessionPaused {
		h.t.AllowDataDownload()
		h.t.AllowDataUpload()
	}
	c.alerts.Push(domain.Generic{Header: hdr, Text: fmt.Sprintf("%s: resumed", h.t.Name())})
	return nil
}

func (c *Client) Remove(id domain.Identity, deleteData bool) error {
	h, err := c.lookup(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.torrents, id)
	hdr := header(domain.CategoryStatus, h.params)
	c.mu.Unlock()

	name := h.t.Name()
	hasInfo := h.t.Info() != nil
	h.t.Drop()
	c.alerts.Push(domain.Generic{Header: hdr, Text: fmt.Sprintf("%s: removed", name)})

	if deleteData && hasInfo && name != "" {
		target := filepath.Join(h.params.SavePath, name)
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("delete data %s: %w", target, err)
		}
		c.alerts.Push(domain.Generic{Header: hdr, Text: fmt.Sprintf("%s: deleted files", name)})
	}
	return nil
}

func (c *Client) ForceRecheck(id domain.Identity) error {
	h, err := c.lookup(id)
	if err != nil {
		return err
	}
	if h.t.Info() == nil {
		return fmt.Errorf("recheck %s: torrent has no metadata", id)
	}
	return c.spawn(func(ctx context.Context) {
		err := h.t.VerifyDataContext(ctx)
		c.mu.Lock()
		h.params.Flags |= domain.FlagNeedSave
		hdr := header(domain.CategoryStorage, h.params)
		c.mu.Unlock()
		if err != nil {
			c.alerts.Push(failure(hdr, fmt.Sprintf("%s: check failed: %v", h.t.Name(), err)))
			return
		}
		c.alerts.Push(notice(hdr, fmt.Sprintf("%s: checked", h.t.Name())))
	})
}

// ForceReannounce announces the torrent to every tracker and DHT server right
// away. Each result is reported as an alert.
func (c *Client) ForceReannounce(id domain.Identity) error {
	h, err := c.lookup(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	trackers := c.trackers(h)
	hdr := header(domain.CategoryStatus, h.params)
	c.mu.Unlock()

	return c.spawn(func(ctx context.Context) {
		req := tracker.AnnounceRequest{
			InfoHash: id,
			PeerId:   c.client.PeerID(),
			Left:     -1,
			NumWant:  -1,
			Port:     uint16(c.client.LocalPort()),
		}
		if h.t.Info() != nil {
			req.Left = h.t.BytesMissing()
		}
		for _, tr := range trackers {
			actx, cancel := context.WithTimeout(ctx, trackerTimeout)
			res, err := tracker.Announce{TrackerUrl: tr, Request: req, Context: actx}.Do()
			cancel()
			if err != nil {
				c.alerts.Push(failure(hdr, fmt.Sprintf("%s: announce to %s failed: %v", hdr.Name, tr, err)))
				continue
			}
			peers := make([]torrent.PeerInfo, 0, len(res.Peers))
			for _, p := range res.Peers {
				peers = append(peers, torrent.PeerInfo{
					Addr:   &net.TCPAddr{IP: p.IP, Port: p.Port},
					Source: torrent.PeerSourceTracker,
				})
			}
			h.t.AddPeers(peers)
			c.alerts.Push(notice(hdr, fmt.Sprintf("%s: %s returned %d peers", hdr.Name, tr, len(peers))))
		}
		for _, s := range c.client.DhtServers() {
			c.announceDHT(ctx, h, s, hdr)
		}
	})
}

func (c *Client) announceDHT(ctx context.Context, h *handle, s torrent.DhtServer, hdr domain.Header) {
	done, stop, err := h.t.AnnounceToDht(s)
	if err != nil {
		c.alerts.Push(failure(hdr, fmt.Sprintf("%s: dht announce failed: %v", hdr.Name, err)))
		return
	}
	defer stop()
	timer := time.NewTimer(trackerTimeout)
	defer timer.Stop()
	select {
	case <-done:
		c.alerts.Push(notice(hdr, fmt.Sprintf("%s: dht announce done", hdr.Name)))
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Scrape asks the torrent's trackers, in order, for swarm counts and reports
// the first answer.
func (c *Client) Scrape(id domain.Identity) error {
	h, err := c.lookup(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	trackers := c.trackers(h)
	hdr := header(domain.CategoryStatus, h.params)
	c.mu.Unlock()

	return c.spawn(func(ctx context.Context) {
		for _, tr := range trackers {
			res, err := scrape(ctx, tr, id)
			if err != nil {
				c.alerts.Push(failure(hdr, fmt.Sprintf("%s: scrape %s failed: %v", hdr.Name, tr, err)))
				continue
			}
			c.alerts.Push(notice(hdr, fmt.Sprintf("%s: %s reports %d seeders, %d leechers, %d downloads",
				hdr.Name, tr, res.Seeders, res.Leechers, res.Completed)))
			return
		}
	})
}

func scrape(ctx context.Context, url string, id domain.Identity) (udp.ScrapeInfohashResult, error) {
	cl, err := tracker.NewClient(url, tracker.NewClientOpts{})
	if err != nil {
		return udp.ScrapeInfohashResult{}, err
	}
	defer cl.Close()
	ctx, cancel := context.WithTimeout(ctx, trackerTimeout)
	defer cancel()
	out, err := cl.Scrape(ctx, []metainfo.Hash{metainfo.Hash(id)})
	if err != nil {
		return udp.ScrapeInfohashResult{}, err
	}
	if len(out) == 0 {
		return udp.ScrapeInfohashResult{}, fmt.Errorf("empty scrape response")
	}
	return out[0], nil
}

// trackers must be called with c.mu held.
func (c *Client) trackers(h *handle) []string {
	if len(h.params.Trackers) > 0 {
		return append([]string(nil), h.params.Trackers...)
	}
	return append([]string(nil), c.cfg.TrackerList...)
}

func notice(hdr domain.Header, text string) domain.Alert {
	hdr.Time = time.Now()
	return domain.Generic{Header: hdr, Text: text}
}

func failure(hdr domain.Header, text string) domain.Alert {
	hdr.Category |= domain.CategoryError
	return notice(hdr, text)
}

func (c *Client) SetSequential(id domain.Identity, on bool) error {
	h, err := c.lookup(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if on {
		h.params.Flags |= domain.FlagSequential
	} else {
		h.params.Flags &^= domain.FlagSequential
	}
	h.params.Flags |= domain.FlagNeedSave
	c.mu.Unlock()
	if on && h.t.Info() != nil {
		return c.SetPieceDeadlines(id, sequentialWindow)
	}
	return nil
}

const sequentialWindow = 16

// SetPieceDeadlines raises the priority of the first pieces, the nearest ones
// the most.
func (c *Client) SetPieceDeadlines(id domain.Identity, pieces int) error {
	h, err := c.lookup(id)
	if err != nil {
		return err
	}
	if h.t.Info() == nil {
		return fmt.Errorf("set deadlines %s: torrent has no metadata", id)
	}
	if n := h.t.NumPieces(); pieces > n {
		pieces = n
	}
	for i := 0; i < pieces; i++ {
		prio := types.PiecePriorityHigh
		switch {
		case i == 0:
			prio = types.PiecePriorityNow
		case i == 1:
			prio = types.PiecePriorityNext
		case i < 10:
			prio = types.PiecePriorityReadahead
		}
		h.t.Piece(i).SetPriority(prio)
	}
	return nil
}

func (c *Client) onHandshake(pc *torrent.PeerConn, ih torrent.InfoHash) {
	id := domain.Identity(ih)
	c.peers.Store(pc, id)
	c.alerts.Push(domain.PeerConnected{
		Header: domain.Header{Time: time.Now(), Category: domain.CategoryPeer, Torrent: id},
		Addr:   pc.RemoteAddr.String(),
	})
}

func (c *Client) onPeerClosed(pc *torrent.PeerConn) {
	v, ok := c.peers.LoadAndDelete(pc)
	reason := domain.DisconnectClosed
	var id domain.Identity
	if ok {
		id = v.(domain.Identity)
	} else {
		reason = domain.DisconnectNoHandshake
	}
	c.alerts.Push(domain.PeerDisconnected{
		Header: domain.Header{Time: time.Now(), Category: domain.CategoryPeer, Torrent: id},
		Addr:   pc.RemoteAddr.String(),
		Reason: reason,
	})
}

func header(cat domain.Category, p domain.Params) domain.Header {
	return domain.Header{Time: time.Now(), Category: cat, Torrent: p.Identity, Name: p.Name}
}

func defaultTrackers() []string {
	return []string{
		"udp://tracker.opentrackr.org:1337/announce",
		"udp://tracker.openbittorrent.com:6969/announce",
		"udp://open.stealth.si:80/announce",
		"udp://exodus.desync.com:6969/announce",
		"http://tracker.opentrackr.org:1337/announce",
		"udp://tracker.torrent.eu.org:451/announce",
	}
}

var _ Engine = (*Client)(nil)
