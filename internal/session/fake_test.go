package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"magnetctl/internal/domain"
	"magnetctl/internal/engine"
	"magnetctl/internal/resume"
)

type saveCall struct {
	id    domain.Identity
	flags engine.SaveFlags
}

// fakeEngine records every call and serves alerts from a script. Each call to
// WaitForAlert may release the next batch of scripted alerts.
type fakeEngine struct {
	mu       sync.Mutex
	queue    []domain.Alert
	batches  [][]domain.Alert
	waits    int
	pops     int
	paused   bool
	statuses []domain.TorrentStatus
	saves    []saveCall
	actions  []string
	state    []byte
	closed   bool
	// autoComplete answers every save request with a SaveSucceeded alert.
	autoComplete bool
	// submitErr rejects adds the way the engine does, with a failed
	// TorrentAdded alert.
	submitErr error
	saveErr   error
	cmdErr    error
	// onSubmit runs inside Submit, before the request is accepted.
	onSubmit func()
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{state: []byte("state")}
}

func (f *fakeEngine) log(format string, args ...any) {
	f.actions = append(f.actions, fmt.Sprintf(format, args...))
}

func (f *fakeEngine) push(alerts ...domain.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, alerts...)
}

func (f *fakeEngine) Submit(_ context.Context, req domain.AddRequest) (domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("submit %s", req.Source.Identity.Hex())
	if f.onSubmit != nil {
		f.onSubmit()
	}
	if f.submitErr != nil {
		f.queue = append(f.queue, domain.TorrentAdded{Header: header(req.Source.Identity), Err: f.submitErr})
		return req.Source.Identity, f.submitErr
	}
	return req.Source.Identity, nil
}

func (f *fakeEngine) PopAlerts() []domain.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pops++
	out := f.queue
	f.queue = nil
	return out
}

func (f *fakeEngine) WaitForAlert(time.Duration) domain.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits++
	f.log("wait")
	if len(f.queue) == 0 && len(f.batches) > 0 {
		f.queue = append(f.queue, f.batches[0]...)
		f.batches = f.batches[1:]
	}
	if len(f.queue) == 0 {
		return nil
	}
	return f.queue[0]
}

func (f *fakeEngine) PostUpdates() {}

func (f *fakeEngine) RequestSave(id domain.Identity, flags engine.SaveFlags) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		f.log("save-refused %s", id.Hex())
		return f.saveErr
	}
	f.saves = append(f.saves, saveCall{id: id, flags: flags})
	f.log("save %s", id.Hex())
	if f.autoComplete {
		f.queue = append(f.queue, domain.SaveSucceeded{Header: header(id), Payload: []byte(id.Hex())})
	}
	return nil
}

func (f *fakeEngine) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
	f.log("pause")
}

func (f *fakeEngine) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
	f.log("resume")
}

func (f *fakeEngine) IsPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeEngine) Statuses(pred func(domain.TorrentStatus) bool) []domain.TorrentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TorrentStatus
	for _, ts := range f.statuses {
		if pred == nil || pred(ts) {
			out = append(out, ts)
		}
	}
	return out
}

func (f *fakeEngine) SetMaxConnections(id domain.Identity, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("maxconn %s %d", id.Hex(), n)
	return nil
}

func (f *fakeEngine) ConnectPeer(id domain.Identity, addr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("connect %s %s", id.Hex(), addr)
	return nil
}

func (f *fakeEngine) simple(name string, id domain.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("%s %s", name, id.Hex())
	return f.cmdErr
}

func (f *fakeEngine) PauseTorrent(id domain.Identity) error  { return f.simple("pause-torrent", id) }
func (f *fakeEngine) ResumeTorrent(id domain.Identity) error { return f.simple("resume-torrent", id) }
func (f *fakeEngine) ForceRecheck(id domain.Identity) error  { return f.simple("recheck", id) }
func (f *fakeEngine) ForceReannounce(id domain.Identity) error {
	return f.simple("reannounce", id)
}
func (f *fakeEngine) Scrape(id domain.Identity) error { return f.simple("scrape", id) }

func (f *fakeEngine) Remove(id domain.Identity, deleteData bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("remove %s %t", id.Hex(), deleteData)
	return nil
}

func (f *fakeEngine) SetSequential(id domain.Identity, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("sequential %s %t", id.Hex(), on)
	return nil
}

func (f *fakeEngine) SetPieceDeadlines(id domain.Identity, pieces int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("deadlines %s %d", id.Hex(), pieces)
	return nil
}

func (f *fakeEngine) SaveState() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("save-state")
	return f.state, nil
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.log("close")
	return nil
}

func (f *fakeEngine) actionLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...)
}

var _ engine.Engine = (*fakeEngine)(nil)

// memStore is an in-memory resume.Store.
type memStore struct {
	mu    sync.Mutex
	blobs map[domain.Identity][]byte
	err   error
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[domain.Identity][]byte)}
}

func (s *memStore) Load(_ context.Context, id domain.Identity) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[id]
	if !ok {
		return nil, resume.ErrNotFound
	}
	return b, nil
}

func (s *memStore) Save(_ context.Context, id domain.Identity, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.blobs[id] = append([]byte(nil), blob...)
	return nil
}

func (s *memStore) Delete(_ context.Context, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return resume.ErrNotFound
	}
	delete(s.blobs, id)
	return nil
}

func (s *memStore) List(context.Context) ([]domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []domain.Identity
	for id := range s.blobs {
		ids = append(ids, id)
	}
	return ids, nil
}

func testID(b byte) domain.Identity {
	var id domain.Identity
	for i := range id {
		id[i] = b
	}
	return id
}

func header(id domain.Identity) domain.Header {
	return domain.Header{Time: time.Unix(1700000000, 0), Torrent: id}
}

// fakeKeys replays scripted keystrokes, then reports timeouts.
type fakeKeys struct {
	keys  []Key
	lines []string
}

func (k *fakeKeys) Next(time.Duration) (Key, bool) {
	if len(k.keys) == 0 {
		return 0, false
	}
	key := k.keys[0]
	k.keys = k.keys[1:]
	return key, true
}

func (k *fakeKeys) ReadLine(string) (string, error) {
	if len(k.lines) == 0 {
		return "", nil
	}
	line := k.lines[0]
	k.lines = k.lines[1:]
	return line, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
