package resume

import (
	"path/filepath"
	"sync"
)

// Locator picks the store a torrent's resume data belongs to, given the
// torrent's save path.
type Locator interface {
	For(savePath string) (Store, error)
}

// Fixed is a Locator returning the same store for every save path. Backends
// that are not rooted in the filesystem use it.
type Fixed struct {
	Store Store
}

func (f Fixed) For(string) (Store, error) {
	return f.Store, nil
}

// DirLocator opens one DirStore per save path, so resume files live next to
// the data they describe. An empty save path maps to the default store.
type DirLocator struct {
	mu     sync.Mutex
	def    *DirStore
	stores map[string]*DirStore
}

func NewDirLocator(def *DirStore) *DirLocator {
	return &DirLocator{
		def:    def,
		stores: map[string]*DirStore{filepath.Clean(filepath.Dir(def.Dir())): def},
	}
}

func (l *DirLocator) For(savePath string) (Store, error) {
	if savePath == "" {
		return l.def, nil
	}
	key := filepath.Clean(savePath)
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.stores[key]; ok {
		return s, nil
	}
	s, err := NewDirStore(key)
	if err != nil {
		return nil, err
	}
	l.stores[key] = s
	return s, nil
}

var (
	_ Locator = Fixed{}
	_ Locator = (*DirLocator)(nil)
)
