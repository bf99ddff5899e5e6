package resume

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"magnetctl/internal/domain"
)

// DirName is the resume directory created below the save path.
const DirName = ".resume"

// DirStore keeps one file per torrent, named <hex identity>.resume.
type DirStore struct {
	dir string
}

// NewDirStore opens (or creates) the resume directory below savePath.
func NewDirStore(savePath string) (*DirStore, error) {
	dir := filepath.Join(savePath, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create resume dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the directory holding the resume files.
func (s *DirStore) Dir() string {
	return s.dir
}

// Path returns the file name used for id.
func (s *DirStore) Path(id domain.Identity) string {
	return filepath.Join(s.dir, Key(id)+Suffix)
}

func (s *DirStore) Load(_ context.Context, id domain.Identity) ([]byte, error) {
	b, err := os.ReadFile(s.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read resume file: %w", err)
	}
	return b, nil
}

func (s *DirStore) Save(_ context.Context, id domain.Identity, blob []byte) error {
	if err := renameio.WriteFile(s.Path(id), blob, 0o644, renameio.WithTempDir(s.dir)); err != nil {
		return fmt.Errorf("write resume file: %w", err)
	}
	return nil
}

func (s *DirStore) Delete(_ context.Context, id domain.Identity) error {
	if err := os.Remove(s.Path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove resume file: %w", err)
	}
	return nil
}

func (s *DirStore) List(_ context.Context) ([]domain.Identity, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list resume dir: %w", err)
	}
	var ids []domain.Identity
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := identityFromName(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

var _ Store = (*DirStore)(nil)
