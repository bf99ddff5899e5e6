// Package resume persists per-torrent resume blobs keyed by torrent identity.
package resume

import (
	"context"
	"errors"
	"strings"

	"magnetctl/internal/domain"
)

// ErrNotFound is returned by Load when no blob exists for an identity.
var ErrNotFound = errors.New("resume data not found")

// Suffix is appended to the hex key by file based stores.
const Suffix = ".resume"

// Store maps a torrent identity to an opaque persisted blob.
type Store interface {
	Load(ctx context.Context, id domain.Identity) ([]byte, error)
	Save(ctx context.Context, id domain.Identity, blob []byte) error
	Delete(ctx context.Context, id domain.Identity) error
	List(ctx context.Context) ([]domain.Identity, error)
}

// Key returns the storage key for an identity.
func Key(id domain.Identity) string {
	return id.Hex()
}

func identityFromName(name string) (domain.Identity, bool) {
	if !strings.HasSuffix(name, Suffix) {
		return domain.Identity{}, false
	}
	id, err := domain.ParseIdentity(strings.TrimSuffix(name, Suffix))
	if err != nil {
		return domain.Identity{}, false
	}
	return id, true
}

// LoadParams loads and decodes the blob for id. A missing blob and a
// malformed blob are both reported as ok == false; callers fall back to
// defaults either way. The error, if any, is returned for logging only.
func LoadParams(ctx context.Context, s Store, id domain.Identity) (domain.Params, bool, error) {
	if s == nil {
		return domain.Params{}, false, nil
	}
	blob, err := s.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Params{}, false, nil
		}
		return domain.Params{}, false, err
	}
	p, err := Decode(blob)
	if err != nil {
		return domain.Params{}, false, err
	}
	return p, true, nil
}
