package resume

import (
	"errors"
	"fmt"

	"github.com/anacrolix/torrent/bencode"

	"magnetctl/internal/domain"
)

const formatVersion = 1

// ErrMalformed wraps every decoding failure.
var ErrMalformed = errors.New("malformed resume data")

type record struct {
	Version        int      `bencode:"version"`
	InfoHash       string   `bencode:"info-hash"`
	Name           string   `bencode:"name,omitempty"`
	SavePath       string   `bencode:"save_path"`
	Trackers       []string `bencode:"trackers,omitempty"`
	Info           []byte   `bencode:"info,omitempty"`
	UploadLimit    int      `bencode:"upload_rate_limit"`
	DownloadLimit  int      `bencode:"download_rate_limit"`
	MaxConnections int      `bencode:"max_connections"`
	Flags          uint32   `bencode:"flags"`
	Origin         string   `bencode:"origin,omitempty"`
}

// Encode serializes params into a bencoded resume blob.
func Encode(p domain.Params) ([]byte, error) {
	rec := record{
		Version:        formatVersion,
		InfoHash:       string(p.Identity[:]),
		Name:           p.Name,
		SavePath:       p.SavePath,
		Trackers:       p.Trackers,
		Info:           p.InfoBytes,
		UploadLimit:    p.UploadLimit,
		DownloadLimit:  p.DownloadLimit,
		MaxConnections: p.MaxConnections,
		Flags:          uint32(p.Flags),
		Origin:         p.Origin,
	}
	b, err := bencode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode resume data: %w", err)
	}
	return b, nil
}

// Decode parses a resume blob produced by Encode.
func Decode(b []byte) (domain.Params, error) {
	var rec record
	if len(b) == 0 {
		return domain.Params{}, fmt.Errorf("%w: empty blob", ErrMalformed)
	}
	if err := bencode.Unmarshal(b, &rec); err != nil {
		return domain.Params{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if rec.Version != formatVersion {
		return domain.Params{}, fmt.Errorf("%w: unsupported version %d", ErrMalformed, rec.Version)
	}
	if len(rec.InfoHash) != domain.IdentitySize {
		return domain.Params{}, fmt.Errorf("%w: info-hash has length %d", ErrMalformed, len(rec.InfoHash))
	}

	p := domain.Params{
		Name:           rec.Name,
		SavePath:       rec.SavePath,
		Trackers:       rec.Trackers,
		InfoBytes:      rec.Info,
		UploadLimit:    rec.UploadLimit,
		DownloadLimit:  rec.DownloadLimit,
		MaxConnections: rec.MaxConnections,
		Flags:          domain.TorrentFlags(rec.Flags),
		Origin:         rec.Origin,
	}
	copy(p.Identity[:], rec.InfoHash)
	return p, nil
}
