package domain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// IdentitySize is the length in bytes of a torrent content hash.
const IdentitySize = 20

// ErrInvalidIdentity is returned when a textual identity cannot be decoded.
var ErrInvalidIdentity = errors.New("invalid torrent identity")

// Identity is the fixed-length content hash uniquely identifying a torrent.
type Identity [IdentitySize]byte

// Hex returns the stable lower-case hex encoding used as storage key.
func (id Identity) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id Identity) String() string {
	return id.Hex()
}

// IsZero reports whether the identity was never set.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// ParseIdentity decodes a 40 character hex string.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	s = strings.TrimSpace(s)
	if len(s) != 2*IdentitySize {
		return id, fmt.Errorf("%w: %q has length %d", ErrInvalidIdentity, s, len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	return id, nil
}
