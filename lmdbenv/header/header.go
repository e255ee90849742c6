// Package header implements the header stored by the LMDB backend in front
// of every archive.
package header

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// Header describes the header of a stored value
type Header struct {
	StoredAt  time.Time // time of last write
	ExpiresAt time.Time // zero if the value never expires
	Version   int       // header version (currently always 0)
	Flags     uint8     // header flags (currently unused)
}

// New returns the header for a value written at now with the given
// time-to-live. A ttl of 0 means no expiration.
func New(now time.Time, ttl time.Duration) Header {
	h := Header{StoredAt: now}
	if ttl > 0 {
		h.ExpiresAt = now.Add(ttl)
	}
	return h
}

// Expired reports whether the value expired at the given time
func (h Header) Expired(now time.Time) bool {
	return !h.ExpiresAt.IsZero() && !now.Before(h.ExpiresAt)
}

func (h Header) MarshalBinary() (data []byte, err error) {
	return h.Bytes(), nil
}

func (h Header) Bytes() []byte {
	b := make([]byte, Size)
	h.Put(b)
	return b
}

// Put writes the header to b, which must be at least Size bytes long.
func (h Header) Put(b []byte) {
	binary.BigEndian.PutUint64(b[:8], uint64(h.StoredAt.UnixNano()))
	var expires uint64
	if !h.ExpiresAt.IsZero() {
		expires = uint64(h.ExpiresAt.UnixNano())
	}
	binary.BigEndian.PutUint64(b[8:16], expires)
	b[VersionOffset] = uint8(h.Version)
	b[FlagsOffset] = h.Flags
	clear(b[FlagsOffset+1 : Size])
}

var (
	ErrTooShort = errors.New("value too short to contain a header")
	ErrVersion  = errors.New("unsupported header version or not a header")
)

// Size is the header size
const Size = 24

const (
	VersionOffset = 16
	FlagsOffset   = 17
)

// Parse parses a value with header and returns the remaining application value.
func Parse(val []byte) (header Header, value []byte, err error) {
	if len(val) < Size {
		return header, nil, ErrTooShort
	}
	if val[VersionOffset] != 0 {
		return header, nil, ErrVersion
	}
	header = Header{
		StoredAt: time.Unix(0, int64(binary.BigEndian.Uint64(val[:8]))),
		Version:  int(val[VersionOffset]),
		Flags:    val[FlagsOffset],
	}
	if expires := binary.BigEndian.Uint64(val[8:16]); expires != 0 {
		header.ExpiresAt = time.Unix(0, int64(expires))
	}
	return header, val[Size:], nil
}

// Skip skips over the header and returns the remaining application value.
func Skip(val []byte) (value []byte, err error) {
	if len(val) < Size {
		return nil, ErrTooShort
	}
	if val[VersionOffset] != 0 {
		return nil, ErrVersion
	}
	return val[Size:], nil
}
