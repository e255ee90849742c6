// Package entity defines the archived snapshot of every cached entity kind.
//
// Each kind has:
//
//   - a Cached<Kind> snapshot struct with a New... constructor that borrows the
//     strings and slices of the live object, used for the initial write;
//   - an Archived<Kind> read-only view over validated archive bytes, with
//     zero-copy accessors and Deserialize to get an owned snapshot back;
//   - a Cacheable describing its buffer strategy and expiration;
//   - optionally, update hooks that patch an existing archive.
//
// An update hook compares every variable-length field it is about to change
// against the archive. If all of them are equal, only fixed-width fields are
// written, directly into the existing bytes. Otherwise the archive is
// deserialized, mutated and encoded again. A hook never mixes the two.
package entity

import (
	"github.com/pkg/errors"
)

// Path tells how a patch was applied.
type Path uint8

const (
	PathNone    Path = iota // nothing written
	PathInPlace             // fixed-width fields overwritten in the existing bytes
	PathRewrite             // archive decoded, mutated and encoded again
)

func (p Path) String() string {
	switch p {
	case PathInPlace:
		return "in_place"
	case PathRewrite:
		return "rewrite"
	}
	return "none"
}

// PatchFunc patches the archive in buf. It returns the bytes to store: buf
// itself after an in-place patch, or a new buffer after a rewrite.
// On error, buf is left untouched.
type PatchFunc func(buf []byte) ([]byte, Path, error)

// Record is an owned or borrowed snapshot that can be encoded into an archive.
type Record interface {
	EncodedSize() int
	// Encode appends the archive to dst.
	Encode(dst []byte) []byte
}

// checker is implemented by records with values that encode fine but would
// not parse again. Cacheable refuses to encode them.
type checker interface {
	Check() error
}

type deserializer[T Record] interface {
	Deserialize() (T, error)
}

// rewrite is the slow path: decode into an owned value, apply all changes in
// a single mutation and encode the result into a new buffer.
func rewrite[T Record](a deserializer[T], c Cacheable, mutate func(*T)) ([]byte, Path, error) {
	owned, err := a.Deserialize()
	if err != nil {
		return nil, PathNone, errors.Wrap(err, "deserialize")
	}
	mutate(&owned)
	out, err := c.Serialize(owned)
	if err != nil {
		return nil, PathNone, errors.Wrap(err, "serialize")
	}
	return out, PathRewrite, nil
}

func equalOptString(archived []byte, present bool, v *string) bool {
	if v == nil {
		return !present
	}
	return present && string(archived) == *v
}
