// Package codec implements the field codecs used to assemble entity archives.
//
// An archive is a flat byte slice made of a fixed section followed by a
// variable-length tail. Every fixed-width field lives at a constant offset in
// the fixed section, which makes it safe to overwrite in place. Every
// variable-length field is represented in the fixed section by a slot
// (tail offset and length) that points into the tail.
//
// All integers are little endian. Codecs are stateless values and can be
// shared freely.
package codec

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrTooShort      = errors.New("archive too short for field")
	ErrOutOfBounds   = errors.New("slot points outside of archive data")
	ErrInvalidBool   = errors.New("invalid bool byte")
	ErrInvalidOption = errors.New("invalid option discriminant")
	ErrInvalidUTF8   = errors.New("string is not valid UTF-8")
)

// InvalidTagError is returned when a byte tag does not map to a known
// enumeration value.
type InvalidTagError struct {
	Type  string
	Value uint8
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("unknown %s tag %d", e.Type, e.Value)
}

// Fixed is a codec for a value that always occupies Size() bytes, whatever
// the value is.
type Fixed[T any] interface {
	Size() int
	// Put writes v to b[:Size()]. The caller guarantees b is large enough.
	Put(b []byte, v T)
	// Get decodes a value from b[:Size()].
	Get(b []byte) (T, error)
}

// Var is a codec for a variable-length value. The value is represented by a
// slot of SlotSize() bytes in the fixed section and DataSize() bytes in the
// tail.
type Var[T any] interface {
	SlotSize() int
	DataSize(v T) int
	// Put writes the slot at b[at:] and the data at b[tail:]. It returns the
	// number of tail bytes written.
	Put(b []byte, at, tail int, v T) int
	// Get decodes an owned copy of the value whose slot is at b[at:].
	Get(b []byte, at int) (T, error)
	// Validate checks the slot at b[at:] and the data it points to. Data must
	// start at or after dataStart.
	Validate(b []byte, at, dataStart int) error
}

// Layout is the offset table of a record: the offset of every field is the
// sum of the sizes of all fields declared before it.
type Layout struct {
	offsets []int
	size    int
}

// NewLayout computes a Layout from field sizes in declaration order.
func NewLayout(sizes ...int) Layout {
	l := Layout{offsets: make([]int, len(sizes))}
	for i, s := range sizes {
		l.offsets[i] = l.size
		l.size += s
	}
	return l
}

// Offset returns the offset of the field with the given index
func (l Layout) Offset(field int) int {
	return l.offsets[field]
}

// Size returns the size of the record, which for an entity archive is the
// size of its fixed section.
func (l Layout) Size() int {
	return l.size
}

// Check returns ErrTooShort if b cannot hold the fixed section.
func (l Layout) Check(b []byte) error {
	if len(b) < l.size {
		return errors.Wrapf(ErrTooShort, "need %d bytes, have %d", l.size, len(b))
	}
	return nil
}

// Grow extends dst by n bytes and returns the extended slice together with
// the n new bytes. It only allocates if dst lacks the capacity.
func Grow(dst []byte, n int) (buf, added []byte) {
	l := len(dst)
	if cap(dst)-l >= n {
		buf = dst[:l+n]
	} else {
		buf = make([]byte, l+n, 2*l+n)
		copy(buf, dst)
	}
	added = buf[l : l+n : l+n]
	clear(added)
	return buf, added
}

func need(b []byte, n int) error {
	if len(b) < n {
		return ErrTooShort
	}
	return nil
}
