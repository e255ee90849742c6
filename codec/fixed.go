package codec

import (
	"encoding/binary"

	"github.com/bathbot/entitycache/model"
)

// ID stores an opaque 64-bit identifier as its raw integer.
type ID[T ~uint64] struct{}

func (ID[T]) Size() int { return 8 }

func (ID[T]) Put(b []byte, v T) {
	binary.LittleEndian.PutUint64(b[:8], uint64(v))
}

func (ID[T]) Get(b []byte) (T, error) {
	if err := need(b, 8); err != nil {
		return 0, err
	}
	return T(binary.LittleEndian.Uint64(b[:8])), nil
}

// Bitflags stores a flag set as its bit pattern. Any bit pattern is accepted.
type Bitflags[T ~uint64] struct{}

func (Bitflags[T]) Size() int { return 8 }

func (Bitflags[T]) Put(b []byte, v T) {
	binary.LittleEndian.PutUint64(b[:8], uint64(v))
}

func (Bitflags[T]) Get(b []byte) (T, error) {
	if err := need(b, 8); err != nil {
		return 0, err
	}
	return T(binary.LittleEndian.Uint64(b[:8])), nil
}

// ByteTag stores a small closed enumeration as a single byte. Bytes that
// Known rejects fail to decode with an *InvalidTagError.
type ByteTag[T ~uint8] struct {
	Name  string
	Known func(T) bool
}

func (ByteTag[T]) Size() int { return 1 }

func (ByteTag[T]) Put(b []byte, v T) {
	b[0] = uint8(v)
}

func (c ByteTag[T]) Get(b []byte) (T, error) {
	if err := need(b, 1); err != nil {
		return 0, err
	}
	v := T(b[0])
	if err := c.Check(v); err != nil {
		return 0, err
	}
	return v, nil
}

// Check returns the error Get would return for v once written.
func (c ByteTag[T]) Check(v T) error {
	if c.Known != nil && !c.Known(v) {
		return &InvalidTagError{Type: c.Name, Value: uint8(v)}
	}
	return nil
}

type Uint16 struct{}

func (Uint16) Size() int { return 2 }

func (Uint16) Put(b []byte, v uint16) {
	binary.LittleEndian.PutUint16(b[:2], v)
}

func (Uint16) Get(b []byte) (uint16, error) {
	if err := need(b, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:2]), nil
}

type Int32 struct{}

func (Int32) Size() int { return 4 }

func (Int32) Put(b []byte, v int32) {
	binary.LittleEndian.PutUint32(b[:4], uint32(v))
}

func (Int32) Get(b []byte) (int32, error) {
	if err := need(b, 4); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b[:4])), nil
}

type Int64 struct{}

func (Int64) Size() int { return 8 }

func (Int64) Put(b []byte, v int64) {
	binary.LittleEndian.PutUint64(b[:8], uint64(v))
}

func (Int64) Get(b []byte) (int64, error) {
	if err := need(b, 8); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b[:8])), nil
}

// Bool is a single byte that must be 0 or 1.
type Bool struct{}

func (Bool) Size() int { return 1 }

func (Bool) Put(b []byte, v bool) {
	if v {
		b[0] = 1
	} else {
		b[0] = 0
	}
}

func (Bool) Get(b []byte) (bool, error) {
	if err := need(b, 1); err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, ErrInvalidBool
}

// ImageHash stores the animation flag followed by the raw hash bytes.
type ImageHash struct{}

const imageHashSize = 1 + model.ImageHashSize

func (ImageHash) Size() int { return imageHashSize }

func (ImageHash) Put(b []byte, v model.ImageHash) {
	Bool{}.Put(b, v.Animated)
	copy(b[1:imageHashSize], v.Bytes[:])
}

func (ImageHash) Get(b []byte) (model.ImageHash, error) {
	var h model.ImageHash
	if err := need(b, imageHashSize); err != nil {
		return h, err
	}
	animated, err := Bool{}.Get(b)
	if err != nil {
		return h, err
	}
	h.Animated = animated
	copy(h.Bytes[:], b[1:imageHashSize])
	return h, nil
}
