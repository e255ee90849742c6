package codec

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// SlotSize is the size of a slot: uint32 tail offset and uint32 length.
// For lists the length is the element count.
const SlotSize = 8

type slot struct {
	off, n uint32
}

func putSlot(b []byte, s slot) {
	binary.LittleEndian.PutUint32(b[0:4], s.off)
	binary.LittleEndian.PutUint32(b[4:8], s.n)
}

func getSlot(b []byte) (slot, error) {
	if err := need(b, SlotSize); err != nil {
		return slot{}, err
	}
	return slot{
		off: binary.LittleEndian.Uint32(b[0:4]),
		n:   binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

// span returns the data of a slot with the given element size, after
// checking it lies within b[dataStart:].
func span(b []byte, at, elemSize, dataStart int) ([]byte, slot, error) {
	if at < 0 || at > len(b) {
		return nil, slot{}, ErrTooShort
	}
	s, err := getSlot(b[at:])
	if err != nil {
		return nil, s, err
	}
	start := uint64(s.off)
	end := start + uint64(s.n)*uint64(elemSize)
	if start < uint64(dataStart) || end > uint64(len(b)) {
		return nil, s, errors.Wrapf(ErrOutOfBounds, "[%d:%d] of %d", start, end, len(b))
	}
	return b[start:end:end], s, nil
}

// String stores a string in the tail.
type String struct{}

func (String) SlotSize() int { return SlotSize }

func (String) DataSize(v string) int { return len(v) }

func (String) Put(b []byte, at, tail int, v string) int {
	putSlot(b[at:], slot{off: uint32(tail), n: uint32(len(v))})
	return copy(b[tail:tail+len(v)], v)
}

func (String) Get(b []byte, at int) (string, error) {
	data, _, err := span(b, at, 1, 0)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (String) Validate(b []byte, at, dataStart int) error {
	data, _, err := span(b, at, 1, dataStart)
	if err != nil {
		return err
	}
	if !utf8.Valid(data) {
		return ErrInvalidUTF8
	}
	return nil
}

// View returns the string bytes without copying them. The result aliases the
// archive and must not be modified.
func (String) View(b []byte, at int) []byte {
	data, _, _ := span(b, at, 1, 0)
	return data
}

// OptionalString stores an optional string: a presence byte followed by
// a string slot.
type OptionalString struct{}

func (OptionalString) SlotSize() int { return 1 + SlotSize }

func (OptionalString) DataSize(v *string) int {
	if v == nil {
		return 0
	}
	return len(*v)
}

func (OptionalString) Put(b []byte, at, tail int, v *string) int {
	if v == nil {
		b[at] = tagNone
		clear(b[at+1 : at+1+SlotSize])
		return 0
	}
	b[at] = tagPresent
	return String{}.Put(b, at+1, tail, *v)
}

func (OptionalString) Get(b []byte, at int) (*string, error) {
	present, err := presence(b, at)
	if err != nil || !present {
		return nil, err
	}
	s, err := String{}.Get(b, at+1)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (OptionalString) Validate(b []byte, at, dataStart int) error {
	present, err := presence(b, at)
	if err != nil || !present {
		return err
	}
	return String{}.Validate(b, at+1, dataStart)
}

// View returns the string bytes without copying, ok is false if absent.
func (OptionalString) View(b []byte, at int) (data []byte, ok bool) {
	if present, _ := presence(b, at); !present {
		return nil, false
	}
	return String{}.View(b, at+1), true
}

func presence(b []byte, at int) (bool, error) {
	if at < 0 || at >= len(b) {
		return false, ErrTooShort
	}
	switch b[at] {
	case tagNone:
		return false, nil
	case tagPresent:
		return true, nil
	}
	return false, ErrInvalidOption
}

// List stores a sequence of fixed-size elements packed back to back in the
// tail. A list is always variable-length.
type List[T any] struct {
	Elem Fixed[T]
}

// ListOf returns a List codec for elem
func ListOf[T any](elem Fixed[T]) List[T] {
	return List[T]{Elem: elem}
}

func (List[T]) SlotSize() int { return SlotSize }

func (c List[T]) DataSize(v []T) int { return len(v) * c.Elem.Size() }

func (c List[T]) Put(b []byte, at, tail int, v []T) int {
	size := c.Elem.Size()
	putSlot(b[at:], slot{off: uint32(tail), n: uint32(len(v))})
	for i, e := range v {
		c.Elem.Put(b[tail+i*size:], e)
	}
	return len(v) * size
}

// Get decodes all elements. An empty list decodes to nil.
func (c List[T]) Get(b []byte, at int) ([]T, error) {
	data, s, err := span(b, at, c.Elem.Size(), 0)
	if err != nil {
		return nil, err
	}
	if s.n == 0 {
		return nil, nil
	}
	return c.decode(data, int(s.n))
}

func (c List[T]) decode(data []byte, n int) ([]T, error) {
	size := c.Elem.Size()
	out := make([]T, n)
	for i := range out {
		v, err := c.Elem.Get(data[i*size:])
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		out[i] = v
	}
	return out, nil
}

func (c List[T]) Validate(b []byte, at, dataStart int) error {
	size := c.Elem.Size()
	data, s, err := span(b, at, size, dataStart)
	if err != nil {
		return err
	}
	for i := 0; i < int(s.n); i++ {
		if _, err := c.Elem.Get(data[i*size:]); err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
	}
	return nil
}

// View returns a zero-copy view of the list
func (c List[T]) View(b []byte, at int) ListView[T] {
	data, s, _ := span(b, at, c.Elem.Size(), 0)
	return ListView[T]{data: data, n: int(s.n), elem: c.Elem}
}

// OptionalList stores a list that may be absent. A nil slice is absent,
// a non-nil empty slice is present and empty.
type OptionalList[T any] struct {
	List List[T]
}

// OptionalListOf returns an OptionalList codec for elem
func OptionalListOf[T any](elem Fixed[T]) OptionalList[T] {
	return OptionalList[T]{List: ListOf(elem)}
}

func (OptionalList[T]) SlotSize() int { return 1 + SlotSize }

func (c OptionalList[T]) DataSize(v []T) int { return c.List.DataSize(v) }

func (c OptionalList[T]) Put(b []byte, at, tail int, v []T) int {
	if v == nil {
		b[at] = tagNone
		clear(b[at+1 : at+1+SlotSize])
		return 0
	}
	b[at] = tagPresent
	return c.List.Put(b, at+1, tail, v)
}

func (c OptionalList[T]) Get(b []byte, at int) ([]T, error) {
	present, err := presence(b, at)
	if err != nil || !present {
		return nil, err
	}
	data, s, err := span(b, at+1, c.List.Elem.Size(), 0)
	if err != nil {
		return nil, err
	}
	if s.n == 0 {
		return []T{}, nil
	}
	return c.List.decode(data, int(s.n))
}

func (c OptionalList[T]) Validate(b []byte, at, dataStart int) error {
	present, err := presence(b, at)
	if err != nil || !present {
		return err
	}
	return c.List.Validate(b, at+1, dataStart)
}

// View returns a zero-copy view of the list, ok is false if absent.
func (c OptionalList[T]) View(b []byte, at int) (v ListView[T], ok bool) {
	if present, _ := presence(b, at); !present {
		return v, false
	}
	return c.List.View(b, at+1), true
}

// ListView gives access to the elements of an archived list without decoding
// the whole list. It must only be created from a validated archive.
type ListView[T any] struct {
	data []byte
	n    int
	elem Fixed[T]
}

func (v ListView[T]) Len() int { return v.n }

// At decodes element i
func (v ListView[T]) At(i int) T {
	size := v.elem.Size()
	e, _ := v.elem.Get(v.data[i*size : (i+1)*size])
	return e
}

// Raw returns the packed bytes of element i
func (v ListView[T]) Raw(i int) []byte {
	size := v.elem.Size()
	return v.data[i*size : (i+1)*size : (i+1)*size]
}

// ListEqual reports whether an archived list holds exactly the elements of s,
// in order.
func ListEqual[T comparable](v ListView[T], s []T) bool {
	if v.Len() != len(s) {
		return false
	}
	for i, e := range s {
		if v.At(i) != e {
			return false
		}
	}
	return true
}
