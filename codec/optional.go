package codec

const (
	tagNone    = 0
	tagPresent = 1
)

// Optional adds presence to a fixed codec. The payload bytes are always
// reserved, and zeroed when the value is absent, so the field keeps the same
// width whether or not a value is present.
type Optional[T any] struct {
	Inner Fixed[T]
}

// OptionalOf wraps inner
func OptionalOf[T any](inner Fixed[T]) Optional[T] {
	return Optional[T]{Inner: inner}
}

func (c Optional[T]) Size() int {
	return 1 + c.Inner.Size()
}

func (c Optional[T]) Put(b []byte, v *T) {
	size := c.Size()
	if v == nil {
		b[0] = tagNone
		clear(b[1:size])
		return
	}
	b[0] = tagPresent
	c.Inner.Put(b[1:size], *v)
}

func (c Optional[T]) Get(b []byte) (*T, error) {
	if err := need(b, c.Size()); err != nil {
		return nil, err
	}
	switch b[0] {
	case tagNone:
		return nil, nil
	case tagPresent:
		v, err := c.Inner.Get(b[1:])
		if err != nil {
			return nil, err
		}
		return &v, nil
	}
	return nil, ErrInvalidOption
}

// Value decodes without allocating: ok is false when the value is absent.
func (c Optional[T]) Value(b []byte) (v T, ok bool, err error) {
	if err := need(b, c.Size()); err != nil {
		return v, false, err
	}
	switch b[0] {
	case tagNone:
		return v, false, nil
	case tagPresent:
		v, err = c.Inner.Get(b[1:])
		return v, err == nil, err
	}
	return v, false, ErrInvalidOption
}
