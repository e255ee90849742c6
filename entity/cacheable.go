package entity

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrBufferOverflow is returned when an archive does not fit the inline
// buffer of its kind.
var ErrBufferOverflow = errors.New("archive exceeds inline buffer size")

// BufferStrategy decides which buffer an archive is encoded into.
type BufferStrategy struct {
	size int
	pool *sync.Pool // nil for growable buffers
}

// Inline returns a strategy using fixed buffers of n bytes, for kinds whose
// variable-length fields have a small known maximum length. Buffers are
// reused between writes.
func Inline(n int) BufferStrategy {
	return BufferStrategy{
		size: n,
		pool: &sync.Pool{
			New: func() any {
				b := make([]byte, 0, n)
				return &b
			},
		},
	}
}

// Growable returns a strategy using heap buffers starting at hint bytes, for
// kinds without a practical upper bound.
func Growable(hint int) BufferStrategy {
	return BufferStrategy{size: hint}
}

func (s BufferStrategy) IsInline() bool {
	return s.pool != nil
}

// Size is the inline buffer size or the growable size hint
func (s BufferStrategy) Size() int {
	return s.size
}

// Cacheable holds the per-kind storage decisions.
type Cacheable struct {
	Buffer BufferStrategy
	// Expire is the time-to-live of stored archives, 0 means no expiration
	Expire time.Duration
}

var (
	// 192 bytes fit names of 32 characters, the upper limit for user names,
	// even when every character takes 4 bytes.
	CurrentUserCacheable = Cacheable{Buffer: Inline(192)}
	UserCacheable        = Cacheable{Buffer: Inline(192)}
	// 512 bytes fit names of 100 characters, the upper limit for guild names.
	GuildCacheable = Cacheable{Buffer: Inline(512)}
	// Permission overwrite and role lists have no practical limit.
	ChannelCacheable = Cacheable{Buffer: Growable(128)}
	MemberCacheable  = Cacheable{Buffer: Growable(128)}
	// Role names have no apparent character limit.
	RoleCacheable = Cacheable{Buffer: Growable(64)}
)

// check returns the encoded size of r, or an error if r cannot be stored.
func (c Cacheable) check(r Record) (int, error) {
	if ck, ok := r.(checker); ok {
		if err := ck.Check(); err != nil {
			return 0, err
		}
	}
	size := r.EncodedSize()
	if c.Buffer.IsInline() && size > c.Buffer.size {
		return 0, errors.Wrapf(ErrBufferOverflow, "%d > %d", size, c.Buffer.size)
	}
	return size, nil
}

// Serialize encodes r into a new buffer owned by the caller.
func (c Cacheable) Serialize(r Record) ([]byte, error) {
	size, err := c.check(r)
	if err != nil {
		return nil, err
	}
	return r.Encode(make([]byte, 0, size)), nil
}

// With encodes r into a buffer chosen by the buffer strategy and passes it to
// fn. The buffer is only valid during the call. Nothing is encoded if r does
// not fit an inline buffer, or holds a value that would not parse again.
func (c Cacheable) With(r Record, fn func(archive []byte) error) error {
	size, err := c.check(r)
	if err != nil {
		return err
	}
	if !c.Buffer.IsInline() {
		capacity := c.Buffer.size
		if size > capacity {
			capacity = size
		}
		return fn(r.Encode(make([]byte, 0, capacity)))
	}
	bp := c.Buffer.pool.Get().(*[]byte)
	defer func() {
		*bp = (*bp)[:0]
		c.Buffer.pool.Put(bp)
	}()
	*bp = r.Encode((*bp)[:0])
	return fn(*bp)
}
