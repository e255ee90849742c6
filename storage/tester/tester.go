// Package tester implements the conformance tests shared by all storage
// backends.
package tester

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/bathbot/entitycache/storage"
)

// DoBackendTests tests a backend for conformance. The backend must be empty.
func DoBackendTests(t *testing.T, b storage.Interface) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Starts empty
	ns, err := b.Namespaces(ctx)
	assert.NoError(t, err)
	assert.Len(t, ns, 0)
	n, err := b.Count(ctx, "user")
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	// Add items
	foo := []byte("foo") // will be modified later
	assert.NoError(t, b.Set(ctx, "user:1", foo, 0))
	assert.NoError(t, b.Set(ctx, "user:2", []byte("bar2"), 0))
	assert.NoError(t, b.Set(ctx, "member:10:1", []byte("m1"), 0))
	assert.NoError(t, b.Set(ctx, "member:10:2", []byte("m2"), 0))
	assert.NoError(t, b.Set(ctx, "member:11:1", []byte("m3"), 0))

	// Overwrite
	assert.NoError(t, b.Set(ctx, "user:2", []byte("bar"), 0))

	// Get
	data, err := b.Get(ctx, "user:1")
	assert.NoError(t, err)
	assert.Equal(t, []byte("foo"), data)
	data, err = b.Get(ctx, "user:2")
	assert.NoError(t, err)
	assert.Equal(t, []byte("bar"), data)

	// Verify that Get makes a copy
	data[0] = '!'
	data, err = b.Get(ctx, "user:2")
	assert.NoError(t, err)
	assert.Equal(t, []byte("bar"), data)

	// Change foo buffer to verify that Set made a copy
	foo[0] = '!'
	data, err = b.Get(ctx, "user:1")
	assert.NoError(t, err)
	assert.Equal(t, []byte("foo"), data)

	// Get non-existing
	_, err = b.Get(ctx, "user:3")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = b.Get(ctx, "channel:1")
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Count and namespaces
	n, err = b.Count(ctx, "member")
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
	ns, err = b.Namespaces(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"member", "user"}, ns)

	// Range with prefix, in key order
	var keys []string
	var vals []string
	err = b.Range(ctx, "member", "10:", func(key string, val []byte) error {
		keys = append(keys, key)
		vals = append(vals, string(val))
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"member:10:1", "member:10:2"}, keys)
	assert.Equal(t, []string{"m1", "m2"}, vals)

	// Range stops on error
	stop := errors.New("stop")
	calls := 0
	err = b.Range(ctx, "member", "", func(key string, val []byte) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)

	// Range on an unknown namespace
	err = b.Range(ctx, "role", "", func(key string, val []byte) error {
		t.Errorf("unexpected key %s", key)
		return nil
	})
	assert.NoError(t, err)

	// Update in place
	err = b.Update(ctx, "user:1", func(val []byte) ([]byte, error) {
		val[0] = 'g'
		return val, nil
	})
	assert.NoError(t, err)
	data, err = b.Get(ctx, "user:1")
	assert.NoError(t, err)
	assert.Equal(t, []byte("goo"), data)

	// Update with a new buffer of a different size
	err = b.Update(ctx, "user:1", func(val []byte) ([]byte, error) {
		return append(append([]byte(nil), val...), "gle"...), nil
	})
	assert.NoError(t, err)
	data, err = b.Get(ctx, "user:1")
	assert.NoError(t, err)
	assert.Equal(t, []byte("google"), data)

	// Failed update stores nothing
	fail := errors.New("fail")
	err = b.Update(ctx, "user:1", func(val []byte) ([]byte, error) {
		return []byte("nope"), fail
	})
	assert.ErrorIs(t, err, fail)
	data, err = b.Get(ctx, "user:1")
	assert.NoError(t, err)
	assert.Equal(t, []byte("google"), data)

	// Update of an absent key
	err = b.Update(ctx, "user:3", func(val []byte) ([]byte, error) {
		t.Error("update called for absent key")
		return val, nil
	})
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Delete, also when absent
	assert.NoError(t, b.Delete(ctx, "user:1"))
	assert.NoError(t, b.Delete(ctx, "user:1"))
	assert.NoError(t, b.Delete(ctx, "channel:5"))
	_, err = b.Get(ctx, "user:1")
	assert.ErrorIs(t, err, os.ErrNotExist)
	n, err = b.Count(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	doConcurrentUpdateTests(t, b)
}

// counterValue is two equal counters followed by a tail of n bytes that all
// hold n. A torn write shows up as unequal counters or a mixed tail.
func counterValue(count uint64, n int) []byte {
	val := make([]byte, 16+n)
	binary.BigEndian.PutUint64(val[0:], count)
	binary.BigEndian.PutUint64(val[8:], count)
	for i := 16; i < len(val); i++ {
		val[i] = byte(n)
	}
	return val
}

func parseCounterValue(val []byte) (uint64, error) {
	if len(val) < 16 {
		return 0, fmt.Errorf("short value: %d bytes", len(val))
	}
	a := binary.BigEndian.Uint64(val[0:])
	if b := binary.BigEndian.Uint64(val[8:]); a != b {
		return 0, fmt.Errorf("counters differ: %d != %d", a, b)
	}
	tail := val[16:]
	for _, c := range tail {
		if int(c) != len(tail) {
			return 0, fmt.Errorf("mixed tail: %v", tail)
		}
	}
	return a, nil
}

// doConcurrentUpdateTests mixes in-place and rewriting updates of one key
// while readers keep reading it.
func doConcurrentUpdateTests(t *testing.T, b storage.Interface) {
	const (
		key     = "counter:1"
		writers = 64
		readers = 4
	)
	ctx := context.Background()
	require.NoError(t, b.Set(ctx, key, counterValue(0, 1), 0))

	var inPlace, rewrite atomic.Int64
	done := make(chan struct{})

	var rg errgroup.Group
	for i := 0; i < readers; i++ {
		rg.Go(func() error {
			for {
				val, err := b.Get(ctx, key)
				if err != nil {
					return err
				}
				if _, err := parseCounterValue(val); err != nil {
					return err
				}
				select {
				case <-done:
					return nil
				default:
				}
			}
		})
	}

	var wg errgroup.Group
	for i := 0; i < writers; i++ {
		i := i
		wg.Go(func() error {
			return b.Update(ctx, key, func(val []byte) ([]byte, error) {
				count, err := parseCounterValue(val)
				if err != nil {
					return nil, err
				}
				if i%2 == 0 {
					binary.BigEndian.PutUint64(val[0:], count+1)
					binary.BigEndian.PutUint64(val[8:], count+1)
					inPlace.Inc()
					return val, nil
				}
				rewrite.Inc()
				return counterValue(count+1, 1+len(val)%7), nil
			})
		})
	}
	assert.NoError(t, wg.Wait())
	close(done)
	assert.NoError(t, rg.Wait())

	val, err := b.Get(ctx, key)
	require.NoError(t, err)
	count, err := parseCounterValue(val)
	require.NoError(t, err)
	assert.Equal(t, uint64(writers), count)
	assert.Equal(t, int64(writers), inPlace.Load()+rewrite.Load())
	assert.Equal(t, int64(writers/2), inPlace.Load())

	assert.NoError(t, b.Delete(ctx, key))
}
