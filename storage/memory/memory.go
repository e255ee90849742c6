// Package memory implements an in-process storage backend. Expired entries
// are evicted lazily when they are accessed.
package memory

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/bathbot/entitycache/config"
	"github.com/bathbot/entitycache/storage"
)

type entry struct {
	val     []byte
	expires time.Time // zero: never
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

type Backend struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, exists := b.lookup(key)
	if !exists {
		return nil, os.ErrNotExist
	}
	return clone(e.val), nil
}

// lookup must be called with the lock held
func (b *Backend) lookup(key string) (entry, bool) {
	e, exists := b.entries[key]
	if !exists {
		return e, false
	}
	if e.expired(b.now()) {
		delete(b.entries, key)
		return e, false
	}
	return e, true
}

func (b *Backend) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := entry{val: clone(val)}
	if ttl > 0 {
		e.expires = b.now().Add(ttl)
	}

	b.mu.Lock()
	b.entries[key] = e
	b.mu.Unlock()
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	delete(b.entries, key)
	b.mu.Unlock()
	return nil
}

// Update hands the stored value to fn under the lock, so fn may patch it in
// place.
func (b *Backend) Update(ctx context.Context, key string, fn storage.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, exists := b.lookup(key)
	if !exists {
		return os.ErrNotExist
	}
	out, err := fn(e.val)
	if err != nil {
		return err
	}
	if !sameBuffer(out, e.val) {
		out = clone(out)
	}
	e.val = out
	b.entries[key] = e
	return nil
}

func (b *Backend) Count(ctx context.Context, namespace string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	prefix := namespace + ":"
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for key, e := range b.entries {
		if strings.HasPrefix(key, prefix) && !e.expired(now) {
			n++
		}
	}
	return n, nil
}

type kv struct {
	key string
	val []byte
}

func (b *Backend) Range(ctx context.Context, namespace, prefix string, fn storage.RangeFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := namespace + ":" + prefix
	now := b.now()

	// Copy under the lock, so fn can call back into the backend
	var items []kv
	b.mu.Lock()
	for key, e := range b.entries {
		if strings.HasPrefix(key, full) && !e.expired(now) {
			items = append(items, kv{key: key, val: clone(e.val)})
		}
	}
	b.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].key < items[j].key
	})
	for _, item := range items {
		if err := fn(item.key, item.val); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) Namespaces(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := b.now()
	b.mu.Lock()
	live := lo.PickBy(b.entries, func(_ string, e entry) bool {
		return !e.expired(now)
	})
	b.mu.Unlock()

	namespaces := lo.Uniq(lo.Map(lo.Keys(live), func(key string, _ int) string {
		return storage.Namespace(key)
	}))
	sort.Strings(namespaces)
	return namespaces, nil
}

func (b *Backend) Close() error {
	return nil
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

func sameBuffer(a, b []byte) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}

func New() *Backend {
	return &Backend{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func init() {
	storage.RegisterBackend("memory", func(st config.Storage, l logrus.FieldLogger) (storage.Interface, error) {
		return New(), nil
	})
}
