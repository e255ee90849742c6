package cache

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/bathbot/entitycache/entity"
)

// Kind is the handle of a single entity kind. V is the archived view type
// returned by Fetch. All operations of an ignored kind are no-ops, and Fetch
// reports absence.
type Kind[V any] struct {
	c         *Cache
	kind      entity.Kind
	cacheable entity.Cacheable
	parse     func([]byte) (V, error)
	ignored   bool
}

func newKind[V any](c *Cache, kind entity.Kind, parse func([]byte) (V, error)) *Kind[V] {
	return &Kind[V]{
		c:         c,
		kind:      kind,
		cacheable: kind.Cacheable(),
		parse:     parse,
		ignored:   c.ignores(kind),
	}
}

// Ignored reports whether the kind is configured to be ignored
func (k *Kind[V]) Ignored() bool {
	return k.ignored
}

func (k *Kind[V]) Kind() entity.Kind {
	return k.kind
}

// Store encodes the snapshot with the buffer strategy of the kind and writes
// it with the expiration of the kind.
func (k *Kind[V]) Store(ctx context.Context, key string, r entity.Record) error {
	if k.ignored {
		return nil
	}
	err := k.cacheable.With(r, func(archive []byte) error {
		return k.c.track(k.c.st.Set(ctx, key, archive, k.cacheable.Expire))
	})
	if err != nil {
		return errors.Wrapf(err, "store %s", key)
	}
	return nil
}

// Fetch returns a validated view of the archive stored at key. A missing
// key is reported as (zero, false, nil).
func (k *Kind[V]) Fetch(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if k.ignored {
		return zero, false, nil
	}
	b, err := k.c.st.Get(ctx, key)
	if err := k.c.track(err); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, false, nil
		}
		return zero, false, errors.Wrapf(err, "get %s", key)
	}
	v, err := k.parse(b)
	if err != nil {
		return zero, false, errors.Wrapf(err, "parse %s", key)
	}
	return v, true, nil
}

// Patch applies fn to the archive stored at key inside a single atomic store
// update. Patching a missing key, an ignored kind or a nil hook does nothing
// and returns PathNone.
func (k *Kind[V]) Patch(ctx context.Context, key string, fn entity.PatchFunc) (entity.Path, error) {
	if k.ignored || fn == nil {
		return entity.PathNone, nil
	}
	var (
		path  entity.Path
		fnErr error
	)
	err := k.c.st.Update(ctx, key, func(val []byte) ([]byte, error) {
		var out []byte
		out, path, fnErr = fn(val)
		return out, fnErr
	})
	if fnErr != nil {
		// The archive was not touched, and the store itself is fine
		return entity.PathNone, errors.Wrapf(fnErr, "patch %s", key)
	}
	if err := k.c.track(err); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return entity.PathNone, nil
		}
		return entity.PathNone, errors.Wrapf(err, "patch %s", key)
	}
	k.c.countPatch(k.kind, path)
	return path, nil
}

// Remove deletes the key. Removing a missing key is not an error.
func (k *Kind[V]) Remove(ctx context.Context, key string) error {
	if k.ignored {
		return nil
	}
	if err := k.c.track(k.c.st.Delete(ctx, key)); err != nil {
		return errors.Wrapf(err, "remove %s", key)
	}
	return nil
}

// Count returns the number of stored entries of the kind
func (k *Kind[V]) Count(ctx context.Context) (int, error) {
	if k.ignored {
		return 0, nil
	}
	n, err := k.c.st.Count(ctx, k.kind.String())
	if err := k.c.track(err); err != nil {
		return 0, errors.Wrapf(err, "count %s", k.kind)
	}
	return n, nil
}
