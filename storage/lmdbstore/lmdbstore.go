// Package lmdbstore implements the LMDB storage backend.
//
// Every key namespace lives in its own named database. Values are stored
// with a header (see lmdbenv/header) carrying their expiration time.
// Expired entries are invisible to readers and removed by the sweeper.
package lmdbstore

import (
	"bytes"
	"context"
	"os"
	"sync"
	"time"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/PowerDNS/lmdb-go/lmdbscan"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/bathbot/entitycache/config"
	"github.com/bathbot/entitycache/lmdbenv"
	"github.com/bathbot/entitycache/lmdbenv/header"
	"github.com/bathbot/entitycache/lmdbenv/stats"
	"github.com/bathbot/entitycache/storage"
	"github.com/bathbot/entitycache/utils"
)

var collector = stats.NewCollector()

func init() {
	prometheus.MustRegister(collector)

	storage.RegisterBackend("lmdb", func(st config.Storage, l logrus.FieldLogger) (storage.Interface, error) {
		return Open(st.LMDB, l)
	})
}

type Backend struct {
	name string
	env  *lmdb.Env
	l    logrus.FieldLogger
	now  func() time.Time

	mu   sync.Mutex
	dbis map[string]lmdb.DBI
}

// Open opens the LMDB environment configured in lc
func Open(lc config.LMDB, l logrus.FieldLogger) (*Backend, error) {
	env, err := lmdbenv.Open(lc.Path, lc.Options)
	if err != nil {
		return nil, err
	}
	b := New(lc.Path, env, l)
	collector.AddTarget(lc.Path, env)
	return b, nil
}

// New wraps an open env. Close closes the env.
func New(name string, env *lmdb.Env, l logrus.FieldLogger) *Backend {
	return &Backend{
		name: name,
		env:  env,
		l:    l.WithField("component", "lmdbstore"),
		now:  time.Now,
		dbis: make(map[string]lmdb.DBI),
	}
}

// Env returns the underlying env
func (b *Backend) Env() *lmdb.Env {
	return b.env
}

// dbi returns the database of a namespace. If create is false and the
// database does not exist, ok is false.
func (b *Backend) dbi(namespace string, create bool) (dbi lmdb.DBI, ok bool, err error) {
	if namespace == "" {
		return 0, false, errors.New("empty key namespace")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if dbi, exists := b.dbis[namespace]; exists {
		return dbi, true, nil
	}
	var flags uint
	if create {
		flags = lmdb.Create
	}
	// Handles opened in a committed write transaction are valid for the
	// lifetime of the env.
	err = b.env.Update(func(txn *lmdb.Txn) error {
		var err error
		dbi, err = txn.OpenDBI(namespace, flags)
		return err
	})
	if lmdb.IsNotFound(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "open dbi %s", namespace)
	}
	b.dbis[namespace] = dbi
	return dbi, true, nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dbi, ok, err := b.dbi(storage.Namespace(key), false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, os.ErrNotExist
	}
	now := b.now()
	var out []byte
	err = b.env.View(func(txn *lmdb.Txn) error {
		txn.RawRead = true
		val, err := txn.Get(dbi, []byte(key))
		if lmdb.IsNotFound(err) {
			return os.ErrNotExist
		}
		if err != nil {
			return err
		}
		h, archive, err := header.Parse(val)
		if err != nil {
			return errors.Wrapf(err, "key %s", utils.DisplayASCII([]byte(key)))
		}
		if h.Expired(now) {
			return os.ErrNotExist
		}
		out = append([]byte(nil), archive...)
		return nil
	})
	return out, err
}

func (b *Backend) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dbi, _, err := b.dbi(storage.Namespace(key), true)
	if err != nil {
		return err
	}
	h := header.New(b.now(), ttl)
	return b.env.Update(func(txn *lmdb.Txn) error {
		return put(txn, dbi, key, h, val)
	})
}

func put(txn *lmdb.Txn, dbi lmdb.DBI, key string, h header.Header, val []byte) error {
	buf, err := txn.PutReserve(dbi, []byte(key), header.Size+len(val), 0)
	if err != nil {
		return errors.Wrap(err, "put")
	}
	h.Put(buf)
	copy(buf[header.Size:], val)
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dbi, ok, err := b.dbi(storage.Namespace(key), false)
	if err != nil || !ok {
		return err
	}
	return b.env.Update(func(txn *lmdb.Txn) error {
		err := txn.Del(dbi, []byte(key), nil)
		if lmdb.IsNotFound(err) {
			return nil
		}
		return err
	})
}

// Update runs fn inside a write transaction. fn receives a private copy of
// the stored archive, since values returned by LMDB point into the
// read-only memory map.
func (b *Backend) Update(ctx context.Context, key string, fn storage.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dbi, ok, err := b.dbi(storage.Namespace(key), false)
	if err != nil {
		return err
	}
	if !ok {
		return os.ErrNotExist
	}
	now := b.now()
	return b.env.Update(func(txn *lmdb.Txn) error {
		txn.RawRead = true
		val, err := txn.Get(dbi, []byte(key))
		if lmdb.IsNotFound(err) {
			return os.ErrNotExist
		}
		if err != nil {
			return err
		}
		h, archive, err := header.Parse(val)
		if err != nil {
			return errors.Wrapf(err, "key %s", utils.DisplayASCII([]byte(key)))
		}
		if h.Expired(now) {
			return os.ErrNotExist
		}
		out, err := fn(append([]byte(nil), archive...))
		if err != nil {
			return err
		}
		h.StoredAt = now
		return put(txn, dbi, key, h, out)
	})
}

// Count returns the number of unexpired entries in the namespace database.
func (b *Backend) Count(ctx context.Context, namespace string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dbi, ok, err := b.dbi(namespace, false)
	if err != nil || !ok {
		return 0, err
	}
	now := b.now()
	var n int
	err = b.env.View(func(txn *lmdb.Txn) error {
		n, err = countLive(txn, dbi, now, 0)
		return err
	})
	return n, err
}

// countLive counts the unexpired entries of dbi. A positive limit stops the
// scan once that many were seen.
func countLive(txn *lmdb.Txn, dbi lmdb.DBI, now time.Time, limit int) (int, error) {
	txn.RawRead = true
	sc := lmdbscan.New(txn, dbi)
	defer sc.Close()

	n := 0
	for sc.Scan() {
		h, _, err := header.Parse(sc.Val())
		if err != nil {
			return 0, errors.Wrapf(err, "key %s", utils.DisplayASCII(sc.Key()))
		}
		if h.Expired(now) {
			continue
		}
		n++
		if limit > 0 && n >= limit {
			return n, nil
		}
	}
	if err := sc.Err(); err != nil {
		return 0, errors.Wrap(err, "scan")
	}
	return n, nil
}

func (b *Backend) Range(ctx context.Context, namespace, prefix string, fn storage.RangeFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dbi, ok, err := b.dbi(namespace, false)
	if err != nil || !ok {
		return err
	}
	full := []byte(namespace + ":" + prefix)
	now := b.now()
	return b.env.View(func(txn *lmdb.Txn) error {
		txn.RawRead = true
		c, err := txn.OpenCursor(dbi)
		if err != nil {
			return errors.Wrap(err, "open cursor")
		}
		defer c.Close()

		key, val, err := c.Get(full, nil, lmdb.SetRange)
		for ; err == nil; key, val, err = c.Get(nil, nil, lmdb.Next) {
			if !bytes.HasPrefix(key, full) {
				return nil
			}
			h, archive, err := header.Parse(val)
			if err != nil {
				return errors.Wrapf(err, "key %s", utils.DisplayASCII(key))
			}
			if h.Expired(now) {
				continue
			}
			if err := fn(string(key), archive); err != nil {
				return err
			}
		}
		if lmdb.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "cursor")
	})
}

// Namespaces returns the namespaces with at least one unexpired entry
func (b *Backend) Namespaces(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dbs, err := stats.ReadDBStats(b.env)
	if err != nil {
		return nil, err
	}
	now := b.now()
	var namespaces []string
	for _, db := range dbs {
		if db.Stat.Entries == 0 {
			continue
		}
		dbi, ok, err := b.dbi(db.Name, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var n int
		err = b.env.View(func(txn *lmdb.Txn) error {
			n, err = countLive(txn, dbi, now, 1)
			return err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "namespace %s", db.Name)
		}
		if n > 0 {
			namespaces = append(namespaces, db.Name)
		}
	}
	return namespaces, nil
}

func (b *Backend) Close() error {
	collector.RemoveTarget(b.name)
	return b.env.Close()
}
