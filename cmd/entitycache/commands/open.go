package commands

import (
	"context"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/PowerDNS/simpleblob"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bathbot/entitycache/cache"
	"github.com/bathbot/entitycache/storage"
)

// envProvider is implemented by the LMDB backend
type envProvider interface {
	Env() *lmdb.Env
}

// openCache opens the configured store and wraps it in a cache
func openCache() (*cache.Cache, error) {
	l := logrus.StandardLogger()
	st, err := storage.GetBackend(conf.Storage, l)
	if err != nil {
		return nil, errors.Wrap(err, "open storage")
	}
	logrus.WithField("storage_type", conf.Storage.Type).Info("Storage backend initialised")
	return cache.New(st, conf.Cache, l), nil
}

// lmdbEnv returns the LMDB env of the store, if it has one
func lmdbEnv(st storage.Interface) (*lmdb.Env, bool) {
	p, ok := st.(envProvider)
	if !ok {
		return nil, false
	}
	return p.Env(), true
}

// openBlobs opens the configured export storage
func openBlobs(ctx context.Context) (simpleblob.Interface, error) {
	if conf.Export.Type == "" {
		return nil, errors.New("no export.type configured")
	}
	blobs, err := simpleblob.GetBackend(ctx, conf.Export.Type, conf.Export.Options)
	if err != nil {
		return nil, errors.Wrap(err, "open export storage")
	}
	return blobs, nil
}

func closeCache(c *cache.Cache) {
	if err := c.Close(); err != nil {
		logrus.WithError(err).Error("Store close failed")
	}
}
