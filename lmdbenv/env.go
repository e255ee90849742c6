// Package lmdbenv opens the LMDB environment of the cache and has helpers to
// inspect its named databases.
package lmdbenv

import (
	"os"
	"path/filepath"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
)

const (
	DefaultDirMask  = 0775
	DefaultFileMask = 0664
	DefaultMapSize  = 1 * datasize.GB
	// DefaultMaxDBs bounds the number of namespaces
	DefaultMaxDBs = 16
)

// Options configure Open. This type is also used for the yaml config file.
type Options struct {
	DirMask  os.FileMode       `yaml:"dir_mask"`
	FileMask os.FileMode       `yaml:"file_mask"`
	MapSize  datasize.ByteSize `yaml:"map_size"`
	MaxDBs   int               `yaml:"max_dbs"`
	NoSubdir bool              `yaml:"no_subdir"`
	Create   bool              `yaml:"create"`
	// NoSync trades durability of the last transactions for write speed,
	// which suits a cache that can be refilled.
	NoSync   bool `yaml:"no_sync"`
	EnvFlags uint `yaml:"-"` // Too dangerous for direct yaml support
}

// WithDefaults returns new Options with defaults set for values that were not set
func (o Options) WithDefaults() Options {
	if o.DirMask == 0 {
		o.DirMask = DefaultDirMask
	}
	if o.FileMask == 0 {
		o.FileMask = DefaultFileMask
	}
	if o.MaxDBs == 0 {
		o.MaxDBs = DefaultMaxDBs
	}
	return o
}

func (o Options) flags() uint {
	flags := o.EnvFlags
	if o.NoSubdir {
		flags |= lmdb.NoSubdir
	}
	if o.NoSync {
		flags |= lmdb.NoSync
	}
	return flags
}

// Open opens the LMDB at path. The returned env must be closed after use.
// With Create set, missing directories are created first. The default map
// size is only applied when creating, otherwise LMDB takes the size of the
// existing file.
func Open(path string, opt Options) (*lmdb.Env, error) {
	opt = opt.WithDefaults()
	flags := opt.flags()
	create := opt.Create

	if create {
		dir := path
		if flags&lmdb.NoSubdir > 0 {
			dir = filepath.Dir(path)
		}
		if err := os.MkdirAll(dir, opt.DirMask); err != nil {
			return nil, errors.Wrap(err, "lmdb env: mkdir")
		}
	}

	env, err := lmdb.NewEnv()
	if err != nil {
		return nil, errors.Wrap(err, "lmdb env: new")
	}
	mapSize := opt.MapSize
	if mapSize == 0 && create {
		mapSize = DefaultMapSize
	}
	if err := env.SetMapSize(int64(mapSize)); err != nil {
		_ = env.Close()
		return nil, errors.Wrap(err, "lmdb env: set map size")
	}
	if err := env.SetMaxDBs(opt.MaxDBs); err != nil {
		_ = env.Close()
		return nil, errors.Wrap(err, "lmdb env: set max dbs")
	}
	if err := env.Open(path, flags, opt.FileMask); err != nil {
		_ = env.Close()
		return nil, errors.Wrap(err, "lmdb env: open")
	}
	return env, nil
}
