// Package status serves the HTTP status page and the Prometheus metrics.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/PowerDNS/simpleblob"
	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"

	"github.com/bathbot/entitycache/cache"
	"github.com/bathbot/entitycache/entity"
	"github.com/bathbot/entitycache/lmdbenv/stats"
)

type info struct {
	mu    sync.Mutex
	cache *cache.Cache
	dbs   []db
	blobs simpleblob.Interface
}

type db struct {
	name string
	env  *lmdb.Env
}

// DBInfo describes an LMDB environment and its namespace databases
type DBInfo struct {
	Name     string
	Info     *lmdb.EnvInfo
	MapSize  datasize.ByteSize
	DBIStats []DBIStat
	Used     datasize.ByteSize
	Err      error
}

type DBIStat struct {
	Name    string
	Entries uint64
	Depth   uint
	Used    datasize.ByteSize
}

// KindInfo describes the state of an entity kind
type KindInfo struct {
	Name    string
	Ignored bool
	Patches map[string]uint64
}

var gi info

const listTimeout = 5 * time.Second

func (i *info) getCache() *cache.Cache {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cache
}

// ExportInfo lists the exports in the blob storage
type ExportInfo struct {
	Enabled bool
	Blobs   simpleblob.BlobList
	Err     error
}

func (i *info) Exports() ExportInfo {
	i.mu.Lock()
	st := i.blobs
	i.mu.Unlock()
	if st == nil {
		return ExportInfo{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()
	list, err := st.List(ctx, "")
	if err != nil {
		return ExportInfo{Enabled: true, Err: errors.Wrap(err, "list exports")}
	}
	return ExportInfo{Enabled: true, Blobs: list}
}

func (i *info) Kinds() (res []KindInfo) {
	c := i.getCache()
	if c == nil {
		return nil
	}
	ignored := map[entity.Kind]bool{
		entity.KindChannel:     c.Channels.Ignored(),
		entity.KindCurrentUser: c.CurrentUsers.Ignored(),
		entity.KindGuild:       c.Guilds.Ignored(),
		entity.KindMember:      c.Members.Ignored(),
		entity.KindRole:        c.Roles.Ignored(),
		entity.KindUser:        c.Users.Ignored(),
	}
	for _, k := range entity.Kinds() {
		res = append(res, KindInfo{
			Name:    k.String(),
			Ignored: ignored[k],
			Patches: c.Patches(k),
		})
	}
	return res
}

func (i *info) CacheStats() *cache.Stats {
	c := i.getCache()
	if c == nil {
		return nil
	}
	return c.LastStats()
}

func (i *info) DBInfo() (res []DBInfo) {
	i.mu.Lock()
	dbs := append([]db(nil), i.dbs...)
	i.mu.Unlock()

	for _, d := range dbs {
		info := DBInfo{Name: d.name}
		info.Info, info.Err = d.env.Info()
		if info.Err == nil {
			info.MapSize = datasize.ByteSize(info.Info.MapSize)
			var dbStats []stats.DBStat
			dbStats, info.Err = stats.ReadDBStats(d.env)
			for _, s := range dbStats {
				used := datasize.ByteSize(stats.PageUsageBytes(s.Stat))
				info.DBIStats = append(info.DBIStats, DBIStat{
					Name:    s.Name,
					Entries: s.Stat.Entries,
					Depth:   s.Stat.Depth,
					Used:    used,
				})
				info.Used += used
			}
		}
		res = append(res, info)
	}
	return res
}

// SetCache registers the cache with the status page
func SetCache(c *cache.Cache) {
	gi.mu.Lock()
	defer gi.mu.Unlock()
	gi.cache = c
}

// AddLMDBEnv registers an LMDB Env with the status page
func AddLMDBEnv(name string, env *lmdb.Env) {
	gi.mu.Lock()
	defer gi.mu.Unlock()
	gi.dbs = append(gi.dbs, db{name: name, env: env})
}

func RemoveLMDBEnv(name string) {
	gi.mu.Lock()
	defer gi.mu.Unlock()
	var dbs []db
	for _, d := range gi.dbs {
		if d.name != name {
			dbs = append(dbs, d)
		}
	}
	gi.dbs = dbs
}

// SetBlobStorage registers the export storage with the status page
func SetBlobStorage(st simpleblob.Interface) {
	gi.mu.Lock()
	defer gi.mu.Unlock()
	gi.blobs = st
}
