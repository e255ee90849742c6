// Package stats implements a Prometheus Collector and a stats logger for
// LMDB environments.
package stats

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/bathbot/entitycache/lmdbenv"
)

// Collector implements an LMDB stats collector for Prometheus.
// It must be registered with Prometheus before it actually works.
type Collector struct {
	mu      sync.Mutex
	targets map[string]*lmdb.Env
}

func NewCollector() *Collector {
	return &Collector{
		targets: make(map[string]*lmdb.Env),
	}
}

// AddTarget adds an env to collect. All its named databases are collected.
func (c *Collector) AddTarget(name string, env *lmdb.Env) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets[name] = env
}

func (c *Collector) RemoveTarget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.targets, name)
}

// Describe is part of the prometheus.Collect interface
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- envMapSizeDesc
	ch <- envCurrentReadersDesc
	ch <- envLastTxnID
	ch <- envFileSizeDesc
	ch <- statUsageBytesDesc
	ch <- statTotalUsageFractionDesc
	ch <- statEntriesDesc
	ch <- statDepthDesc
	ch <- freeListUsableDesc
	ch <- freeListLockedDesc
}

// Collect is part of the prometheus.Collect interface. It fetches statistics
// from LMDB.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	targets := make(map[string]*lmdb.Env, len(c.targets))
	for name, env := range c.targets {
		targets[name] = env
	}
	c.mu.Unlock()
	for name, env := range targets {
		if err := collect(ch, name, env); err != nil {
			logrus.WithField("lmdb", name).Errorf("Collector: %v", err)
		}
	}
}

func collect(ch chan<- prometheus.Metric, name string, env *lmdb.Env) error {
	info, err := env.Info()
	if err != nil {
		return errors.Wrap(err, "env info")
	}
	gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v,
			append([]string{name}, labels...)...)
	}
	gauge(envMapSizeDesc, float64(info.MapSize))
	gauge(envCurrentReadersDesc, float64(info.NumReaders))
	gauge(envLastTxnID, float64(info.LastTxnID))

	path, err := env.Path()
	if err != nil {
		return errors.Wrap(err, "env path")
	}
	filesize, err := lmdbFileSize(path)
	if err != nil {
		return errors.Wrap(err, "file size")
	}
	gauge(envFileSizeDesc, float64(filesize))

	dbs, err := ReadDBStats(env)
	if err != nil {
		return err
	}
	var totalUsedBytes uint64
	for _, db := range dbs {
		used := PageUsageBytes(db.Stat)
		totalUsedBytes += used
		gauge(statUsageBytesDesc, float64(used), db.Name)
		gauge(statEntriesDesc, float64(db.Stat.Entries), db.Name)
		gauge(statDepthDesc, float64(db.Stat.Depth), db.Name)
	}
	if info.MapSize > 0 {
		gauge(statTotalUsageFractionDesc, float64(totalUsedBytes)/float64(info.MapSize))
	}

	fl, err := ReadFreeList(env)
	if err != nil {
		return errors.Wrap(err, "freelist")
	}
	gauge(freeListUsableDesc, float64(fl.UsableBytes()))
	gauge(freeListLockedDesc, float64(fl.LockedBytes()))
	return nil
}

// DBStat is the stat of a named database
type DBStat struct {
	Name string
	Stat *lmdb.Stat
}

// ReadDBStats returns the stat of all named databases
func ReadDBStats(env *lmdb.Env) ([]DBStat, error) {
	var dbs []DBStat
	err := env.View(func(txn *lmdb.Txn) error {
		names, err := lmdbenv.ReadDBINames(txn)
		if err != nil {
			return err
		}
		for _, name := range names {
			dbi, err := txn.OpenDBI(name, 0)
			if err != nil {
				return errors.Wrap(err, "opendbi "+name)
			}
			stat, err := txn.Stat(dbi)
			if err != nil {
				return errors.Wrap(err, "stat "+name)
			}
			dbs = append(dbs, DBStat{Name: name, Stat: stat})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "open view")
	}
	return dbs, nil
}

// PageUsageBytes returns the number of bytes used by the pages of a database
func PageUsageBytes(stat *lmdb.Stat) uint64 {
	return uint64(stat.PSize) * (stat.BranchPages + stat.LeafPages + stat.OverflowPages)
}

// Verify that Collector correctly implements the interface
var _ prometheus.Collector = (*Collector)(nil)

var (
	envMapSizeDesc = prometheus.NewDesc(
		"entitycache_lmdb_mapsize_bytes",
		"Map size of LMDB database",
		[]string{"lmdb"},
		nil,
	)
	envCurrentReadersDesc = prometheus.NewDesc(
		"entitycache_lmdb_env_readers_current",
		"Number of current readers for LMDB database",
		[]string{"lmdb"},
		nil,
	)
	envLastTxnID = prometheus.NewDesc(
		"entitycache_lmdb_env_last_txn_id",
		"Last write transaction ID of LMDB database",
		[]string{"lmdb"},
		nil,
	)
	envFileSizeDesc = prometheus.NewDesc(
		"entitycache_lmdb_filesize_bytes",
		"File size of LMDB database",
		[]string{"lmdb"},
		nil,
	)
	statUsageBytesDesc = prometheus.NewDesc(
		"entitycache_lmdb_db_usage_bytes",
		"Bytes used by data in a namespace database",
		[]string{"lmdb", "db"},
		nil,
	)
	statTotalUsageFractionDesc = prometheus.NewDesc(
		"entitycache_lmdb_total_usage_fraction",
		"Bytes used by data in all databases as fraction (0-1) of map size",
		[]string{"lmdb"},
		nil,
	)
	statEntriesDesc = prometheus.NewDesc(
		"entitycache_lmdb_stat_entries",
		"Number of entries in a namespace database, including expired entries not swept yet",
		[]string{"lmdb", "db"},
		nil,
	)
	statDepthDesc = prometheus.NewDesc(
		"entitycache_lmdb_stat_depth",
		"Tree depth in a namespace database",
		[]string{"lmdb", "db"},
		nil,
	)
	freeListUsableDesc = prometheus.NewDesc(
		"entitycache_lmdb_freelist_usable_bytes",
		"Bytes of freed pages that writes can reuse",
		[]string{"lmdb"},
		nil,
	)
	freeListLockedDesc = prometheus.NewDesc(
		"entitycache_lmdb_freelist_locked_bytes",
		"Bytes of freed pages still held by open readers",
		[]string{"lmdb"},
		nil,
	)
)

func lmdbFullPath(path string) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(err, "stat")
	}
	if st.IsDir() {
		path = filepath.Join(path, "data.mdb")
	}
	return filepath.Abs(path)
}

func lmdbFileSize(path string) (int64, error) {
	path, err := lmdbFullPath(path)
	if err != nil {
		return 0, errors.Wrap(err, "full path")
	}
	st, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrap(err, "stat")
	}
	return st.Size(), nil
}
