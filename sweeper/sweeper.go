// Package sweeper evicts expired entries from the LMDB backend.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/sirupsen/logrus"

	"github.com/bathbot/entitycache/config"
	"github.com/bathbot/entitycache/lmdbenv"
	"github.com/bathbot/entitycache/lmdbenv/header"
	"github.com/bathbot/entitycache/utils"
)

func New(name string, conf config.Sweeper, env *lmdb.Env, l logrus.FieldLogger) *Sweeper {
	return &Sweeper{
		name: name,
		l:    l.WithField("component", "sweeper"),
		env:  env,
		conf: conf,
		now:  time.Now,
	}
}

// Sweeper removes expired entries from all namespace databases of a single
// LMDB. Readers never see expired entries, the sweeper only reclaims space.
type Sweeper struct {
	name string
	l    logrus.FieldLogger
	env  *lmdb.Env
	conf config.Sweeper
	now  func() time.Time

	lastStats stats // mainly for tests
}

// Run runs the sweeper according to the configured schedule.
// It only runs until the context is closed.
func (s *Sweeper) Run(ctx context.Context) error {
	wait := s.conf.FirstInterval
	for {
		if err := utils.SleepContext(ctx, wait); err != nil {
			return err // context closed
		}
		wait = s.conf.Interval

		err := s.sweep(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			s.l.WithError(err).Warn("Sweep failed")
		}
	}
}

// sweep performs a single full database sweep.
func (s *Sweeper) sweep(ctx context.Context) error {
	t0 := time.Now()
	now := s.now()

	s.l.Debug("Sweep started")
	defer s.l.Debug("Sweep finished")

	// New namespaces may appear over time
	var dbiNames []string
	err := s.env.View(func(txn *lmdb.Txn) error {
		var err error
		dbiNames, err = lmdbenv.ReadDBINames(txn)
		return err
	})
	if err != nil {
		return err
	}

	var st stats
	for _, dbiName := range dbiNames {
		l := s.l.WithField("dbi", dbiName)
		l.Debug("Sweep DBI")

		var after []byte
		for {
			var limited bool
			err := s.env.Update(func(txn *lmdb.Txn) error {
				st.nTxn++
				txn.RawRead = true

				dbi, err := txn.OpenDBI(dbiName, 0)
				if err != nil {
					return err
				}

				sc := newBatchScanner(txn, dbi, after, s.conf.BatchSize, s.conf.LockDuration)
				defer sc.Close()

				for sc.Scan() {
					h, _, err := header.Parse(sc.Val())
					if err != nil {
						return fmt.Errorf("failed to parse header for key %s: %w",
							utils.DisplayASCII(sc.Key()), err)
					}
					if !h.Expired(now) {
						st.nEntries++
						continue
					}
					st.nEvicted++
					if err := txn.Del(dbi, sc.Key(), nil); err != nil {
						return fmt.Errorf("failed to delete key %s: %w",
							utils.DisplayASCII(sc.Key()), err)
					}
				}
				if err := sc.Err(); err != nil {
					return err
				}
				after, limited = sc.Resume()
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to sweep dbi %s: %w", dbiName, err)
			}
			if !limited {
				break // done with this DBI
			}
			l.Debug("Sweep limit reached, continuing after pause")
			// Give the cache some room to get a write lock before continuing
			if err := utils.SleepContext(ctx, s.conf.ReleaseDuration); err != nil {
				return err
			}
		}
	}
	st.timeTaken = time.Since(t0)
	s.lastStats = st
	metricEvictedTotal.WithLabelValues(s.name).Add(float64(st.nEvicted))
	metricLiveEntries.WithLabelValues(s.name).Set(float64(st.nEntries))
	metricDurationSummary.WithLabelValues(s.name).Observe(st.timeTaken.Seconds())
	s.l.WithFields(st.logFields()).Info("Sweep for expired entries completed")
	return nil
}
