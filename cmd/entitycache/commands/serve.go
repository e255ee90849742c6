package commands

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wojas/go-healthz"
	"golang.org/x/sync/errgroup"

	"github.com/bathbot/entitycache/cache"
	"github.com/bathbot/entitycache/export"
	"github.com/bathbot/entitycache/lmdbenv/stats"
	"github.com/bathbot/entitycache/status"
	"github.com/bathbot/entitycache/status/healthtracker"
	"github.com/bathbot/entitycache/status/starttracker"
	"github.com/bathbot/entitycache/sweeper"
	"github.com/bathbot/entitycache/utils"
)

var restore bool

const firstStatsPoll = 100 * time.Millisecond

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&restore, "restore", false, "Import the latest export before serving")
}

func runServe() error {
	ctx, cancel := context.WithCancel(rootCtx)
	defer cancel()

	start := starttracker.New(conf.Health.Startup, "cache", logrus.StandardLogger(),
		starttracker.StageStoreOpened, starttracker.StageFirstStats, starttracker.StageHTTPStarted)
	start.Register()

	c, err := openCache()
	if err != nil {
		return err
	}
	defer closeCache(c)

	ht := healthtracker.New(conf.Health.Store, "store", "cache store", logrus.StandardLogger())
	ht.Register()
	c.SetHealthTracker(ht)
	status.SetCache(c)

	if restore {
		if err := restoreLatest(ctx, c); err != nil {
			return err
		}
	}
	start.Pass(starttracker.StageStoreOpened)

	eg, ctx := errgroup.WithContext(ctx)

	if env, ok := lmdbEnv(c.Storage()); ok {
		name := conf.Storage.LMDB.Path
		status.AddLMDBEnv(name, env)
		defer status.RemoveLMDBEnv(name)

		if conf.Sweeper.Enabled {
			s := sweeper.New(name, conf.Sweeper, env, logrus.StandardLogger())
			eg.Go(func() error {
				return s.Run(ctx)
			})
		}
		if conf.Storage.LMDB.LogStats {
			eg.Go(func() error {
				for {
					stats.Log(env, logrus.WithField("db", name))
					if err := utils.SleepContext(ctx, conf.Storage.LMDB.LogStatsInterval); err != nil {
						return err
					}
				}
			})
		}
	}

	eg.Go(func() error {
		return c.RunMetrics(ctx)
	})
	eg.Go(func() error {
		// RunMetrics refreshes the stats first thing
		for c.LastStats() == nil {
			if err := utils.SleepContext(ctx, firstStatsPoll); err != nil {
				return err
			}
		}
		start.Pass(starttracker.StageFirstStats)
		return nil
	})

	healthz.AddBuildInfo()
	if hostname, err := os.Hostname(); err == nil {
		healthz.SetMeta("hostname", hostname)
	}
	healthz.SetMeta("version", version)
	healthz.SetMeta("storage_type", conf.Storage.Type)

	status.StartHTTPServer(conf, logrus.StandardLogger())
	start.Pass(starttracker.StageHTTPStarted)

	logrus.Info("Cache running")
	err = eg.Wait()
	if errors.Is(err, context.Canceled) {
		logrus.Info("Cache stopped")
		return nil
	}
	return err
}

// restoreLatest imports the latest export into the store
func restoreLatest(ctx context.Context, c *cache.Cache) error {
	blobs, err := openBlobs(ctx)
	if err != nil {
		return err
	}
	status.SetBlobStorage(blobs)
	name, err := export.Latest(ctx, blobs, conf.Export.Name)
	if err != nil {
		if errors.Is(err, export.ErrNoExport) {
			logrus.Warn("No export to restore, starting empty")
			return nil
		}
		return err
	}
	_, err = export.Import(ctx, c.Storage(), blobs, name, logrus.StandardLogger())
	return err
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the cache with its metrics and status page",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(); err != nil {
			logrus.WithError(err).Fatal("Error")
		}
	},
}
