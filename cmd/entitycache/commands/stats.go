package commands

import (
	"context"
	"fmt"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/c2h5oh/datasize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bathbot/entitycache/cache"
	"github.com/bathbot/entitycache/entity"
	"github.com/bathbot/entitycache/lmdbenv/stats"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

func printCacheStats(ctx context.Context, c *cache.Cache) error {
	s, err := c.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("channels:           %d\n", s.Channels)
	fmt.Printf("guilds:             %d\n", s.Guilds)
	fmt.Printf("members:            %d\n", s.Members)
	fmt.Printf("roles:              %d\n", s.Roles)
	fmt.Printf("users:              %d\n", s.Users)
	fmt.Printf("unavailable guilds: %d\n", s.UnavailableGuilds)
	for _, k := range entity.Kinds() {
		if p := c.Patches(k); len(p) > 0 {
			fmt.Printf("patches %s: %v\n", k, p)
		}
	}
	return nil
}

func statsForLMDB(name string, env *lmdb.Env) error {
	info, err := env.Info()
	if err != nil {
		return err
	}
	fmt.Printf("%s: Env info: %+v\n", name, *info)

	dbs, err := stats.ReadDBStats(env)
	if err != nil {
		return err
	}
	var usedBytes uint64
	for _, db := range dbs {
		used := stats.PageUsageBytes(db.Stat)
		usedBytes += used
		usedHuman := datasize.ByteSize(used).HumanReadable()
		fmt.Printf("%s: dbi %s: %+v (%s)\n", name, db.Name, *db.Stat, usedHuman)
	}

	var usedPct float64
	if info.MapSize > 0 {
		usedPct = 100 * float64(usedBytes) / float64(info.MapSize)
	}
	fmt.Printf("%s: Total Used: %s / %s (~ %.1f %%)\n",
		name,
		datasize.ByteSize(usedBytes).HumanReadable(),
		datasize.ByteSize(info.MapSize).HumanReadable(),
		usedPct)

	fl, err := stats.ReadFreeList(env)
	if err != nil {
		return err
	}
	fmt.Printf("%s: Freelist: %d pages in %d txns, %s usable, %s locked by %d readers\n",
		name, fl.Pages, fl.Transactions,
		datasize.ByteSize(fl.UsableBytes()).HumanReadable(),
		datasize.ByteSize(fl.LockedBytes()).HumanReadable(),
		fl.Readers)
	return nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache and LMDB stats",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openCache()
		if err != nil {
			logrus.WithError(err).Fatal("Error")
		}
		defer closeCache(c)

		if err := printCacheStats(rootCtx, c); err != nil {
			logrus.WithError(err).Error("Cache stats error")
		}
		if env, ok := lmdbEnv(c.Storage()); ok {
			if err := statsForLMDB(conf.Storage.LMDB.Path, env); err != nil {
				logrus.WithError(err).Error("LMDB stats error")
			}
		}
	},
}
