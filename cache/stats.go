package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bathbot/entitycache/utils"
)

// Stats holds the number of cached entries per kind
type Stats struct {
	Channels          int
	Guilds            int
	Members           int
	Roles             int
	Users             int
	UnavailableGuilds int

	Time      time.Time
	TimeTaken time.Duration
}

func (s Stats) logFields() logrus.Fields {
	return logrus.Fields{
		"channels":           s.Channels,
		"guilds":             s.Guilds,
		"members":            s.Members,
		"roles":              s.Roles,
		"users":              s.Users,
		"unavailable_guilds": s.UnavailableGuilds,
		"time_taken":         s.TimeTaken,
	}
}

// Stats counts the entries of every namespace concurrently
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	t0 := time.Now()
	var s Stats
	eg, ctx := errgroup.WithContext(ctx)
	count := func(name string, dst *int, fn func(context.Context) (int, error)) {
		eg.Go(func() error {
			n, err := fn(ctx)
			if err != nil {
				return errors.Wrapf(err, "count %s", name)
			}
			*dst = n
			return nil
		})
	}
	count("channels", &s.Channels, c.Channels.Count)
	count("guilds", &s.Guilds, c.Guilds.Count)
	count("members", &s.Members, c.Members.Count)
	count("roles", &s.Roles, c.Roles.Count)
	count("users", &s.Users, c.Users.Count)
	count("unavailable guilds", &s.UnavailableGuilds, func(ctx context.Context) (int, error) {
		n, err := c.st.Count(ctx, UnavailableGuildNamespace)
		return n, c.track(err)
	})
	if err := eg.Wait(); err != nil {
		return Stats{}, err
	}
	s.Time = t0
	s.TimeTaken = utils.TimeDiff(time.Now(), t0)
	return s, nil
}

// LastStats returns the result of the last refresh by RunMetrics, or nil if
// there was none yet.
func (c *Cache) LastStats() *Stats {
	return c.lastStats.Load()
}

// RunMetrics refreshes the stats every MetricsInterval and exports them as
// Prometheus gauges, until the context is closed.
func (c *Cache) RunMetrics(ctx context.Context) error {
	for {
		if err := c.refreshStats(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.l.WithError(err).Warn("Failed to refresh cache stats")
		}
		if err := utils.SleepContext(ctx, c.conf.MetricsInterval); err != nil {
			return err
		}
	}
}

func (c *Cache) refreshStats(ctx context.Context) error {
	s, err := c.Stats(ctx)
	if err != nil {
		return err
	}
	c.lastStats.Store(&s)
	metricEntries.WithLabelValues("channel").Set(float64(s.Channels))
	metricEntries.WithLabelValues("guild").Set(float64(s.Guilds))
	metricEntries.WithLabelValues("member").Set(float64(s.Members))
	metricEntries.WithLabelValues("role").Set(float64(s.Roles))
	metricEntries.WithLabelValues("user").Set(float64(s.Users))
	metricEntries.WithLabelValues(UnavailableGuildNamespace).Set(float64(s.UnavailableGuilds))
	metricStatsDuration.Observe(s.TimeTaken.Seconds())
	c.l.WithFields(s.logFields()).Debug("Cache stats refreshed")
	return nil
}
