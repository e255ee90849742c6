// Package cache is the facade over the backing store: typed per-kind
// handles, the dispatch of gateway events and cache statistics.
package cache

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/bathbot/entitycache/config"
	"github.com/bathbot/entitycache/entity"
	"github.com/bathbot/entitycache/model"
	"github.com/bathbot/entitycache/status/healthtracker"
	"github.com/bathbot/entitycache/storage"
)

// Config is consumed once by New
type Config = config.Cache

const (
	numKinds = int(entity.KindUser) + 1
	numPaths = int(entity.PathRewrite) + 1
)

type Cache struct {
	st     storage.Interface
	conf   Config
	l      logrus.FieldLogger
	health *healthtracker.HealthTracker // optional

	Channels     *Kind[entity.ArchivedChannel]
	CurrentUsers *Kind[entity.ArchivedCurrentUser]
	Guilds       *Kind[entity.ArchivedGuild]
	Members      *Kind[entity.ArchivedMember]
	Roles        *Kind[entity.ArchivedRole]
	Users        *Kind[entity.ArchivedUser]

	patches   [numKinds][numPaths]atomic.Uint64
	lastStats atomic.Pointer[Stats]
}

func New(st storage.Interface, conf Config, l logrus.FieldLogger) *Cache {
	if conf.MetricsInterval <= 0 {
		conf.MetricsInterval = config.DefaultMetricsInterval
	}
	c := &Cache{
		st:   st,
		conf: conf,
		l:    l.WithField("component", "cache"),
	}
	c.Channels = newKind(c, entity.KindChannel, entity.ParseChannel)
	c.CurrentUsers = newKind(c, entity.KindCurrentUser, entity.ParseCurrentUser)
	c.Guilds = newKind(c, entity.KindGuild, entity.ParseGuild)
	c.Members = newKind(c, entity.KindMember, entity.ParseMember)
	c.Roles = newKind(c, entity.KindRole, entity.ParseRole)
	c.Users = newKind(c, entity.KindUser, entity.ParseUser)
	if len(conf.Ignore) > 0 {
		c.l.WithField("ignore", conf.Ignore).Info("Ignoring entity kinds")
	}
	return c
}

// SetHealthTracker makes store round trips feed the tracker
func (c *Cache) SetHealthTracker(ht *healthtracker.HealthTracker) {
	c.health = ht
}

// Storage returns the backing store
func (c *Cache) Storage() storage.Interface {
	return c.st
}

func (c *Cache) ignores(kind entity.Kind) bool {
	return lo.Contains(c.conf.Ignore, kind)
}

// track reports the outcome of a store round trip to the health tracker and
// returns err. Missing keys and canceled contexts are no store failures.
func (c *Cache) track(err error) error {
	switch {
	case err == nil || errors.Is(err, os.ErrNotExist):
		if c.health != nil {
			c.health.AddSuccess()
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		metricStoreErrors.Inc()
		if c.health != nil {
			c.health.AddFailure()
		}
	}
	return err
}

func (c *Cache) countPatch(kind entity.Kind, path entity.Path) {
	c.patches[kind][path].Inc()
	metricPatches.WithLabelValues(kind.String(), path.String()).Inc()
}

// Patches returns the number of applied patches of a kind per path
func (c *Cache) Patches(kind entity.Kind) map[string]uint64 {
	res := make(map[string]uint64, numPaths-1)
	for _, p := range []entity.Path{entity.PathInPlace, entity.PathRewrite} {
		res[p.String()] = c.patches[kind][p].Load()
	}
	return res
}

func (c *Cache) StoreChannel(ctx context.Context, ch *model.Channel) error {
	return c.Channels.Store(ctx, ChannelKey(ch.ID), entity.NewCachedChannel(ch))
}

func (c *Cache) StoreCurrentUser(ctx context.Context, u *model.CurrentUser) error {
	return c.CurrentUsers.Store(ctx, CurrentUserKey, entity.NewCachedCurrentUser(u))
}

func (c *Cache) StoreGuild(ctx context.Context, g *model.Guild) error {
	return c.Guilds.Store(ctx, GuildKey(g.ID), entity.NewCachedGuild(g))
}

// StoreMember stores the member. Its user is stored separately by callers
// that have one.
func (c *Cache) StoreMember(ctx context.Context, guild model.GuildID, m *model.Member) error {
	return c.Members.Store(ctx, MemberKey(guild, m.User.ID), entity.NewCachedMember(m))
}

func (c *Cache) StoreRole(ctx context.Context, guild model.GuildID, r *model.Role) error {
	return c.Roles.Store(ctx, RoleKey(guild, r.ID), entity.NewCachedRole(r))
}

func (c *Cache) StoreUser(ctx context.Context, u *model.User) error {
	return c.Users.Store(ctx, UserKey(u.ID), entity.NewCachedUser(u))
}

func (c *Cache) Channel(ctx context.Context, id model.ChannelID) (entity.ArchivedChannel, bool, error) {
	return c.Channels.Fetch(ctx, ChannelKey(id))
}

func (c *Cache) CurrentUser(ctx context.Context) (entity.ArchivedCurrentUser, bool, error) {
	return c.CurrentUsers.Fetch(ctx, CurrentUserKey)
}

func (c *Cache) Guild(ctx context.Context, id model.GuildID) (entity.ArchivedGuild, bool, error) {
	return c.Guilds.Fetch(ctx, GuildKey(id))
}

func (c *Cache) Member(ctx context.Context, guild model.GuildID, user model.UserID) (entity.ArchivedMember, bool, error) {
	return c.Members.Fetch(ctx, MemberKey(guild, user))
}

func (c *Cache) Role(ctx context.Context, guild model.GuildID, id model.RoleID) (entity.ArchivedRole, bool, error) {
	return c.Roles.Fetch(ctx, RoleKey(guild, id))
}

func (c *Cache) User(ctx context.Context, id model.UserID) (entity.ArchivedUser, bool, error) {
	return c.Users.Fetch(ctx, UserKey(id))
}

// IsUnavailable reports whether the guild is marked as unavailable
func (c *Cache) IsUnavailable(ctx context.Context, id model.GuildID) (bool, error) {
	_, err := c.st.Get(ctx, UnavailableGuildKey(id))
	if err := c.track(err); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Close closes the backing store
func (c *Cache) Close() error {
	return c.st.Close()
}
