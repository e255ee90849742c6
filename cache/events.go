package cache

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bathbot/entitycache/entity"
	"github.com/bathbot/entitycache/model"
)

// Update applies a gateway event to the cache. Events of kinds the cache
// does not hold are ignored.
func (c *Cache) Update(ctx context.Context, ev model.Event) error {
	err := c.update(ctx, ev)
	if err != nil {
		return errors.Wrap(err, ev.EventName())
	}
	return nil
}

func (c *Cache) update(ctx context.Context, ev model.Event) error {
	switch ev := ev.(type) {
	case *model.ChannelCreate:
		return c.StoreChannel(ctx, &ev.Channel)
	case *model.ChannelUpdate:
		return c.StoreChannel(ctx, &ev.Channel)
	case *model.ChannelDelete:
		return c.Channels.Remove(ctx, ChannelKey(ev.ID))
	case *model.ChannelPinsUpdate:
		_, err := c.Channels.Patch(ctx, ChannelKey(ev.ChannelID), entity.OnChannelPinsUpdate(ev))
		return err
	case *model.GuildCreate:
		return c.guildCreate(ctx, &ev.Guild)
	case *model.GuildUpdate:
		_, err := c.Guilds.Patch(ctx, GuildKey(ev.ID), entity.OnGuildUpdate(ev))
		return err
	case *model.GuildDelete:
		if ev.Unavailable {
			return c.markUnavailable(ctx, ev.ID)
		}
		return c.removeGuild(ctx, ev.ID)
	case *model.MemberAdd:
		return c.storeMemberAndUser(ctx, ev.GuildID, &ev.Member)
	case *model.MemberChunk:
		for i := range ev.Members {
			if err := c.storeMemberAndUser(ctx, ev.GuildID, &ev.Members[i]); err != nil {
				return err
			}
		}
		return nil
	case *model.MemberUpdate:
		if _, err := c.Members.Patch(ctx, MemberKey(ev.GuildID, ev.User.ID), entity.OnMemberUpdate(ev)); err != nil {
			return err
		}
		return c.StoreUser(ctx, &ev.User)
	case *model.MemberRemove:
		return c.Members.Remove(ctx, MemberKey(ev.GuildID, ev.User.ID))
	case *model.RoleCreate:
		return c.StoreRole(ctx, ev.GuildID, &ev.Role)
	case *model.RoleUpdate:
		return c.StoreRole(ctx, ev.GuildID, &ev.Role)
	case *model.RoleDelete:
		return c.Roles.Remove(ctx, RoleKey(ev.GuildID, ev.RoleID))
	case *model.UserUpdate:
		return c.StoreCurrentUser(ctx, &ev.CurrentUser)
	case *model.InteractionCreate:
		if ev.GuildID == nil || ev.Member == nil || ev.Member.User == nil {
			return nil
		}
		_, err := c.Members.Patch(ctx, MemberKey(*ev.GuildID, ev.Member.User.ID), entity.MemberUpdateViaPartial(ev.Member))
		return err
	case *model.InviteCreate:
		if ev.Inviter == nil {
			return nil
		}
		_, err := c.Users.Patch(ctx, UserKey(ev.Inviter.ID), entity.UserUpdateViaPartial(ev.Inviter))
		return err
	case *model.Ready:
		if err := c.StoreCurrentUser(ctx, &ev.User); err != nil {
			return err
		}
		for _, g := range ev.Guilds {
			if err := c.markUnavailable(ctx, g.ID); err != nil {
				return err
			}
		}
		return nil
	default:
		c.l.WithField("event", ev.EventName()).Debug("Ignoring event")
		return nil
	}
}

func (c *Cache) storeMemberAndUser(ctx context.Context, guild model.GuildID, m *model.Member) error {
	if err := c.StoreMember(ctx, guild, m); err != nil {
		return err
	}
	return c.StoreUser(ctx, &m.User)
}

func (c *Cache) guildCreate(ctx context.Context, g *model.Guild) error {
	if g.Unavailable {
		return c.markUnavailable(ctx, g.ID)
	}
	if err := c.StoreGuild(ctx, g); err != nil {
		return err
	}
	for i := range g.Channels {
		ch := g.Channels[i]
		if ch.GuildID == nil {
			// Channels of a guild payload do not carry the guild id
			ch.GuildID = &g.ID
		}
		if err := c.StoreChannel(ctx, &ch); err != nil {
			return err
		}
	}
	for i := range g.Roles {
		if err := c.StoreRole(ctx, g.ID, &g.Roles[i]); err != nil {
			return err
		}
	}
	for i := range g.Members {
		if err := c.storeMemberAndUser(ctx, g.ID, &g.Members[i]); err != nil {
			return err
		}
	}
	return c.clearUnavailable(ctx, g.ID)
}

func (c *Cache) markUnavailable(ctx context.Context, id model.GuildID) error {
	err := c.track(c.st.Set(ctx, UnavailableGuildKey(id), nil, 0))
	return errors.Wrapf(err, "mark guild %s unavailable", id)
}

func (c *Cache) clearUnavailable(ctx context.Context, id model.GuildID) error {
	err := c.track(c.st.Delete(ctx, UnavailableGuildKey(id)))
	return errors.Wrapf(err, "clear unavailable guild %s", id)
}

// removeGuild removes the guild with its roles, members and channels. The
// keys are collected first, since a Range callback must not call back into
// the store.
func (c *Cache) removeGuild(ctx context.Context, id model.GuildID) error {
	l := c.l.WithField("guild", id)

	var keys []string
	collect := func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	}
	if !c.Roles.Ignored() {
		if err := c.track(c.st.Range(ctx, entity.KindRole.String(), guildPrefix(id), collect)); err != nil {
			return errors.Wrap(err, "range roles")
		}
	}
	if !c.Members.Ignored() {
		if err := c.track(c.st.Range(ctx, entity.KindMember.String(), guildPrefix(id), collect)); err != nil {
			return errors.Wrap(err, "range members")
		}
	}
	if !c.Channels.Ignored() {
		// Channel keys are not scoped by guild
		err := c.st.Range(ctx, entity.KindChannel.String(), "", func(key string, val []byte) error {
			ch, err := entity.ParseChannel(val)
			if err != nil {
				l.WithError(err).WithField("key", key).Warn("Skipping invalid channel archive")
				return nil
			}
			if gid, ok := ch.GuildID(); ok && gid == id {
				keys = append(keys, key)
			}
			return nil
		})
		if err := c.track(err); err != nil {
			return errors.Wrap(err, "range channels")
		}
	}
	keys = append(keys, GuildKey(id), UnavailableGuildKey(id))

	for _, key := range keys {
		if err := c.track(c.st.Delete(ctx, key)); err != nil {
			return errors.Wrapf(err, "delete %s", key)
		}
	}
	l.WithField("keys", len(keys)).Debug("Removed guild")
	return nil
}
