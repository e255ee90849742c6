package cache

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/bathbot/entitycache/entity"
	"github.com/bathbot/entitycache/model"
)

func testGuild(id model.GuildID, name string) *model.Guild {
	return &model.Guild{
		ID:      id,
		Name:    name,
		OwnerID: 100,
		Channels: []model.Channel{
			{ID: model.ChannelID(id)*10 + 1, Kind: model.ChannelGuildText, Name: ptr("general")},
			{ID: model.ChannelID(id)*10 + 2, Kind: model.ChannelGuildVoice, Name: ptr("voice")},
		},
		Roles: []model.Role{
			{ID: model.RoleID(id), Name: "@everyone"},
			{ID: model.RoleID(id)*10 + 1, Name: "mod", Position: 1},
		},
		Members: []model.Member{
			{User: model.User{ID: 100, Name: "owner"}, Roles: []model.RoleID{model.RoleID(id)*10 + 1}},
			{User: model.User{ID: 200, Name: "someone"}},
		},
	}
}

func TestUpdate_guildLifecycle(t *testing.T) {
	ctx := context.Background()
	c, st := newTestCache(t, Config{})

	require.NoError(t, c.Update(ctx, &model.Ready{
		User:   model.CurrentUser{ID: 1, Name: "bathbot"},
		Guilds: []model.UnavailableGuild{{ID: 1, Unavailable: true}, {ID: 2, Unavailable: true}},
	}))
	s, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.UnavailableGuilds)
	cu, ok, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bathbot", cu.Name())

	require.NoError(t, c.Update(ctx, &model.GuildCreate{Guild: *testGuild(1, "one")}))
	require.NoError(t, c.Update(ctx, &model.GuildCreate{Guild: *testGuild(2, "two")}))

	s, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, s.UnavailableGuilds)
	assert.Equal(t, 2, s.Guilds)
	assert.Equal(t, 4, s.Channels)
	assert.Equal(t, 4, s.Roles)
	assert.Equal(t, 4, s.Members)
	assert.Equal(t, 2, s.Users) // users are shared between guilds

	// Guild channels get the guild id
	ch, ok, err := c.Channel(ctx, 11)
	require.NoError(t, err)
	require.True(t, ok)
	gid, ok := ch.GuildID()
	assert.True(t, ok)
	assert.Equal(t, model.GuildID(1), gid)

	// Outage: marker set, snapshots kept
	require.NoError(t, c.Update(ctx, &model.GuildDelete{ID: 1, Unavailable: true}))
	unavailable, err := c.IsUnavailable(ctx, 1)
	require.NoError(t, err)
	assert.True(t, unavailable)
	_, ok, err = c.Guild(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	// Left the guild: everything of it is gone, the other guild is intact
	require.NoError(t, c.Update(ctx, &model.GuildDelete{ID: 1}))
	unavailable, err = c.IsUnavailable(ctx, 1)
	require.NoError(t, err)
	assert.False(t, unavailable)

	s, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Guilds)
	assert.Equal(t, 2, s.Channels)
	assert.Equal(t, 2, s.Roles)
	assert.Equal(t, 2, s.Members)
	assert.Equal(t, 2, s.Users)

	var keys []string
	require.NoError(t, st.Range(ctx, "channel", "", func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	}))
	assert.Equal(t, []string{"channel:21", "channel:22"}, keys)
}

func TestUpdate_guildCreateUnavailable(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Config{})
	require.NoError(t, c.Update(ctx, &model.GuildCreate{Guild: model.Guild{ID: 5, Unavailable: true}}))
	unavailable, err := c.IsUnavailable(ctx, 5)
	require.NoError(t, err)
	assert.True(t, unavailable)
	_, ok, err := c.Guild(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdate_guildUpdate(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Config{})
	require.NoError(t, c.Update(ctx, &model.GuildCreate{Guild: model.Guild{ID: 1, Name: "Abc", OwnerID: 1}}))

	require.NoError(t, c.Update(ctx, &model.GuildUpdate{ID: 1, Name: "Abc", OwnerID: 2}))
	require.NoError(t, c.Update(ctx, &model.GuildUpdate{ID: 1, Name: "Abcdef", OwnerID: 2}))
	g, ok, err := c.Guild(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Abcdef", g.Name())
	assert.Equal(t, model.UserID(2), g.OwnerID())
	assert.Equal(t, map[string]uint64{"in_place": 1, "rewrite": 1}, c.Patches(entity.KindGuild))

	// Unknown guild: nothing happens
	require.NoError(t, c.Update(ctx, &model.GuildUpdate{ID: 2, Name: "x"}))
	_, ok, err = c.Guild(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdate_guildUpdateConcurrent(t *testing.T) {
	const n = 50
	ctx := context.Background()
	c, _ := newTestCache(t, Config{})
	require.NoError(t, c.Update(ctx, &model.GuildCreate{Guild: model.Guild{ID: 1, Name: "Abc", OwnerID: 1}}))

	var eg errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			// Alternate between a name that fits in place and ones that do not
			name := "Abc"
			if i%2 == 1 {
				name = strings.Repeat("x", 4+i%5)
			}
			return c.Update(ctx, &model.GuildUpdate{ID: 1, Name: name, OwnerID: model.UserID(i)})
		})
		eg.Go(func() error {
			g, ok, err := c.Guild(ctx, 1)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("guild missing during update %d", i)
			}
			if g.Name() == "" {
				return fmt.Errorf("empty name during update %d", i)
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	patches := c.Patches(entity.KindGuild)
	assert.Equal(t, uint64(n), patches["in_place"]+patches["rewrite"])
	assert.NotZero(t, patches["rewrite"])

	_, ok, err := c.Guild(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdate_members(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Config{})
	user := model.User{ID: 3, Name: "alice"}

	require.NoError(t, c.Update(ctx, &model.MemberAdd{GuildID: 1, Member: model.Member{
		User: user, Nick: ptr("al"), Roles: []model.RoleID{1, 2},
	}}))
	_, ok, err := c.User(ctx, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	// Same nick and roles, new avatar: in place
	h := model.ImageHash{Bytes: [model.ImageHashSize]byte{1}}
	require.NoError(t, c.Update(ctx, &model.MemberUpdate{
		GuildID: 1, Avatar: &h, Nick: ptr("al"), Roles: []model.RoleID{1, 2}, User: user,
	}))
	// Dropped role: rewrite
	require.NoError(t, c.Update(ctx, &model.MemberUpdate{
		GuildID: 1, Avatar: &h, Nick: ptr("al"), Roles: []model.RoleID{1}, User: user,
	}))
	assert.Equal(t, map[string]uint64{"in_place": 1, "rewrite": 1}, c.Patches(entity.KindMember))

	m, ok, err := c.Member(ctx, 1, 3)
	require.NoError(t, err)
	require.True(t, ok)
	avatar, ok := m.Avatar()
	assert.True(t, ok)
	assert.Equal(t, h, avatar)
	assert.Equal(t, 1, m.Roles().Len())

	// Partial member of an interaction
	require.NoError(t, c.Update(ctx, &model.InteractionCreate{
		GuildID: ptr(model.GuildID(1)),
		Member:  &model.PartialMember{Nick: ptr("alice!"), Roles: []model.RoleID{1}, User: &user},
	}))
	m, _, err = c.Member(ctx, 1, 3)
	require.NoError(t, err)
	nick, _ := m.Nick()
	assert.Equal(t, "alice!", nick)

	// Interactions outside of guilds carry no member
	require.NoError(t, c.Update(ctx, &model.InteractionCreate{}))

	require.NoError(t, c.Update(ctx, &model.MemberChunk{GuildID: 1, Members: []model.Member{
		{User: model.User{ID: 4, Name: "b"}},
		{User: model.User{ID: 5, Name: "c"}},
	}}))
	n, err := c.Members.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, c.Update(ctx, &model.MemberRemove{GuildID: 1, User: user}))
	_, ok, err = c.Member(ctx, 1, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdate_channelsRolesUsers(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Config{})

	require.NoError(t, c.Update(ctx, &model.ChannelCreate{Channel: model.Channel{ID: 1, Name: ptr("a")}}))
	require.NoError(t, c.Update(ctx, &model.ChannelUpdate{Channel: model.Channel{ID: 1, Name: ptr("b")}}))
	require.NoError(t, c.Update(ctx, &model.ChannelPinsUpdate{ChannelID: 1}))
	ch, ok, err := c.Channel(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	name, _ := ch.Name()
	assert.Equal(t, "b", name)
	require.NoError(t, c.Update(ctx, &model.ChannelDelete{Channel: model.Channel{ID: 1}}))
	_, ok, err = c.Channel(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Update(ctx, &model.RoleCreate{GuildID: 1, Role: model.Role{ID: 2, Name: "a"}}))
	require.NoError(t, c.Update(ctx, &model.RoleUpdate{GuildID: 1, Role: model.Role{ID: 2, Name: "b"}}))
	r, ok, err := c.Role(ctx, 1, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", r.Name())
	require.NoError(t, c.Update(ctx, &model.RoleDelete{GuildID: 1, RoleID: 2}))
	_, ok, err = c.Role(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.StoreUser(ctx, &model.User{ID: 3, Name: "old", Discriminator: 1}))
	require.NoError(t, c.Update(ctx, &model.InviteCreate{Inviter: &model.PartialUser{ID: 3, Name: "new", Discriminator: 2}}))
	u, ok, err := c.User(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", u.Name())
	assert.Equal(t, uint16(2), u.Discriminator())

	require.NoError(t, c.Update(ctx, &model.UserUpdate{CurrentUser: model.CurrentUser{ID: 9, Name: "me"}}))
	cu, ok, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "me", cu.Name())

	// Not cached
	require.NoError(t, c.Update(ctx, &model.MessageCreate{ChannelID: 1, Content: "hi"}))
	namespaces, err := c.Storage().Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"current_user", "user"}, namespaces)
}
