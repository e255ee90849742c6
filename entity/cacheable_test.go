package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bathbot/entitycache/codec"
	"github.com/bathbot/entitycache/model"
)

func TestCacheable_inline(t *testing.T) {
	g := CachedGuild{ID: 1, Name: strings.Repeat("n", 100)}

	called := false
	err := GuildCacheable.With(g, func(b []byte) error {
		called = true
		assert.Len(t, b, g.EncodedSize())
		assert.Equal(t, 512, cap(b))
		_, err := ParseGuild(b)
		return err
	})
	require.NoError(t, err)
	assert.True(t, called)

	// Buffers are reused
	err = GuildCacheable.With(CachedGuild{ID: 2, Name: "x"}, func(b []byte) error {
		a, err := ParseGuild(b)
		require.NoError(t, err)
		assert.Equal(t, "x", a.Name())
		return nil
	})
	require.NoError(t, err)
}

func TestCacheable_overflow(t *testing.T) {
	g := CachedGuild{ID: 1, Name: strings.Repeat("ü", 300)}

	called := false
	err := GuildCacheable.With(g, func([]byte) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrBufferOverflow)
	assert.False(t, called)

	_, err = GuildCacheable.Serialize(g)
	assert.ErrorIs(t, err, ErrBufferOverflow)
}

func TestCacheable_unknownTag(t *testing.T) {
	t.Run("channel type", func(t *testing.T) {
		ch := CachedChannel{ID: 1, Kind: model.ChannelType(99)}
		called := false
		err := ChannelCacheable.With(ch, func([]byte) error {
			called = true
			return nil
		})
		var tagErr *codec.InvalidTagError
		require.ErrorAs(t, err, &tagErr)
		assert.Equal(t, uint8(99), tagErr.Value)
		assert.False(t, called)

		_, err = ChannelCacheable.Serialize(ch)
		assert.ErrorAs(t, err, &tagErr)
	})

	t.Run("overwrite kind", func(t *testing.T) {
		ch := CachedChannel{
			ID:                   1,
			PermissionOverwrites: []model.PermissionOverwrite{{ID: 2, Kind: model.PermissionOverwriteType(9)}},
		}
		_, err := ChannelCacheable.Serialize(ch)
		var tagErr *codec.InvalidTagError
		require.ErrorAs(t, err, &tagErr)
		assert.Equal(t, uint8(9), tagErr.Value)
		assert.Contains(t, err.Error(), "permission_overwrites[0]")
	})

	t.Run("media channel", func(t *testing.T) {
		b, err := ChannelCacheable.Serialize(CachedChannel{ID: 1, Kind: model.ChannelGuildMedia})
		require.NoError(t, err)
		a, err := ParseChannel(b)
		require.NoError(t, err)
		assert.Equal(t, model.ChannelGuildMedia, a.Kind())
	})
}

func TestCacheable_growable(t *testing.T) {
	assert.False(t, RoleCacheable.Buffer.IsInline())
	assert.Equal(t, 64, RoleCacheable.Buffer.Size())

	r := CachedRole{ID: 1, Name: strings.Repeat("r", 1000)}
	err := RoleCacheable.With(r, func(b []byte) error {
		assert.Len(t, b, r.EncodedSize())
		return nil
	})
	assert.NoError(t, err)

	b, err := RoleCacheable.Serialize(r)
	require.NoError(t, err)
	a, err := ParseRole(b)
	require.NoError(t, err)
	assert.Equal(t, r.Name, a.Name())
}

func TestCacheable_choices(t *testing.T) {
	for _, c := range []struct {
		c      Cacheable
		inline bool
		size   int
	}{
		{CurrentUserCacheable, true, 192},
		{GuildCacheable, true, 512},
		{UserCacheable, true, 192},
		{ChannelCacheable, false, 128},
		{MemberCacheable, false, 128},
		{RoleCacheable, false, 64},
	} {
		assert.Equal(t, c.inline, c.c.Buffer.IsInline())
		assert.Equal(t, c.size, c.c.Buffer.Size())
		assert.Zero(t, c.c.Expire)
	}
}
