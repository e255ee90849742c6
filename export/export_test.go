package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/PowerDNS/simpleblob/backends/memory"
	"github.com/gogo/protobuf/proto"
	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bathbot/entitycache/cache"
	"github.com/bathbot/entitycache/model"
	memstore "github.com/bathbot/entitycache/storage/memory"
)

func gogoBytesTag(field int) uint64 {
	return uint64(field)<<3 | proto.WireBytes
}

// The entry framing must stay readable by a generic protobuf decoder
func TestEntryWriter_compat(t *testing.T) {
	long := bytes.Repeat([]byte("v"), 300) // two byte length varint
	entries := [][2][]byte{
		{[]byte("guild:1"), []byte("archive")},
		{[]byte("unavailable_guild:2"), nil},
		{[]byte("role:1:3"), long},
	}
	var buf bytes.Buffer
	ew := newEntryWriter(&buf)
	for _, e := range entries {
		require.NoError(t, ew.write(e[0], e[1]))
	}

	outer := proto.NewBuffer(buf.Bytes())
	for _, e := range entries {
		tag, err := outer.DecodeVarint()
		require.NoError(t, err)
		assert.Equal(t, gogoBytesTag(fieldEntries), tag)
		msg, err := outer.DecodeRawBytes(false)
		require.NoError(t, err)

		inner := proto.NewBuffer(msg)
		tag, err = inner.DecodeVarint()
		require.NoError(t, err)
		assert.Equal(t, gogoBytesTag(fieldKey), tag)
		key, err := inner.DecodeRawBytes(true)
		require.NoError(t, err)
		assert.Equal(t, e[0], key)
		tag, err = inner.DecodeVarint()
		require.NoError(t, err)
		assert.Equal(t, gogoBytesTag(fieldValue), tag)
		val, err := inner.DecodeRawBytes(true)
		require.NoError(t, err)
		assert.Equal(t, len(e[1]), len(val))
	}
	_, err := outer.DecodeVarint()
	assert.Error(t, err) // nothing left

	rest := buf.Bytes()
	for _, e := range entries {
		var key, val []byte
		key, val, rest, err = nextEntry(rest)
		require.NoError(t, err)
		assert.Equal(t, e[0], key)
		assert.Equal(t, len(e[1]), len(val))
	}
	assert.Empty(t, rest)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	l, hook := test.NewNullLogger()

	src := memstore.New()
	c := cache.New(src, cache.Config{}, l)
	require.NoError(t, c.Update(ctx, &model.GuildCreate{Guild: model.Guild{
		ID: 1, Name: "guild", OwnerID: 2,
		Channels: []model.Channel{{ID: 3, Kind: model.ChannelGuildText}},
		Roles:    []model.Role{{ID: 4, Name: "role"}},
		Members:  []model.Member{{User: model.User{ID: 2, Name: "owner"}}},
	}}))
	require.NoError(t, c.Update(ctx, &model.GuildDelete{ID: 9, Unavailable: true}))
	// Not an archive of its kind
	require.NoError(t, src.Set(ctx, cache.UserKey(5), []byte("garbage"), 0))
	// Unknown namespace
	require.NoError(t, src.Set(ctx, "emoji:1", []byte("x"), 0))

	blobs := memory.New()
	res, err := Export(ctx, src, blobs, "entitycache", l)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Entries)
	assert.Greater(t, res.Size, 0)

	name, err := Latest(ctx, blobs, "entitycache")
	require.NoError(t, err)
	assert.Equal(t, res.Name, name)

	dst := memstore.New()
	hook.Reset()
	res, err = Import(ctx, dst, blobs, name, l)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Entries)
	assert.Equal(t, 2, res.Skipped)
	assert.Len(t, hook.AllEntries(), 3) // 2 skipped, 1 summary

	restored := cache.New(dst, cache.Config{}, l)
	g, ok, err := restored.Guild(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "guild", g.Name())
	unavailable, err := restored.IsUnavailable(ctx, 9)
	require.NoError(t, err)
	assert.True(t, unavailable)
	_, ok, err = restored.User(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatest(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()

	_, err := Latest(ctx, blobs, "ec")
	assert.ErrorIs(t, err, ErrNoExport)

	for _, name := range []string{
		BlobName("ec", time.Unix(900, 0)),
		BlobName("ec", time.Unix(1000, 0)),
		BlobName("ec", time.Unix(999, 0)),
		"ec-notatime.gz",
		"other-2000.gz",
	} {
		require.NoError(t, blobs.Store(ctx, name, []byte("x")))
	}
	name, err := Latest(ctx, blobs, "ec")
	require.NoError(t, err)
	assert.Equal(t, "ec-1000.gz", name)
}

func TestImport_invalid(t *testing.T) {
	ctx := context.Background()
	l, _ := test.NewNullLogger()
	blobs := memory.New()

	require.NoError(t, blobs.Store(ctx, "plain", []byte("not gzip")))
	_, err := Import(ctx, memstore.New(), blobs, "plain", l)
	assert.Error(t, err)

	gz := func(b []byte) []byte {
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		_, _ = w.Write(b)
		require.NoError(t, w.Close())
		return buf.Bytes()
	}
	require.NoError(t, blobs.Store(ctx, "nomagic", gz([]byte("XXXX"))))
	_, err = Import(ctx, memstore.New(), blobs, "nomagic", l)
	assert.ErrorContains(t, err, "not an entitycache export")

	// Entry cut off in the middle of the value
	var frames bytes.Buffer
	frames.WriteString(magic)
	require.NoError(t, newEntryWriter(&frames).write([]byte("user:1"), []byte("value")))
	truncated := frames.Bytes()[:frames.Len()-2]
	require.NoError(t, blobs.Store(ctx, "truncated", gz(truncated)))
	_, err = Import(ctx, memstore.New(), blobs, "truncated", l)
	assert.ErrorContains(t, err, "unexpected EOF")

	// Fields out of order
	var swapped bytes.Buffer
	swapped.WriteString(magic)
	entry := proto.NewBuffer(nil)
	require.NoError(t, entry.EncodeVarint(gogoBytesTag(fieldValue)))
	require.NoError(t, entry.EncodeRawBytes([]byte("value")))
	outer := proto.NewBuffer(nil)
	require.NoError(t, outer.EncodeVarint(gogoBytesTag(fieldEntries)))
	require.NoError(t, outer.EncodeRawBytes(entry.Bytes()))
	swapped.Write(outer.Bytes())
	require.NoError(t, blobs.Store(ctx, "swapped", gz(swapped.Bytes())))
	_, err = Import(ctx, memstore.New(), blobs, "swapped", l)
	assert.ErrorContains(t, err, "key: unexpected tag")

	_, err = Import(ctx, memstore.New(), blobs, "missing", l)
	assert.Error(t, err)
}
