package status

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/PowerDNS/simpleblob/backends/memory"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bathbot/entitycache/cache"
	"github.com/bathbot/entitycache/config"
	"github.com/bathbot/entitycache/entity"
	"github.com/bathbot/entitycache/lmdbenv"
	"github.com/bathbot/entitycache/model"
	memstore "github.com/bathbot/entitycache/storage/memory"
)

func TestPage(t *testing.T) {
	ctx := context.Background()
	l, _ := test.NewNullLogger()
	c := cache.New(memstore.New(), cache.Config{Ignore: []entity.Kind{entity.KindMember}}, l)
	require.NoError(t, c.StoreGuild(ctx, &model.Guild{ID: 1, Name: "a"}))
	_, err := c.Guilds.Patch(ctx, cache.GuildKey(1), entity.UpdateGuild(&model.GuildUpdate{ID: 1, Name: "abc"}))
	require.NoError(t, err)

	blobs := memory.New()
	require.NoError(t, blobs.Store(ctx, "entitycache-1700000000.gz", []byte("x")))

	err = lmdbenv.TestEnv(func(env *lmdb.Env) error {
		require.NoError(t, env.Update(func(txn *lmdb.Txn) error {
			_, err := txn.CreateDBI("guild")
			return err
		}))

		p := &Page{c: config.Default(), i: &info{
			cache: c,
			dbs:   []db{{name: "test", env: env}},
			blobs: blobs,
		}}

		w := httptest.NewRecorder()
		p.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, 200, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "No stats yet")
		assert.Contains(t, body, "<td>member</td>")
		assert.Contains(t, body, "LMDB test")
		assert.Contains(t, body, "<td>guild</td>")
		assert.Contains(t, body, "entitycache-1700000000.gz")
		assert.Contains(t, body, "type: memory")

		w = httptest.NewRecorder()
		p.ServeHTTP(w, httptest.NewRequest("GET", "/other", nil))
		assert.Equal(t, 404, w.Code)
		return nil
	})
	assert.NoError(t, err)
}

func TestRegistry(t *testing.T) {
	err := lmdbenv.TestEnv(func(env *lmdb.Env) error {
		AddLMDBEnv("a", env)
		AddLMDBEnv("b", env)
		RemoveLMDBEnv("a")
		infos := gi.DBInfo()
		require.Len(t, infos, 1)
		assert.Equal(t, "b", infos[0].Name)
		RemoveLMDBEnv("b")
		return nil
	})
	assert.NoError(t, err)
	assert.Empty(t, gi.DBInfo())
	assert.False(t, gi.Exports().Enabled)
}
