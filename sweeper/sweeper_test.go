package sweeper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bathbot/entitycache/config"
	"github.com/bathbot/entitycache/lmdbenv"
	"github.com/bathbot/entitycache/lmdbenv/header"
)

func TestSweeper(t *testing.T) {
	conf := config.Sweeper{
		Enabled:         true,
		Interval:        time.Second,
		FirstInterval:   0,
		BatchSize:       100, // forces split operation
		LockDuration:    time.Second,
		ReleaseDuration: 0,
	}

	l, _ := test.NewNullLogger()
	ctx := context.Background()

	err := lmdbenv.TestEnv(func(env *lmdb.Env) error {
		now := time.Unix(1700000000, 0)
		sweeper := New("test", conf, env, l)
		sweeper.now = func() time.Time { return now }

		t.Run("empty-lmdb", func(t *testing.T) {
			assert.NoError(t, sweeper.sweep(ctx))
			assert.Equal(t, 0, sweeper.lastStats.nEntries)
		})

		createDBI := func(name string) lmdb.DBI {
			var dbi lmdb.DBI
			err := env.Update(func(txn *lmdb.Txn) error {
				var err error
				dbi, err = txn.CreateDBI(name)
				return err
			})
			require.NoError(t, err)
			return dbi
		}

		t.Run("empty-dbi", func(t *testing.T) {
			_ = createDBI("channel")
			assert.NoError(t, sweeper.sweep(ctx))
			assert.Equal(t, 0, sweeper.lastStats.nEvicted)
		})

		t.Run("mix", func(t *testing.T) {
			mix := createDBI("member")

			require.NoError(t, env.Update(func(txn *lmdb.Txn) error {
				for i := 0; i < 3000; i++ {
					key := []byte(fmt.Sprintf("member:1:%08d", i))
					var h header.Header
					switch i % 3 {
					case 0:
						// No expiration
						h = header.New(now.Add(-time.Hour), 0)
					case 1:
						// Expires later
						h = header.New(now.Add(-time.Hour), 2*time.Hour)
					case 2:
						// Expired
						h = header.New(now.Add(-time.Hour), time.Minute)
					}
					val := append(h.Bytes(), "archive"...)
					if err := txn.Put(mix, key, val, 0); err != nil {
						return err
					}
				}
				return nil
			}))

			assert.NoError(t, sweeper.sweep(ctx))
			assert.Equal(t, 2000, sweeper.lastStats.nEntries)
			assert.Equal(t, 1000, sweeper.lastStats.nEvicted)
			assert.Greater(t, sweeper.lastStats.nTxn, 30)

			require.NoError(t, env.View(func(txn *lmdb.Txn) error {
				kvs, err := lmdbenv.ReadDBI(txn, mix)
				if err != nil {
					return err
				}
				assert.Len(t, kvs, 2000)
				for _, kv := range kvs {
					h, _, err := header.Parse(kv.Val)
					require.NoError(t, err)
					assert.False(t, h.Expired(now))
				}
				return nil
			}))

			// Nothing left to evict
			assert.NoError(t, sweeper.sweep(ctx))
			assert.Equal(t, 0, sweeper.lastStats.nEvicted)
			assert.Equal(t, 2000, sweeper.lastStats.nEntries)
		})

		t.Run("invalid-header", func(t *testing.T) {
			bad := createDBI("role")
			require.NoError(t, env.Update(func(txn *lmdb.Txn) error {
				return txn.Put(bad, []byte("role:1:1"), []byte("short"), 0)
			}))
			assert.Error(t, sweeper.sweep(ctx))
		})

		return nil
	})
	assert.NoError(t, err)
}

func TestSweeper_Run(t *testing.T) {
	l, _ := test.NewNullLogger()
	err := lmdbenv.TestEnv(func(env *lmdb.Env) error {
		sweeper := New("test", config.Sweeper{Interval: time.Hour, BatchSize: 10}, env, l)
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		err := sweeper.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		return nil
	})
	assert.NoError(t, err)
}
