package lmdbenv

import (
	"os"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"
)

// TestEnv creates a temporary LMDB database and calls f with its Env. The
// Env is closed and removed when f returns. The error of f is returned
// unmodified.
func TestEnv(f func(env *lmdb.Env) error) error {
	tmpdir, err := os.MkdirTemp("", "entitycache_lmdbtest_")
	if err != nil {
		return errors.Wrap(err, "create tempdir")
	}
	defer os.RemoveAll(tmpdir)

	env, err := Open(tmpdir, Options{MapSize: 64 * 1024 * 1024})
	if err != nil {
		return errors.Wrap(err, "open lmdb env")
	}
	defer env.Close()

	return f(env)
}
