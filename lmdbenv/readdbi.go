package lmdbenv

import (
	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/PowerDNS/lmdb-go/lmdbscan"
	"github.com/pkg/errors"
)

type KV struct {
	Key, Val []byte
}

// ReadDBI returns all entries of a DBI. The slices point into the LMDB map,
// so they are only valid during the transaction.
func ReadDBI(txn *lmdb.Txn, dbi lmdb.DBI) ([]KV, error) {
	sc := lmdbscan.New(txn, dbi)
	defer sc.Close()

	var entries []KV
	for sc.Scan() {
		entries = append(entries, KV{Key: sc.Key(), Val: sc.Val()})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return entries, nil
}

// ReadDBINames returns the names of all named databases, which are the keys
// of the root database.
func ReadDBINames(txn *lmdb.Txn) ([]string, error) {
	root, err := txn.OpenRoot(0)
	if err != nil {
		return nil, errors.Wrap(err, "open root")
	}
	kvs, err := ReadDBI(txn, root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		names = append(names, string(kv.Key))
	}
	return names, nil
}

// DBIExists reports whether a named database exists, without creating it
func DBIExists(txn *lmdb.Txn, name string) (bool, error) {
	_, err := txn.OpenDBI(name, 0)
	if lmdb.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "open dbi %s", name)
	}
	return true, nil
}
