package stats

import (
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/PowerDNS/lmdb-go/lmdbscan"
	"github.com/pkg/errors"
)

// freeListDBI is the internal database listing the pages freed per write
// transaction
const freeListDBI lmdb.DBI = 0

// FreeList summarizes the free pages of an env. Pages freed by a transaction
// can only be reused once no reader uses a snapshot older than it.
type FreeList struct {
	Transactions int
	Pages        uint64
	UsablePages  uint64 // reusable now
	LockedPages  uint64 // still held by an open reader
	PageSize     uint64

	OldestReaderTxnID int64
	Readers           int
}

// UsableBytes returns the number of bytes that writes can reuse right away
func (f FreeList) UsableBytes() uint64 {
	return f.UsablePages * f.PageSize
}

// LockedBytes returns the number of bytes of freed pages kept alive by readers
func (f FreeList) LockedBytes() uint64 {
	return f.LockedPages * f.PageSize
}

// ReadFreeList scans the freelist of the env
func ReadFreeList(env *lmdb.Env) (FreeList, error) {
	var fl FreeList
	info, err := env.Info()
	if err != nil {
		return fl, errors.Wrap(err, "env info")
	}
	readers, err := readReaders(env)
	if err != nil {
		return fl, errors.Wrap(err, "reader list")
	}
	fl.Readers = len(readers)
	fl.OldestReaderTxnID = readers.oldestOr(info.LastTxnID)

	err = env.View(func(txn *lmdb.Txn) error {
		stat, err := txn.Stat(freeListDBI)
		if err != nil {
			return err
		}
		fl.PageSize = uint64(stat.PSize)

		sc := lmdbscan.New(txn, freeListDBI)
		defer sc.Close()
		for sc.Scan() {
			// Key is the freeing txn id, the value starts with the page count
			if len(sc.Key()) != 8 || len(sc.Val()) < 8 {
				return errors.Errorf("unexpected freelist entry: key %d bytes, value %d bytes",
					len(sc.Key()), len(sc.Val()))
			}
			txnID := int64(binary.NativeEndian.Uint64(sc.Key()))
			n := binary.NativeEndian.Uint64(sc.Val()[:8])
			fl.Transactions++
			fl.Pages += n
			if txnID < fl.OldestReaderTxnID {
				fl.UsablePages += n
			} else {
				fl.LockedPages += n
			}
		}
		return sc.Err()
	})
	return fl, err
}

type reader struct {
	pid   int64
	txnID int64
}

type readerList []reader

func (rl readerList) oldestOr(lastTxnID int64) int64 {
	oldest := lastTxnID
	for _, r := range rl {
		if r.txnID > 0 && r.txnID < oldest {
			oldest = r.txnID
		}
	}
	return oldest
}

var reFields = regexp.MustCompile(" +")

// readReaders parses the table returned by the LMDB reader list. Rows that
// cannot be parsed are skipped.
func readReaders(env *lmdb.Env) (readerList, error) {
	var rl readerList
	header := true
	err := env.ReaderList(func(s string) error {
		if header {
			// "    pid     thread     txnid"
			header = false
			return nil
		}
		parts := reFields.Split(strings.TrimSpace(s), -1)
		if len(parts) < 3 {
			return nil
		}
		var r reader
		r.pid, _ = strconv.ParseInt(parts[0], 10, 64)
		r.txnID, _ = strconv.ParseInt(parts[2], 10, 64)
		rl = append(rl, r)
		return nil
	})
	return rl, err
}
