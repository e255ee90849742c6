package sweeper

import (
	"bytes"
	"time"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/PowerDNS/lmdb-go/lmdbscan"
)

// checkEvery determines every how many records the scanner checks whether the
// transaction exceeded its time limit.
const checkEvery = 100

// batchScanner iterates over a database in chunks that each fit one
// transaction, limited in records and in time.
type batchScanner struct {
	sc       *lmdbscan.Scanner
	limit    int
	deadline time.Time
	after    []byte // resume after this key
	last     []byte // copy of the last key scanned
	count    int
	limited  bool
}

func newBatchScanner(txn *lmdb.Txn, dbi lmdb.DBI, after []byte, limit int, maxDuration time.Duration) *batchScanner {
	s := &batchScanner{
		sc:    lmdbscan.New(txn, dbi),
		limit: limit,
		after: after,
	}
	if maxDuration > 0 {
		s.deadline = time.Now().Add(maxDuration)
	}
	return s
}

func (s *batchScanner) Scan() bool {
	if s.count == 0 && s.after != nil {
		// Position on the last key of the previous batch, or on the next one
		// if it is gone.
		s.sc.Set(s.after, nil, lmdb.SetRange)
		if bytes.Equal(s.sc.Key(), s.after) {
			s.sc.Set(nil, nil, lmdb.Next)
		}
	}
	if s.limit > 0 && s.count >= s.limit {
		s.limited = true
		return false
	}
	if s.count > 0 && s.count%checkEvery == 0 && !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.limited = true
		return false
	}
	s.count++
	if !s.sc.Scan() {
		return false
	}
	// The caller may delete the entry, which invalidates the key memory
	s.last = append(s.last[:0], s.sc.Key()...)
	return true
}

func (s *batchScanner) Key() []byte { return s.sc.Key() }

func (s *batchScanner) Val() []byte { return s.sc.Val() }

// Resume returns the key to resume after, and false if the scan completed.
func (s *batchScanner) Resume() ([]byte, bool) {
	if !s.limited {
		return nil, false
	}
	return s.last, true
}

func (s *batchScanner) Err() error { return s.sc.Err() }

func (s *batchScanner) Close() { s.sc.Close() }
