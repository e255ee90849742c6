package sweeper

import (
	"time"

	"github.com/sirupsen/logrus"
)

type stats struct {
	nEntries  int // number of live entries left
	nEvicted  int // number of expired entries removed in this run
	nTxn      int // number of transactions
	timeTaken time.Duration
}

func (s stats) logFields() logrus.Fields {
	return logrus.Fields{
		"live_entries":    s.nEntries,
		"evicted_entries": s.nEvicted,
		"transactions":    s.nTxn,
		"time_taken":      s.timeTaken.Round(time.Millisecond),
	}
}
