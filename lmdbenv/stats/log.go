package stats

import (
	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Log logs all LMDB statistics once using logrus
func Log(env *lmdb.Env, log logrus.FieldLogger) {
	if err := doLog(env, log); err != nil {
		log.WithError(err).Error("LMDB stats logger")
	}
}

func doLog(env *lmdb.Env, log logrus.FieldLogger) error {
	info, err := env.Info()
	if err != nil {
		return errors.Wrap(err, "env info")
	}
	path, err := env.Path()
	if err != nil {
		return errors.Wrap(err, "env path")
	}
	filesize, err := lmdbFileSize(path)
	if err != nil {
		return errors.Wrap(err, "file size")
	}
	fl, err := ReadFreeList(env)
	if err != nil {
		return errors.Wrap(err, "freelist")
	}

	log.WithFields(logrus.Fields{
		"map_size":        datasize.ByteSize(info.MapSize).HR(),
		"num_readers":     info.NumReaders,
		"max_readers":     info.MaxReaders,
		"file_size":       datasize.ByteSize(filesize).HR(),
		"freelist_usable": datasize.ByteSize(fl.UsableBytes()).HR(),
		"freelist_locked": datasize.ByteSize(fl.LockedBytes()).HR(),
	}).Info("LMDB info")

	dbs, err := ReadDBStats(env)
	if err != nil {
		return err
	}
	for _, db := range dbs {
		log.WithFields(logrus.Fields{
			"db":             db.Name,
			"entries":        db.Stat.Entries,
			"depth":          db.Stat.Depth,
			"branch_pages":   db.Stat.BranchPages,
			"overflow_pages": db.Stat.OverflowPages,
			"usage":          datasize.ByteSize(PageUsageBytes(db.Stat)).HR(),
		}).Info("LMDB db stat")
	}
	return nil
}
