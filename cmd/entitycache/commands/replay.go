package commands

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bathbot/entitycache/export"
	"github.com/bathbot/entitycache/model"
)

var replayExport bool

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayExport, "export", false, "Export the store after replaying")
}

func runReplay(fpath string) error {
	ctx := rootCtx
	contents, err := os.ReadFile(fpath)
	if err != nil {
		return errors.Wrap(err, "read events file")
	}
	events, err := model.ParseEvents(contents)
	if err != nil {
		return errors.Wrap(err, "parse events file")
	}

	c, err := openCache()
	if err != nil {
		return err
	}
	defer closeCache(c)

	for i, ev := range events {
		if err := c.Update(ctx, ev); err != nil {
			return errors.Wrapf(err, "event %d", i)
		}
	}
	logrus.WithField("events", len(events)).Info("Replayed events")

	if err := printCacheStats(ctx, c); err != nil {
		return err
	}
	if !replayExport {
		return nil
	}
	blobs, err := openBlobs(ctx)
	if err != nil {
		return err
	}
	_, err = export.Export(ctx, c.Storage(), blobs, conf.Export.Name, logrus.StandardLogger())
	return err
}

var replayCmd = &cobra.Command{
	Use:   "replay <events.yaml>",
	Short: "Apply the gateway events of a YAML file to the cache",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runReplay(args[0]); err != nil {
			logrus.WithError(err).Fatal("Error")
		}
	},
}
