package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bathbot/entitycache/export"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all cache entries to the export storage",
	Run: func(cmd *cobra.Command, args []string) {
		blobs, err := openBlobs(rootCtx)
		if err != nil {
			logrus.WithError(err).Fatal("Error")
		}
		c, err := openCache()
		if err != nil {
			logrus.WithError(err).Fatal("Error")
		}
		defer closeCache(c)

		if _, err := export.Export(rootCtx, c.Storage(), blobs, conf.Export.Name, logrus.StandardLogger()); err != nil {
			logrus.WithError(err).Error("Export failed")
		}
	},
}

var importCmd = &cobra.Command{
	Use:   "import [blob]",
	Short: "Load an export into the cache, by default the latest one",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		blobs, err := openBlobs(rootCtx)
		if err != nil {
			logrus.WithError(err).Fatal("Error")
		}
		var name string
		if len(args) > 0 {
			name = args[0]
		} else {
			name, err = export.Latest(rootCtx, blobs, conf.Export.Name)
			if err != nil {
				logrus.WithError(err).Fatal("Error")
			}
		}
		c, err := openCache()
		if err != nil {
			logrus.WithError(err).Fatal("Error")
		}
		defer closeCache(c)

		if _, err := export.Import(rootCtx, c.Storage(), blobs, name, logrus.StandardLogger()); err != nil {
			logrus.WithError(err).Error("Import failed")
		}
	},
}
