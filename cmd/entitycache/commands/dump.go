package commands

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/bathbot/entitycache/entity"
	"github.com/bathbot/entitycache/storage"
	"github.com/bathbot/entitycache/utils"
)

var (
	dumpRaw   bool
	dumpLimit int
)

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().BoolVar(&dumpRaw, "raw", false, "Print the archive bytes instead of decoding them")
	dumpCmd.Flags().IntVar(&dumpLimit, "limit", 80, "Maximum number of bytes to print per raw value")
}

func dumpNamespace(ctx context.Context, st storage.Interface, ns string) error {
	kind, kindErr := entity.ParseKind(ns)
	return st.Range(ctx, ns, "", func(key string, val []byte) error {
		if dumpRaw || kindErr != nil {
			fmt.Printf("%s  =  %s\n", key, utils.DisplayASCIILimit(val, dumpLimit))
			return nil
		}
		rec, err := kind.Decode(val)
		if err != nil {
			fmt.Printf("%s  =  ERROR: %v\n", key, err)
			return nil
		}
		y, err := yaml.Marshal(rec)
		if err != nil {
			return errors.Wrap(err, key)
		}
		fmt.Printf("--- %s\n%s", key, y)
		return nil
	})
}

var dumpCmd = &cobra.Command{
	Use:   "dump [namespace...]",
	Short: "Dump cache contents",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openCache()
		if err != nil {
			logrus.WithError(err).Fatal("Error")
		}
		defer closeCache(c)

		namespaces := args
		if len(namespaces) == 0 {
			namespaces, err = c.Storage().Namespaces(rootCtx)
			if err != nil {
				logrus.WithError(err).Fatal("List namespaces")
			}
		}
		for _, ns := range namespaces {
			fmt.Printf("\n### %s\n\n", ns)
			if err := dumpNamespace(rootCtx, c.Storage(), ns); err != nil {
				logrus.WithError(err).WithField("namespace", ns).Error("Dump error")
			}
		}
	},
}
