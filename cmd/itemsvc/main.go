// Command itemsvc serves CRUD over items from a relational store with a
// cache-aside layer in front of reads.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/cacheaside/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "itemsvc",
		Short:         "Item CRUD service with a cache-aside read path",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("store-driver", "", "postgres or sqlite")
	root.PersistentFlags().String("store-dsn", "", "store connection string")
	root.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	bindFlags(v, root.PersistentFlags().Lookup, map[string]string{
		"store.driver": "store-driver",
		"store.dsn":    "store-dsn",
		"log.level":    "log-level",
	})

	load := func() (config.Config, error) { return config.Load(v, cfgFile) }
	root.AddCommand(newServeCmd(v, load), newMigrateCmd(load))
	return root
}
