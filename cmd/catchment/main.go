package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "catchment",
		Short: "Delineate NHDPlus2 catchments for a stream location",
		Long: `catchment delineates the drainage area upstream of a point on the NHDPlus2
stream network, identified by a reach code and a measure along that reach.

Run "catchment serve" to answer HTTP requests, or "catchment delineate" to
write a single catchment to a local file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or JSON config file (default: $CATCHMENT_CONFIG_PATH or ./config/config.yaml)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newDelineateCmd(&configPath))
	return root
}
