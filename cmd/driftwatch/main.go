package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:           "driftwatch",
		Short:         "Track how archived news articles change between Wayback Machine captures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	root.AddCommand(
		retrieveCMD(&cfgPath),
		analyzeCMD(&cfgPath),
		metricsCMD(&cfgPath),
		chartCMD(&cfgPath),
		countCMD(&cfgPath),
		indexCMD(&cfgPath),
		searchCMD(&cfgPath),
		serveCMD(&cfgPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
