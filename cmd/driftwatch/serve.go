package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mementolab/driftwatch/internal/config"
	"github.com/mementolab/driftwatch/internal/search"
	"github.com/mementolab/driftwatch/internal/server"
	"github.com/mementolab/driftwatch/internal/telemetry"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var addr string
	var indexPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analysis results over a read-only HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Address
			}
			logger := log.New(os.Stdout, "[HTTP] ", log.LstdFlags)

			var ix *search.Index
			if indexPath != "" {
				if _, err := os.Stat(indexPath); err == nil {
					ix, err = search.Open(indexPath)
					if err != nil {
						return err
					}
					defer ix.Close()
				} else {
					logger.Printf("no index at %s, search endpoint disabled", indexPath)
				}
			}

			s := server.New(cfg.Pipeline.AnalysisDir, ix, telemetry.New(), logger)
			logger.Printf("listening on %s over %s", addr, cfg.Pipeline.AnalysisDir)
			return s.Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&indexPath, "index", defaultIndexPath, "change-unit index directory")
	return cmd
}
