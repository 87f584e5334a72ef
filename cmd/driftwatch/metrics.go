package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mementolab/driftwatch/internal/chart"
	"github.com/mementolab/driftwatch/internal/config"
	"github.com/mementolab/driftwatch/internal/metrics"
	"github.com/mementolab/driftwatch/internal/wayback"
)

func metricsCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Compute per-pair and summary metrics for every analyzed document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			logger := log.New(os.Stdout, "[METRICS] ", log.LstdFlags)
			return metrics.RunAll(cfg.Pipeline.AnalysisDir, logger)
		},
	}
}

func chartCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chart",
		Short: "Render daily importance charts from computed metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			logger := log.New(os.Stdout, "[CHART] ", log.LstdFlags)
			return chart.RunAll(cfg.Pipeline.AnalysisDir, logger)
		},
	}
}

func countCMD(cfgPath *string) *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Report memento and pair counts per dataset file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			counts, err := wayback.CountDatasets(cfg.Pipeline.DatasetDir)
			if err != nil {
				return err
			}
			if err := wayback.WriteCountTable(cmd.OutOrStdout(), counts); err != nil {
				return err
			}
			if csvPath != "" {
				return wayback.WriteCountCSV(csvPath, counts)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "also save the report as CSV")
	return cmd
}
