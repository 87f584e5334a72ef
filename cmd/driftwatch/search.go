package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mementolab/driftwatch/internal/config"
	"github.com/mementolab/driftwatch/internal/search"
)

const defaultIndexPath = "units.bleve"

func indexCMD(cfgPath *string) *cobra.Command {
	var indexPath string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build a keyword index over assessed change units",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			ix, err := search.Open(indexPath)
			if err != nil {
				return err
			}
			defer ix.Close()
			logger := log.New(os.Stdout, "[INDEX] ", log.LstdFlags)
			n, err := ix.IndexAnalysisRoot(cfg.Pipeline.AnalysisDir, logger)
			if err != nil {
				return err
			}
			logger.Printf("indexed %d change units into %s", n, indexPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&indexPath, "index", defaultIndexPath, "index directory")
	return cmd
}

func searchCMD(cfgPath *string) *cobra.Command {
	var indexPath string
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query the change-unit index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := search.Open(indexPath)
			if err != nil {
				return err
			}
			defer ix.Close()
			hits, err := ix.Search(strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no results")
				return nil
			}
			for _, hit := range hits {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. [%.3f] %s pair %d\n", hit.Rank, hit.Score, hit.Unit.Document, hit.Unit.PairIndex)
				if hit.Unit.DiffSummary != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", search.Snippet(hit.Unit.DiffSummary))
				}
				if hit.Unit.Importance != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", search.Snippet(hit.Unit.Importance))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&indexPath, "index", defaultIndexPath, "index directory")
	cmd.Flags().IntVarP(&limit, "limit", "k", 10, "maximum results")
	return cmd
}
