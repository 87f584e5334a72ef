package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mementolab/driftwatch/internal/alignment"
	"github.com/mementolab/driftwatch/internal/analysis"
	"github.com/mementolab/driftwatch/internal/config"
	"github.com/mementolab/driftwatch/internal/llm"
	"github.com/mementolab/driftwatch/internal/telemetry"
)

func analyzeCMD(cfgPath *string) *cobra.Command {
	var startPair int
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Align and assess consecutive snapshot pairs with the configured LLM",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("llm.api_key is not configured (set DRIFTWATCH_LLM_API_KEY)")
			}
			if cmd.Flags().Changed("start-pair") {
				cfg.Pipeline.StartPairIndex = startPair
			}

			tele := telemetry.New()
			pacer := llm.NewPacer(cfg.LLM.RequestsPerMinute, cfg.LLM.RequestJitter)
			client := llm.NewClient(cfg.LLM, pacer, tele, log.New(os.Stdout, "[LLM] ", log.LstdFlags))
			analyzer := alignment.NewAnalyzer(client, log.New(os.Stdout, "[ALIGN] ", log.LstdFlags))
			runner := analysis.NewRunner(cfg.Pipeline, analyzer, tele, log.New(os.Stdout, "[ANALYZE] ", log.LstdFlags))

			ctx, cancel := signalContext()
			defer cancel()
			return runner.Run(ctx)
		},
	}
	cmd.Flags().IntVar(&startPair, "start-pair", 0, "skip pairs below this index in every document")
	return cmd
}
