package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/spf13/cobra"

	"github.com/mementolab/driftwatch/internal/config"
	"github.com/mementolab/driftwatch/internal/wayback"
)

func readURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func retrieveCMD(cfgPath *string) *cobra.Command {
	var urlsFile string
	var cronSpec string
	cmd := &cobra.Command{
		Use:   "retrieve [url...]",
		Short: "Crawl Wayback Machine captures of article URLs into the dataset directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			urls := args
			if urlsFile != "" {
				fromFile, err := readURLList(urlsFile)
				if err != nil {
					return fmt.Errorf("read url list: %w", err)
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no article URLs given (pass them as arguments or via --urls)")
			}

			logger := log.New(os.Stdout, "[RETRIEVE] ", log.LstdFlags)
			retriever := wayback.NewRetriever(cfg.Retrieve, logger)
			ctx, cancel := signalContext()
			defer cancel()

			if cronSpec == "" {
				return retriever.RetrieveAll(ctx, urls, cfg.Pipeline.DatasetDir)
			}

			expr, err := cronexpr.Parse(cronSpec)
			if err != nil {
				return fmt.Errorf("invalid cron expression %q: %w", cronSpec, err)
			}
			for {
				next := expr.Next(time.Now())
				logger.Printf("next crawl at %s", next.Format(time.RFC3339))
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Until(next)):
				}
				if err := retriever.RetrieveAll(ctx, urls, cfg.Pipeline.DatasetDir); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					logger.Printf("WARNING: crawl failed: %v", err)
				}
			}
		},
	}
	cmd.Flags().StringVar(&urlsFile, "urls", "", "file with one article URL per line")
	cmd.Flags().StringVar(&cronSpec, "cron", "", "keep running and crawl on this cron schedule")
	return cmd
}
