package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pressroomlabs/pressroom/config"
	"github.com/pressroomlabs/pressroom/internal/agent/core"
	"github.com/pressroomlabs/pressroom/internal/agent/telemetry"
	"github.com/spf13/cobra"
)

// analyzeCMD runs the full pipeline once and prints the result, for cron jobs
// and manual checks without a running server.
func analyzeCMD() *cobra.Command {
	var cfgPath string
	var category string
	var analyze = &cobra.Command{
		Use:   "analyze",
		Short: "Run the news analysis pipeline once and print JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			tele := telemetry.NewTelemetry(cfg.Telemetry)
			orch, err := core.NewOrchestrator(cfg, tele)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.General.RequestTimeout)
			defer cancel()

			result, err := orch.Analyze(ctx, category)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	analyze.Flags().StringVar(&category, "category", "", "narrow the run to a news category")
	analyze.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return analyze
}

func newsCMD() *cobra.Command {
	var cfgPath string
	var category string
	var news = &cobra.Command{
		Use:   "news",
		Short: "Fetch current headlines and print JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			tele := telemetry.NewTelemetry(cfg.Telemetry)
			orch, err := core.NewOrchestrator(cfg, tele)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.General.DefaultTimeout)
			defer cancel()

			items, err := orch.FetchNews(ctx, category)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		},
	}
	news.Flags().StringVar(&category, "category", "", "news category")
	news.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return news
}
