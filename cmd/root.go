package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/equityline/caseenrich/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "caseenrich",
	Short: "Case document enrichment pipeline",
	Long:  "Resolves court cases on the public portal, archives and reads their filings, extracts structured facts via Claude, and persists the financial picture.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
