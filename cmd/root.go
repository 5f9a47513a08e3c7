package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landgrid/geoaudit/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geoaudit",
	Short: "Industrial land-plot compliance audit pipeline",
	Long:  "Merges plot vectorization, encroachment detection and land-usage analysis into per-area compliance records, and drives the administrative action lifecycle.",
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
