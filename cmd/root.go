package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rayparkerhenry/intertalent/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "zipgeo",
	Short: "ZIP code geolocation enrichment",
	Long:  "Populates the geolocation column of a Postgres table from 5-digit US ZIP codes using the Zippopotam.us API, backed by a durable local lookup cache.",
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
