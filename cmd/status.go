package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rayparkerhenry/intertalent/internal/enrich"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show enrichment progress",
	Long:  "Reports how many rows already carry a geolocation and how many still await one.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		table := cfg.Store.Table
		if t, _ := cmd.Flags().GetString("table"); t != "" {
			table = t
		}

		pool, err := connectPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		gw := enrich.NewPostgresGateway(pool, table)

		pending, err := gw.PendingCount(ctx)
		if err != nil {
			return err
		}
		enriched, err := gw.EnrichedCount(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Table:       %s\n", table)
		fmt.Printf("Enriched:    %d rows\n", enriched)
		fmt.Printf("Pending:     %d rows\n", pending)
		if pending == 0 {
			fmt.Println("All rows with a ZIP code have a geolocation.")
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().String("table", "", "target table (default from config)")
	rootCmd.AddCommand(statusCmd)
}
