package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/rayparkerhenry/intertalent/internal/enrich"
	"github.com/rayparkerhenry/intertalent/internal/zipcache"
	"github.com/rayparkerhenry/intertalent/internal/zippopotam"
)

var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Geocode ZIP codes and populate geolocation",
	Long:  "Finds rows with a ZIP code and no geolocation, resolves coordinates through the cache and Zippopotam.us, and writes PostGIS points back.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		table := cfg.Store.Table
		if t, _ := cmd.Flags().GetString("table"); t != "" {
			table = t
		}
		cachePath := cfg.Cache.Path
		if p, _ := cmd.Flags().GetString("cache-file"); p != "" {
			cachePath = p
		}
		delay := cfg.Lookup.Delay
		if cmd.Flags().Changed("delay") {
			delay, _ = cmd.Flags().GetDuration("delay")
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		pool, err := connectPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		gw := enrich.NewPostgresGateway(pool, table)
		cache := zipcache.New(cachePath)
		resolver := zippopotam.NewClient(
			zippopotam.WithBaseURL(cfg.Lookup.BaseURL),
			zippopotam.WithDelay(delay),
			zippopotam.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Lookup.TimeoutSecs) * time.Second,
			}),
		)

		var bar *progressbar.ProgressBar
		reporter := func(done, total int, _ enrich.RunStats) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Geocoding"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
				)
			}
			_ = bar.Set(done)
		}

		e := enrich.NewEnricher(gw, cache, resolver,
			enrich.WithReporter(reporter),
			enrich.WithReportEvery(1),
			enrich.WithDryRun(dryRun),
		)

		stats, runErr := e.Run(ctx)
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
		if runErr != nil {
			return runErr
		}

		printSummary(table, stats, cache, dryRun)
		return nil
	},
}

func printSummary(table string, stats *enrich.RunStats, cache *zipcache.Cache, dryRun bool) {
	fmt.Println("============================================================")
	fmt.Println("SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Table:                %s\n", table)
	if dryRun {
		fmt.Println("Mode:                 dry run (no store writes)")
	}
	fmt.Printf("ZIP codes processed:  %d\n", stats.Processed)
	fmt.Printf("  - From cache:       %d\n", stats.FromCache)
	fmt.Printf("  - From API:         %d\n", stats.FromLookup)
	fmt.Printf("  - Found:            %d\n", stats.Found)
	fmt.Printf("  - Not found:        %d\n", stats.NotFound)
	fmt.Printf("Total rows updated:   %d\n", stats.RowsUpdated)
	fmt.Printf("Cache entries:        %d (%d negative)\n", cache.Len(), cache.Negatives())
	fmt.Println("============================================================")
}

func init() {
	populateCmd.Flags().String("table", "", "target table (default from config)")
	populateCmd.Flags().String("cache-file", "", "cache file path (default from config)")
	populateCmd.Flags().Duration("delay", 0, "pause between API calls (default from config)")
	populateCmd.Flags().Bool("dry-run", false, "resolve coordinates without writing to the store")
	rootCmd.AddCommand(populateCmd)
}
