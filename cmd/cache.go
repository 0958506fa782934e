package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rayparkerhenry/intertalent/internal/zipcache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the ZIP coordinate cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := cfg.Cache.Path
		if p, _ := cmd.Flags().GetString("cache-file"); p != "" {
			path = p
		}

		cache := zipcache.New(path)
		cache.Load()

		negatives := cache.Negatives()
		fmt.Printf("Cache file:  %s\n", path)
		fmt.Printf("Entries:     %d\n", cache.Len())
		fmt.Printf("  Resolved:  %d\n", cache.Len()-negatives)
		fmt.Printf("  Negative:  %d\n", negatives)
		return nil
	},
}

func init() {
	cacheStatsCmd.Flags().String("cache-file", "", "cache file path (default from config)")
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}
