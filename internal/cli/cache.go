package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rubriccheck/internal/cache"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the analysis cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached analysis and rewrite",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}

		c, err := cache.New(cfg.Cache)
		if err != nil {
			return err
		}
		removed := -1
		if counter, ok := c.(interface{ Len() (int, error) }); ok {
			if n, err := counter.Len(); err == nil {
				removed = n
			}
		}

		store := cache.NewAnalysisStore(c, logger)
		if err := store.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		if closer, ok := c.(interface{ Close() error }); ok {
			_ = closer.Close()
		}

		if removed >= 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %s cache (%d entries)\n", cfg.Cache.Backend, removed)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %s cache\n", cfg.Cache.Backend)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
