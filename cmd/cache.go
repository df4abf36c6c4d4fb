package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the durable competitor cache",
}

var cacheOlderThan time.Duration

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete durable cache entries fetched before a cutoff",
	Example: `  feasibility cache purge                  # everything
  feasibility cache purge --older-than 24h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cutoff := purgeCutoff(time.Now(), cacheOlderThan)
		n, err := st.PurgeCacheEntries(ctx, cutoff)
		if err != nil {
			return eris.Wrap(err, "cache purge")
		}

		zap.L().Info("cache purged", zap.Int64("entries", n), zap.Time("fetched_before", cutoff))
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d cache entries\n", n)
		return nil
	},
}

// purgeCutoff returns the fetched-at bound for a purge. A zero age purges
// everything fetched up to now.
func purgeCutoff(now time.Time, olderThan time.Duration) time.Time {
	if olderThan <= 0 {
		return now
	}
	return now.Add(-olderThan)
}

func init() {
	cachePurgeCmd.Flags().DurationVar(&cacheOlderThan, "older-than", 0, "only purge entries older than this age (e.g. 24h)")
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
