package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardcast/internal/cache"
)

func newCacheCommand(cmdCtx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the artifact cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(cmdCtx))
	cacheCmd.AddCommand(newCacheClearCommand(cmdCtx))
	return cacheCmd
}

func newCacheStatsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts and disk usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}
			store := cache.NewStore(cfg.Paths.CacheDir, false, logger)
			stats, err := store.Stats()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Directory", cfg.Paths.CacheDir},
				{"Entries", fmt.Sprintf("%d", stats.Entries)},
				{"Size", formatBytes(stats.TotalBytes)},
				{"Disk free", fmt.Sprintf("%s (%.0f%%)", formatBytes(int64(stats.FreeBytes)), stats.FreeRatio*100)},
			}
			if stats.OldestEntry != "" {
				rows = append(rows,
					[]string{"Oldest entry", stats.OldestEntry},
					[]string{"Newest entry", stats.NewestEntry},
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Cache", "Value"}, rows))
			return nil
		},
	}
}

func newCacheClearCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}
			store := cache.NewStore(cfg.Paths.CacheDir, false, logger)
			removed, err := store.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached artifacts from %s\n", removed, cfg.Paths.CacheDir)
			return nil
		},
	}
}
