package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Verification cache management commands",
		Long:  "Inspect and manage the citation verification cache",
	}

	cmd.AddCommand(newCacheClearUnverifiedCmd())

	return cmd
}

func newCacheClearUnverifiedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-unverified",
		Short: "Clear unverified cache entries",
		Long:  "Drop every unverified citation result from the cache, leaving verified entries untouched",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			vc, err := initCache(cfg)
			if err != nil {
				return err
			}

			cleared, err := vc.ClearUnverified(context.Background())
			if err != nil {
				return fmt.Errorf("failed to clear unverified entries: %w", err)
			}

			fmt.Printf("Cleared %d unverified cache entries\n", cleared)
			return nil
		},
	}
}
