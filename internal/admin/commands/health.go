package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewHealthCmd creates the health command
func NewHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Health check commands",
		Long:  "Check health of the job store and cache",
	}

	cmd.AddCommand(newHealthCheckCmd())

	return cmd
}

func newHealthCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Perform a health check",
		Long:  "Ping the job store and report its status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, err := initStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			jsonOutput, _ := cmd.Flags().GetBool("json")

			if pingErr := store.Ping(context.Background()); pingErr != nil {
				if jsonOutput {
					fmt.Printf(`{"status": "unhealthy", "store": %q}`+"\n", pingErr.Error())
				} else {
					fmt.Printf("✗ Store unreachable: %v\n", pingErr)
				}
				return pingErr
			}

			if jsonOutput {
				fmt.Println(`{"status": "healthy", "store": "ok"}`)
			} else {
				fmt.Println("✓ Store is healthy")
			}

			return nil
		},
	}
}
