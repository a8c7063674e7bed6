// brokerctl runs one-off maintenance against the escrow database.
//
// Usage (from backend directory, same DB_* env as the server):
//
//	go run ./cmd/brokerctl migrate
//	go run ./cmd/brokerctl seed
//	go run ./cmd/brokerctl backfill-checklists
//	go run ./cmd/brokerctl probe --json
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var connectTimeout time.Duration
	root := &cobra.Command{
		Use:   "brokerctl",
		Short: "Maintenance commands for the brokerage escrow database",
		Long: `brokerctl connects with the same DB_DRIVER / DB_* environment as the API
server and runs a single maintenance task.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(utils.SetUserNameInContext(cmd.Context(), "brokerctl"))
			if config.GetDB() != nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), connectTimeout)
			defer cancel()
			if err := config.ConnectDatabaseWithRetry(ctx); err != nil {
				return fmt.Errorf("connecting to database (driver=%s): %w", config.DatabaseDriver(), err)
			}
			return nil
		},
	}
	root.PersistentFlags().DurationVar(&connectTimeout, "connect-timeout", time.Minute, "give up connecting to the database after this long")
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newBackfillChecklistsCmd(), newProbeCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
