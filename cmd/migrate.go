package main

import (
	"context"

	"filescan/internal/config"
	"filescan/pkg/logger"

	"github.com/spf13/cobra"
)

// migrateCommand constructs the 'migrate' subcommand that applies database
// migrations to the latest version using goose. Opening the store through
// getStorage already migrates, so this is a bare "create/upgrade the file and
// exit" operation.
func migrateCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrates the history database to the latest version",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			_, closeStrg := getStorage(ctx, cfg)
			defer closeStrg()

			logger.Info(ctx, "history database is up to date")
		},
	}

	return cmd
}
