package main

import (
	"fmt"
	"os"
	"time"

	"filescan/internal/config"
	"filescan/internal/history"

	"github.com/spf13/cobra"
)

// historyCommand constructs the 'history' subcommand tree for inspecting and
// maintaining the recorded scans from the terminal.
func historyCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and maintain the scan history",
	}

	cmd.AddCommand(
		historyListCommand(cfg),
		historyExportCommand(cfg),
		historyClearCommand(cfg),
	)

	return cmd
}

func historyListCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists recorded scans, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			strg, closeStrg := getStorage(ctx, cfg)
			defer closeStrg()

			items := history.New(strg).List(ctx)
			if len(items) == 0 {
				cmd.Println("no scans recorded")

				return nil
			}

			for _, item := range items {
				cmd.Printf("%s  %-10s  %-40s  %d threats  %ds\n",
					item.ScanDate.Local().Format(time.DateTime),
					item.Status,
					item.FileName,
					item.ThreatsFound,
					item.ScanDurationSeconds)
			}

			return nil
		},
	}
}

func historyExportCommand(cfg *config.Config) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Exports the scan history as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			strg, closeStrg := getStorage(ctx, cfg)
			defer closeStrg()

			b, err := history.New(strg).ExportJSON(ctx)
			if err != nil {
				return fmt.Errorf("could not export history: %w", err)
			}

			if out == "" {
				cmd.Println(string(b))

				return nil
			}
			if err := os.WriteFile(out, b, 0o644); err != nil { //nolint: gosec
				return fmt.Errorf("could not write export file: %w", err)
			}
			cmd.Printf("exported to %s\n", out)

			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the export to a file instead of stdout")

	return cmd
}

func historyClearCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Deletes every recorded scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			strg, closeStrg := getStorage(ctx, cfg)
			defer closeStrg()

			if !history.New(strg).Clear(ctx) {
				return fmt.Errorf("could not clear history")
			}
			cmd.Println("history cleared")

			return nil
		},
	}
}
