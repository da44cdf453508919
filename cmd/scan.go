package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"filescan/internal/config"
	"filescan/internal/history"
	"filescan/internal/poll"
	"filescan/pkg/domain"

	"github.com/spf13/cobra"
)

// scanCommand constructs the 'scan' subcommand: a one-shot scan of a local
// file from the terminal. The verdict is printed and, when history is
// enabled, recorded like any other finished scan.
func scanCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <file>",
		Short: "Submits a single file for scanning and waits for the verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("could not open file: %w", err)
			}
			defer func() {
				_ = f.Close()
			}()

			stat, err := f.Stat()
			if err != nil {
				return fmt.Errorf("could not stat file: %w", err)
			}

			file := domain.FileInfo{
				Name:         filepath.Base(path),
				Size:         stat.Size(),
				MimeType:     mime.TypeByExtension(filepath.Ext(path)),
				LastModified: stat.ModTime(),
			}

			hist := history.New(nil)
			if cfg.History.Enabled {
				strg, closeStrg := getStorage(ctx, cfg)
				defer closeStrg()
				hist = history.New(strg)
			}

			gateway := getGateway(cfg)

			cmd.Printf("uploading %s (%d bytes)...\n", file.Name, file.Size)
			started := time.Now()
			res, err := gateway.Submit(ctx, file, f)
			if err != nil {
				return fmt.Errorf("could not submit file: %w", err)
			}

			cmd.Printf("analysis %s accepted, waiting for the verdict...\n", res.AnalysisID)
			report, err := poll.New(gateway, cfg.Poll.Interval, cfg.Poll.MaxAttempts).Run(ctx, res.AnalysisID)
			if err != nil {
				return fmt.Errorf("could not finish scan: %w", err)
			}

			recorded := hist.Record(ctx, domain.HistoryItem{
				FileName:            file.Name,
				FileType:            file.MimeType,
				FileSizeBytes:       file.Size,
				ThreatsFound:        report.ThreatsFound,
				Malicious:           report.Malicious,
				Suspicious:          report.Suspicious,
				Clean:               report.Clean,
				EnginesCount:        report.EnginesCount,
				ScanDurationSeconds: int(time.Since(started) / time.Second),
			})

			cmd.Printf("verdict: %s (%d threats, %d/%d engines flagged nothing)\n",
				recorded.Status,
				report.ThreatsFound,
				report.Clean,
				report.EnginesCount)
			if recorded.Status != domain.HistorySafe {
				return fmt.Errorf("threats detected in %s", file.Name)
			}

			return nil
		},
	}

	return cmd
}
