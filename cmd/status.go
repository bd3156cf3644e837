package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/4Lajf/karczma-wrapped/ingest"
	"github.com/4Lajf/karczma-wrapped/models"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statusJSON bool

type statusReport struct {
	Database string                 `json:"database"`
	Counts   models.TableCounts     `json:"counts"`
	Files    []models.ProcessedFile `json:"processed_files"`
	LastRun  *models.RunStatus      `json:"last_run,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts, processed files and the last run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		report := statusReport{Database: store.Path()}
		if report.Counts, err = store.Counts(ctx); err != nil {
			return err
		}
		if report.Files, err = store.ProcessedFiles(ctx); err != nil {
			return err
		}
		if cfg.Ingest.StatusFile != "" {
			if report.LastRun, err = ingest.ReadStatus(cfg.Ingest.StatusFile); err != nil {
				logger.Debug("No readable status file", zap.Error(err))
			}
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printStatus(report)
		return nil
	},
}

func printStatus(r statusReport) {
	fmt.Printf("Database: %s\n\n", r.Database)
	fmt.Printf("  channels         %s\n", humanize.Comma(r.Counts.Channels))
	fmt.Printf("  users            %s\n", humanize.Comma(r.Counts.Users))
	fmt.Printf("  messages         %s\n", humanize.Comma(r.Counts.Messages))
	fmt.Printf("  mentions         %s\n", humanize.Comma(r.Counts.Mentions))
	fmt.Printf("  reactions        %s\n", humanize.Comma(r.Counts.Reactions))
	fmt.Printf("  processed files  %s\n", humanize.Comma(r.Counts.ProcessedFiles))

	if len(r.Files) > 0 {
		fmt.Println("\nProcessed files:")
		for _, f := range r.Files {
			fmt.Printf("  %-14s %s\n", humanize.Time(f.ProcessedAt), f.Filename)
		}
	}

	if r.LastRun != nil {
		fmt.Printf("\nLast run %s (%s): %d completed, %d skipped, %d failed, %s messages\n",
			r.LastRun.RunID, humanize.Time(r.LastRun.FinishedAt),
			r.LastRun.Completed, r.LastRun.Skipped, r.LastRun.Failed, humanize.Comma(r.LastRun.Messages))
		for _, f := range r.LastRun.Failures {
			fmt.Printf("  FAILED %s after %d batches: %s\n", f.File, f.Batches, f.Error)
		}
	}
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(statusCmd)
}
