package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/4Lajf/karczma-wrapped/config"
	"github.com/4Lajf/karczma-wrapped/ingest"
	"github.com/4Lajf/karczma-wrapped/scheduler"
	"github.com/4Lajf/karczma-wrapped/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ingestWatch     bool
	ingestSkipFirst bool
	ingestBatchSize int
	ingestWorkers   int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest every unprocessed export file in the input directory",
	Long: `Streams each export file into the database in batches. Files already listed
in processed_files are skipped. With --watch the run repeats on ingest.schedule
until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if ingestBatchSize > 0 {
			cfg.Ingest.BatchSize = config.ClampBatchSize(ingestBatchSize)
		}
		if ingestWorkers > 0 {
			cfg.Ingest.Workers = ingestWorkers
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		reporter, err := utils.NewReporter(cfg.Admin, logger)
		if err != nil {
			return err
		}

		pipeline := ingest.NewPipeline(store, ingest.OptionsFromConfig(cfg.Ingest), logger)
		runOnce := func(ctx context.Context) error {
			summary, err := pipeline.Run(ctx, cfg.InputDir)
			if summary != nil {
				report(reporter, summary)
			}
			return err
		}

		if !ingestWatch {
			return runOnce(ctx)
		}

		sched, err := scheduler.New(ctx, cfg.Ingest.Schedule, runOnce, logger)
		if err != nil {
			return err
		}
		sched.Start(!ingestSkipFirst)
		logger.Info("Watching input directory", zap.String("input_dir", cfg.InputDir), zap.String("schedule", cfg.Ingest.Schedule))

		<-ctx.Done()
		sched.Stop()
		return nil
	},
}

func report(reporter *utils.Reporter, summary *ingest.Summary) {
	if err := summary.Err(); err != nil {
		reporter.Error("ingest", "run "+summary.RunID, summary.String()+"\n"+err.Error())
		return
	}
	if len(summary.Completed) == 0 {
		logger.Info("Nothing new to ingest", zap.String("summary", summary.String()))
		return
	}
	reporter.Info("ingest", "run "+summary.RunID, summary.String())
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "Keep running and re-ingest on ingest.schedule")
	ingestCmd.Flags().BoolVar(&ingestSkipFirst, "skip-initial", false, "With --watch, wait for the first tick instead of running at startup")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 0, "Messages per transaction (overrides ingest.batch_size)")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "Files ingested at once (overrides ingest.workers)")
	rootCmd.AddCommand(ingestCmd)
}
