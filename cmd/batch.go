package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/batch"
)

var batchFlags struct {
	projectID   int64
	surveyID    int64
	batchSize   int
	concurrency int
	maxRetries  int
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich every pending client of a project in the foreground",
	Long:  "Processes pending clients in batches. The first interrupt pauses the job at the next batch boundary; a second one cancels it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		env, err := initEnrichment(ctx, cfg, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		opts := batchCommandOptions(cmd)
		opts.OnProgress = logProgress
		opts.OnBatchComplete = logBatch

		if _, err := env.Scheduler.Start(ctx, opts); err != nil {
			return eris.Wrap(err, "start batch")
		}

		sigCh := make(chan os.Signal, 2)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			<-sigCh
			if err := env.Scheduler.Pause(); err == nil {
				zap.L().Info("pausing at next batch boundary, interrupt again to cancel")
				<-sigCh
			}
			_ = env.Scheduler.Cancel()
			cancel()
		}()

		snap := env.Scheduler.Wait()
		zap.L().Info("batch finished",
			zap.String("job_id", snap.ID),
			zap.String("status", string(snap.Status)),
			zap.String("pause_reason", string(snap.PauseReason)),
			zap.Int("total", snap.Total),
			zap.Int("succeeded", snap.Succeeded),
			zap.Int("failed", snap.Failed),
			zap.Int("retries", snap.Retries),
		)
		for _, f := range snap.Failures {
			zap.L().Warn("client failed", zap.Int64("client_id", f.ClientID), zap.String("reason", f.Message))
		}

		if snap.Status == batch.StatusFailed {
			return eris.Errorf("batch job failed: %s", snap.Error)
		}
		return nil
	},
}

// batchCommandOptions merges config defaults with the flags that were set.
func batchCommandOptions(cmd *cobra.Command) batch.Options {
	opts := batchOptions(cfg.Batch)
	opts.Selector.ProjectID = batchFlags.projectID
	if cmd.Flags().Changed("survey") {
		survey := batchFlags.surveyID
		opts.Selector.SurveyID = &survey
	}
	if cmd.Flags().Changed("batch-size") {
		opts.BatchSize = batchFlags.batchSize
	}
	if cmd.Flags().Changed("concurrency") {
		opts.Concurrency = batchFlags.concurrency
	}
	if cmd.Flags().Changed("max-retries") {
		opts.MaxRetries = batchFlags.maxRetries
	}
	return opts
}

func logProgress(p batch.Progress) {
	zap.L().Info("batch progress",
		zap.Int("processed", p.Processed),
		zap.Int("total", p.Total),
		zap.Float64("percent", p.Percent),
		zap.Float64("success_rate", p.SuccessRate),
		zap.Float64("clients_per_min", p.Throughput),
		zap.Duration("eta", p.EstimatedRemaining),
	)
}

func logBatch(r batch.BatchResult) {
	zap.L().Info("batch complete",
		zap.Int("batch", r.Batch),
		zap.Int("of", r.TotalBatches),
		zap.Int("succeeded", r.Succeeded),
		zap.Int("failed", r.Failed),
		zap.Duration("duration", r.Duration),
	)
}

func init() {
	batchCmd.Flags().Int64Var(&batchFlags.projectID, "project", 0, "project id (required)")
	batchCmd.Flags().Int64Var(&batchFlags.surveyID, "survey", 0, "only clients of this survey")
	batchCmd.Flags().IntVar(&batchFlags.batchSize, "batch-size", 50, "clients per batch")
	batchCmd.Flags().IntVar(&batchFlags.concurrency, "concurrency", 5, "clients processed at once (1 = sequential)")
	batchCmd.Flags().IntVar(&batchFlags.maxRetries, "max-retries", 3, "retries per client after the first attempt")
	_ = batchCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(batchCmd)
}
