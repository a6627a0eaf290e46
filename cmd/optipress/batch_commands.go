package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"optipress/internal/api"
	"optipress/internal/batch"
	"optipress/internal/convert"
	"optipress/internal/kvstore"
	"optipress/internal/library"
	"optipress/internal/logging"
	"optipress/internal/trigger"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Manage bulk conversion batches",
	}

	batchCmd.AddCommand(newBatchStartCommand(ctx))
	batchCmd.AddCommand(newBatchCancelCommand(ctx))
	batchCmd.AddCommand(newBatchRunCommand(ctx))

	return batchCmd
}

func newBatchStartCommand(cmdCtx *commandContext) *cobra.Command {
	var req api.BatchStartRequest

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Queue a new conversion batch on the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := cmdCtx.client().StartBatch(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Batch %s started with %d queued item(s)\n", resp.BatchID, resp.QueueSize)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Format, "format", "", "Target format (webp, avif, or all)")
	cmd.Flags().BoolVar(&req.Force, "force", false, "Reconvert images that already have outputs")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "Maximum number of images to queue (0 = no limit)")
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "Number of candidates to skip")
	cmd.Flags().StringSliceVar(&req.AttachmentIDs, "ids", nil, "Convert only these library paths")
	return cmd
}

func newBatchCancelCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the running batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := cmdCtx.client().CancelBatch(cmd.Context())
			if err != nil {
				return err
			}
			if resp.Cancelled {
				fmt.Fprintln(cmd.OutOrStdout(), "Batch cancelled")
			}
			return nil
		},
	}
}

// newBatchRunCommand converts synchronously in the current process, without
// a daemon. Useful for cron jobs and one-off runs.
func newBatchRunCommand(cmdCtx *commandContext) *cobra.Command {
	var req api.BatchStartRequest

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a conversion batch in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			store, err := kvstore.Open(cfg)
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}
			defer store.Close()

			manual := trigger.NewManual()
			proc := batch.NewProcessor(
				cfg,
				batch.NewStateStore(store),
				library.NewScanner(cfg),
				convert.New(cfg),
				manual,
				logging.NewNop(),
			)

			ctx := cmd.Context()
			if err := proc.StartBatch(ctx, req.Options()); err != nil {
				if errors.Is(err, batch.ErrEmptyQueue) {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to convert")
					return nil
				}
				return err
			}

			if err := drainBatch(ctx, proc); err != nil {
				return err
			}

			progress, err := proc.GetBatchProgress(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderProgress(out, progress, shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Format, "format", "", "Target format (webp, avif, or all)")
	cmd.Flags().BoolVar(&req.Force, "force", false, "Reconvert images that already have outputs")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "Maximum number of images to queue (0 = no limit)")
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "Number of candidates to skip")
	cmd.Flags().StringSliceVar(&req.AttachmentIDs, "ids", nil, "Convert only these library paths")
	return cmd
}

// drainBatch ticks the processor until the batch finishes or the context is
// canceled. Retry gates still apply, so items waiting on backoff are left
// queued for a later run. An interrupt tears the run down fully since no
// daemon survives to resume it.
func drainBatch(ctx context.Context, proc *batch.Processor) error {
	for {
		if err := ctx.Err(); err != nil {
			if cleanupErr := proc.CleanupOnDeactivation(context.Background()); cleanupErr != nil {
				return cleanupErr
			}
			return err
		}

		before, err := proc.GetQueueStatus(ctx)
		if err != nil {
			return err
		}
		if !before.IsRunning || before.QueueSize == 0 {
			return nil
		}

		if err := proc.ProcessBatch(ctx); err != nil {
			return err
		}

		after, err := proc.GetQueueStatus(ctx)
		if err != nil {
			return err
		}
		if !after.IsRunning {
			return nil
		}
		// No forward progress means every remaining item sits behind a
		// retry gate. Leave them for the next invocation.
		if after.QueueSize == before.QueueSize {
			return nil
		}
	}
}
