package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"optipress/internal/batch"
)

func newProgressCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show progress of the current or last batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := cmdCtx.client().Progress(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderProgress(out, resp.Progress, shouldColorize(out))
			return nil
		},
	}
}

func renderProgress(w io.Writer, progress *batch.Progress, colorize bool) {
	if progress == nil {
		fmt.Fprintln(w, "No batch has run yet")
		return
	}

	fmt.Fprintln(w, renderSectionHeader("Batch "+progress.BatchID, colorize))
	fmt.Fprintln(w, renderStatusLine("Status", progressStatusKind(progress.Status), string(progress.Status), colorize))
	fmt.Fprintln(w, renderStatusLine("Progress", statusInfo,
		fmt.Sprintf("%d/%d (%.2f%%)", progress.Processed, progress.Total, progress.Percentage()), colorize))

	rows := [][2]string{
		{"Successful", strconv.Itoa(progress.Successful)},
		{"Failed", strconv.Itoa(progress.Failed)},
		{"Skipped", strconv.Itoa(progress.Skipped)},
		{"Space saved", humanize.IBytes(uint64(max(progress.SpaceSaved, 0)))},
	}
	fmt.Fprintln(w, renderPairs("Metric", "Value", rows, true))

	if len(progress.Errors) > 0 {
		errorRows := make([][2]string, 0, len(progress.Errors))
		for _, itemErr := range progress.Errors {
			errorRows = append(errorRows, [2]string{itemErr.ItemID, itemErr.Error})
		}
		fmt.Fprintln(w, renderPairs("Item", "Error", errorRows, false))
	}
}

func progressStatusKind(status batch.Status) statusKind {
	switch status {
	case batch.StatusCompleted:
		return statusOK
	case batch.StatusCancelled:
		return statusWarn
	case batch.StatusRunning:
		return statusInfo
	default:
		return statusInfo
	}
}
