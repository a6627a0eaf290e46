package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"optipress/internal/api"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := cmdCtx.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
			fmt.Fprintln(out, renderStatusLine("Running", runningKind(status), runningMessage(status), colorize))
			fmt.Fprintln(out, renderStatusLine("State database", statusInfo, status.StateDBPath, colorize))
			fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))

			fmt.Fprintln(out, renderSectionHeader("Queue", colorize))
			queueKind := statusInfo
			queueMessage := "idle"
			if status.Queue.IsRunning {
				queueKind = statusOK
				queueMessage = "batch in progress"
			}
			fmt.Fprintln(out, renderStatusLine("Batch", queueKind, queueMessage, colorize))
			fmt.Fprintln(out, renderStatusLine("Queued items", statusInfo, strconv.Itoa(status.Queue.QueueSize), colorize))
			if !status.Queue.NextScheduled.IsZero() {
				fmt.Fprintln(out, renderStatusLine("Next tick", statusInfo,
					status.Queue.NextScheduled.Local().Format("15:04:05"), colorize))
			}

			if len(status.Dependencies) > 0 {
				fmt.Fprintln(out, renderSectionHeader("Encoders", colorize))
				for _, dep := range status.Dependencies {
					fmt.Fprintln(out, renderStatusLine(dep.Name, dependencyKind(dep), dependencyMessage(dep), colorize))
				}
			}
			return nil
		},
	}
}

func runningKind(status api.DaemonStatus) statusKind {
	if status.Running {
		return statusOK
	}
	return statusWarn
}

func runningMessage(status api.DaemonStatus) string {
	if status.Running {
		return fmt.Sprintf("pid %d", status.PID)
	}
	return "stopped"
}

func dependencyKind(dep api.DependencyStatus) statusKind {
	switch {
	case dep.Available:
		return statusOK
	case dep.Optional:
		return statusInfo
	default:
		return statusError
	}
}

func dependencyMessage(dep api.DependencyStatus) string {
	if dep.Available {
		return dep.Command
	}
	if dep.Detail != "" {
		return dep.Detail
	}
	return "unavailable"
}
