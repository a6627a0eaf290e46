package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"optipress/internal/batch"
	"optipress/internal/cleanup"
	"optipress/internal/kvstore"
	"optipress/internal/logging"
)

func newCleanupCommand(cmdCtx *commandContext) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale temp files, orphaned outputs, and old error logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if !local {
				resp, err := cmdCtx.client().RunCleanup(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d temp file(s), %d orphan(s); pruned %d record(s); reclaimed %s\n",
					resp.TempFilesDeleted, resp.OrphansDeleted, resp.RecordsPruned,
					humanize.IBytes(uint64(max(resp.SpaceReclaimed, 0))))
				if resp.Errors > 0 {
					fmt.Fprintf(out, "%d path(s) could not be cleaned; see daemon logs\n", resp.Errors)
				}
				return nil
			}

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

			result, err := cleanup.New(cfg, batch.NewStateStore(store), logging.NewNop()).Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d temp file(s), %d orphan(s); pruned %d record(s); reclaimed %s\n",
				result.TempFilesDeleted, result.OrphansDeleted, result.RecordsPruned,
				humanize.IBytes(uint64(max(result.SpaceReclaimed, 0))))
			for _, stepErr := range result.Errors {
				fmt.Fprintf(out, "  failed: %s: %v\n", stepErr.Path, stepErr.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Run in this process instead of asking the daemon")
	return cmd
}
