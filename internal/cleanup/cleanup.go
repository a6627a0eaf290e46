// Package cleanup reclaims disk space and prunes stale batch state: orphaned
// temp files in the staging directory, error lists on old finished batches,
// and converted outputs whose source image is gone.
package cleanup

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"optipress/internal/batch"
	"optipress/internal/config"
	"optipress/internal/logging"
)

// Result summarizes one cleanup pass.
type Result struct {
	TempFilesDeleted  int
	RecordsPruned     int
	OrphansDeleted    int
	SpaceReclaimed    int64
	Errors            []StepError
}

// StepError pairs a path with the error hit while cleaning it.
type StepError struct {
	Path  string
	Error error
}

// Janitor runs the periodic maintenance pass. It never touches the queue of
// a running batch.
type Janitor struct {
	cfg    *config.Config
	states *batch.StateStore
	logger *slog.Logger
	now    func() time.Time
}

func New(cfg *config.Config, states *batch.StateStore, logger *slog.Logger) *Janitor {
	return &Janitor{
		cfg:    cfg,
		states: states,
		logger: logging.NewComponentLogger(logger, "cleanup"),
		now:    time.Now,
	}
}

// Run executes every cleanup step. Steps are independent; a failing step is
// recorded in the result and the rest still run.
func (j *Janitor) Run(ctx context.Context) (Result, error) {
	var result Result

	j.cleanTempFiles(&result)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if err := j.pruneFinishedRecords(ctx, &result); err != nil {
		return result, err
	}
	j.cleanOrphanedOutputs(ctx, &result)

	j.logger.Info("cleanup pass finished",
		logging.String(logging.FieldEventType, "cleanup_complete"),
		logging.Int("temp_files_deleted", result.TempFilesDeleted),
		logging.Int("records_pruned", result.RecordsPruned),
		logging.Int("orphans_deleted", result.OrphansDeleted),
		logging.Int64("space_reclaimed", result.SpaceReclaimed),
		logging.Int("errors", len(result.Errors)),
	)
	return result, ctx.Err()
}

// cleanTempFiles removes files in the staging directory older than the
// configured age. Interrupted conversions leave their temp output behind;
// anything past the threshold is abandoned.
func (j *Janitor) cleanTempFiles(result *Result) {
	stagingDir := strings.TrimSpace(j.cfg.Paths.StagingDir)
	if stagingDir == "" {
		return
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, StepError{Path: stagingDir, Error: err})
		}
		return
	}

	cutoff := j.now().Add(-time.Duration(j.cfg.Cleanup.TempFileMaxAge) * time.Second)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(stagingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, StepError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, StepError{Path: path, Error: err})
			j.logger.Warn("failed to remove stale temp file",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
			)
			continue
		}
		result.TempFilesDeleted++
		result.SpaceReclaimed += info.Size()
		j.logger.Info("removed stale temp file",
			logging.String("path", path),
			logging.Duration("age", j.now().Sub(info.ModTime())),
			logging.String(logging.FieldEventType, "temp_file_removed"),
		)
	}
}

// pruneFinishedRecords drops the error list from finished batches past the
// retention window. The counters stay so status queries keep reporting the
// last run.
func (j *Janitor) pruneFinishedRecords(ctx context.Context, result *Result) error {
	progress, err := j.states.LoadProgress(ctx)
	if err != nil {
		return err
	}
	if progress == nil || !progress.IsTerminal() || len(progress.Errors) == 0 {
		return nil
	}
	if progress.EndTime == nil {
		return nil
	}

	retention := time.Duration(j.cfg.Cleanup.FailedRecordDays) * 24 * time.Hour
	if j.now().Sub(*progress.EndTime) < retention {
		return nil
	}

	progress.Errors = nil
	if err := j.states.SaveProgress(ctx, progress); err != nil {
		return err
	}
	result.RecordsPruned++
	j.logger.Info("pruned error log from finished batch",
		logging.String(logging.FieldBatchID, progress.BatchID),
		logging.String(logging.FieldEventType, "record_pruned"),
	)
	return nil
}

// cleanOrphanedOutputs deletes converted outputs whose source image no
// longer exists. Output files live next to their source with the format
// appended, so stripping the extension recovers the source path.
func (j *Janitor) cleanOrphanedOutputs(ctx context.Context, result *Result) {
	root := strings.TrimSpace(j.cfg.Paths.LibraryDir)
	if root == "" {
		return
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".webp" && ext != ".avif" {
			return nil
		}
		source := strings.TrimSuffix(path, ext)
		if filepath.Ext(source) == "" {
			// Not one of ours: the converter always keeps the source
			// extension in the output name.
			return nil
		}
		if _, statErr := os.Stat(source); statErr == nil {
			return nil
		} else if !os.IsNotExist(statErr) {
			result.Errors = append(result.Errors, StepError{Path: source, Error: statErr})
			return nil
		}

		info, infoErr := d.Info()
		if removeErr := os.Remove(path); removeErr != nil {
			result.Errors = append(result.Errors, StepError{Path: path, Error: removeErr})
			return nil
		}
		result.OrphansDeleted++
		if infoErr == nil {
			result.SpaceReclaimed += info.Size()
		}
		j.logger.Info("removed orphaned output",
			logging.String("path", path),
			logging.String(logging.FieldEventType, "orphan_removed"),
		)
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) && ctx.Err() == nil {
		result.Errors = append(result.Errors, StepError{Path: root, Error: walkErr})
	}
}
