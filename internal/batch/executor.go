package batch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"optipress/internal/logging"
)

// ProcessBatch runs one tick: it pops eligible items in priority order, feeds
// them to the converter, and persists queue and progress after every item.
// The tick exits early once the wall-clock or memory budget is exhausted; the
// in-flight conversion always completes first. It is a no-op unless a batch
// is running.
func (p *Processor) ProcessBatch(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	progress, err := p.states.LoadProgress(ctx)
	if err != nil {
		return err
	}
	if progress == nil || progress.Status != StatusRunning {
		return nil
	}

	queue, err := p.states.LoadQueue(ctx)
	if err != nil {
		return err
	}

	tickStart := p.now()
	for p.canContinueProcessing(tickStart) {
		idx, ok := popEligible(queue, p.now().UTC())
		if !ok {
			break
		}
		item := queue[idx]
		queue = append(queue[:idx], queue[idx+1:]...)

		queue = p.processItem(ctx, queue, progress, item)
		if err := p.states.SaveState(ctx, queue, progress); err != nil {
			return err
		}
	}

	if len(queue) == 0 {
		now := p.now().UTC()
		progress.Status = StatusCompleted
		progress.EndTime = &now
		if err := p.states.SaveState(ctx, queue, progress); err != nil {
			return err
		}
		p.trigger.Deregister()
		p.logger.Info("batch completed",
			logging.String(logging.FieldEventType, "batch_complete"),
			logging.String(logging.FieldBatchID, progress.BatchID),
			logging.Int("successful", progress.Successful),
			logging.Int("failed", progress.Failed),
			logging.Int("skipped", progress.Skipped),
			logging.Int64("space_saved", progress.SpaceSaved),
			logging.Duration("elapsed", now.Sub(progress.StartTime)),
		)
	}
	return nil
}

// processItem converts one item and applies the outcome to queue and
// progress. It returns the (possibly re-grown) queue: a transiently failed
// item is pushed back with its retry gate set.
func (p *Processor) processItem(ctx context.Context, queue []QueueItem, progress *Progress, item QueueItem) []QueueItem {
	itemLogger := p.logger.With(logging.String(logging.FieldItemID, item.ItemID))

	ref, err := p.resolver.Resolve(ctx, item.ItemID)
	if err != nil {
		progress.Processed++
		progress.Failed++
		progress.RecordError(item.ItemID, err.Error(), p.errorLogCap)
		itemLogger.Warn("item source unavailable", logging.Error(err),
			logging.String(logging.FieldEventType, "item_failed"))
		return queue
	}

	formats := p.enabledFormats(item.Format)
	if !item.Force {
		remaining := formats[:0]
		for _, format := range formats {
			if !p.resolver.HasConverted(ref.Path, format) {
				remaining = append(remaining, format)
			}
		}
		formats = remaining
		if len(formats) == 0 {
			progress.Processed++
			progress.Skipped++
			itemLogger.Debug("item already converted",
				logging.String(logging.FieldEventType, "item_skipped"))
			return queue
		}
	}

	saved, err := p.convertFormats(ctx, ref, formats)
	if err == nil {
		progress.Processed++
		progress.Successful++
		progress.SpaceSaved += saved
		itemLogger.Info("item converted",
			logging.String(logging.FieldEventType, "item_converted"),
			logging.Int64("bytes_saved", saved),
		)
		return queue
	}

	if p.retry.shouldRetryItem(item, err) {
		retryAt := p.now().UTC().Add(p.retry.nextRetryDelay(item))
		item.RetryCount++
		item.RetryAfter = &retryAt
		queue = append(queue, item)
		sortQueue(queue)
		itemLogger.Warn("item retry scheduled", logging.Error(err),
			logging.String(logging.FieldEventType, "item_retry"),
			logging.Int("retry_count", item.RetryCount),
			logging.Duration("retry_in", retryAt.Sub(p.now().UTC())),
		)
		return queue
	}

	progress.Processed++
	progress.Failed++
	progress.RecordError(item.ItemID, err.Error(), p.errorLogCap)
	itemLogger.Error("item failed", logging.Error(err),
		logging.String(logging.FieldEventType, "item_failed"),
		logging.Int("retry_count", item.RetryCount),
	)
	return queue
}

// convertFormats runs the converter for each requested format sequentially,
// accumulating reclaimed bytes. The first failure aborts the remainder so the
// retry covers the whole item.
func (p *Processor) convertFormats(ctx context.Context, ref ItemRef, formats []Format) (int64, error) {
	var saved int64
	for _, format := range formats {
		if !p.cfg.FormatEnabled(string(format)) {
			return saved, fmt.Errorf("%w: %s", ErrFormatDisabled, format)
		}
		bytes, err := p.converter.Convert(ctx, ref.Path, format, p.qualityFor(format))
		if err != nil {
			return saved, err
		}
		saved += bytes
	}
	return saved, nil
}

// popEligible locates the first item whose retry gate has passed. Gated items
// are skipped in place and keep their position for later ticks.
func popEligible(queue []QueueItem, now time.Time) (int, bool) {
	for idx, item := range queue {
		if item.Eligible(now) {
			return idx, true
		}
	}
	return 0, false
}

// canContinueProcessing is the advisory pre-item budget check: the tick stops
// popping new work once the wall-clock budget is spent or memory usage climbs
// past 80% of the configured ceiling. A zero ceiling disables the memory
// check.
func (p *Processor) canContinueProcessing(tickStart time.Time) bool {
	if p.now().Sub(tickStart) >= p.timeBudget {
		return false
	}
	if p.memoryLimit > 0 {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		if stats.Alloc >= p.memoryLimit/100*80 {
			return false
		}
	}
	return true
}
