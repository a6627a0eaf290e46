package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"optipress/internal/logging"
)

// StartBatch resolves the candidate set described by opts, persists a sorted
// queue plus an initial progress record, and registers the recurring tick.
// It fails with ErrAlreadyRunning while a batch is in flight and ErrEmptyQueue
// when nothing matches.
func (p *Processor) StartBatch(ctx context.Context, opts BatchOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if opts.Format != "" && opts.Format != FormatAll && !p.cfg.FormatEnabled(string(opts.Format)) {
		return fmt.Errorf("%w: %q", ErrFormatDisabled, opts.Format)
	}

	progress, err := p.states.LoadProgress(ctx)
	if err != nil {
		return err
	}
	if progress != nil && progress.Status == StatusRunning {
		return ErrAlreadyRunning
	}

	candidates, err := p.resolveCandidates(ctx, opts)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return ErrEmptyQueue
	}

	now := p.now().UTC()
	items := make([]QueueItem, 0, len(candidates))
	for _, ref := range candidates {
		items = append(items, QueueItem{
			ItemID:      ref.ID,
			Format:      normalizeFormat(opts.Format),
			Force:       opts.Force,
			Priority:    classifyPriority(ref),
			CreatedTime: now,
		})
	}
	sortQueue(items)

	progress = &Progress{
		BatchID:   uuid.NewString(),
		Status:    StatusRunning,
		Total:     len(items),
		StartTime: now,
		Options:   opts,
	}

	if err := p.states.SaveState(ctx, items, progress); err != nil {
		return err
	}

	p.trigger.Register(p.tickInterval, p.tick)
	p.logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String(logging.FieldBatchID, progress.BatchID),
		logging.Int("total", progress.Total),
		logging.Bool("force", opts.Force),
	)
	return nil
}

// resolveCandidates applies the explicit-ID path or the filtered listing.
// Explicit IDs are filtered down to the ones the resolver still recognizes.
func (p *Processor) resolveCandidates(ctx context.Context, opts BatchOptions) ([]ItemRef, error) {
	if len(opts.AttachmentIDs) > 0 {
		refs := make([]ItemRef, 0, len(opts.AttachmentIDs))
		for _, id := range opts.AttachmentIDs {
			ref, err := p.resolver.Resolve(ctx, id)
			if err != nil {
				if errors.Is(err, ErrSourceMissing) {
					continue
				}
				return nil, err
			}
			refs = append(refs, ref)
		}
		return refs, nil
	}
	return p.resolver.ListCandidates(ctx, opts.Limit, opts.Offset)
}

func normalizeFormat(format Format) Format {
	if format == "" {
		return FormatAll
	}
	return format
}

// tick is the trigger callback. Errors are logged rather than surfaced; the
// next firing retries naturally.
func (p *Processor) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), p.tickInterval)
	defer cancel()
	if err := p.ProcessBatch(ctx); err != nil {
		p.logger.Error("batch tick failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "tick_failed"),
		)
	}
}
