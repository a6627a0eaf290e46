package batch

import (
	"context"
	"time"

	"optipress/internal/logging"
)

// QueueStatus aggregates queue and run state for status surfaces.
type QueueStatus struct {
	QueueSize     int       `json:"queue_size"`
	IsRunning     bool      `json:"is_running"`
	Progress      *Progress `json:"progress,omitempty"`
	NextScheduled time.Time `json:"next_scheduled,omitzero"`
}

// IsBatchRunning reports whether a batch run is in flight.
func (p *Processor) IsBatchRunning(ctx context.Context) (bool, error) {
	progress, err := p.states.LoadProgress(ctx)
	if err != nil {
		return false, err
	}
	return progress != nil && progress.Status == StatusRunning, nil
}

// GetBatchProgress returns the latest progress record, or nil when no batch
// has ever been started.
func (p *Processor) GetBatchProgress(ctx context.Context) (*Progress, error) {
	return p.states.LoadProgress(ctx)
}

// GetQueueStatus returns queue size, run state, progress, and the next
// scheduled tick.
func (p *Processor) GetQueueStatus(ctx context.Context) (QueueStatus, error) {
	queue, err := p.states.LoadQueue(ctx)
	if err != nil {
		return QueueStatus{}, err
	}
	progress, err := p.states.LoadProgress(ctx)
	if err != nil {
		return QueueStatus{}, err
	}
	return QueueStatus{
		QueueSize:     len(queue),
		IsRunning:     progress != nil && progress.Status == StatusRunning,
		Progress:      progress,
		NextScheduled: p.trigger.Next(),
	}, nil
}

// CancelBatch stops the current run: terminal state, queue cleared, trigger
// deregistered. The call is deliberately idempotent and reports true even
// when nothing was running; CLI and API callers treat cancel as "ensure
// stopped".
func (p *Processor) CancelBatch(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	progress, err := p.states.LoadProgress(ctx)
	if err != nil {
		return false, err
	}

	if progress != nil && progress.Status == StatusRunning {
		now := p.now().UTC()
		progress.Status = StatusCancelled
		progress.EndTime = &now
		if err := p.states.ClearQueue(ctx, progress); err != nil {
			return false, err
		}
		p.logger.Info("batch cancelled",
			logging.String(logging.FieldEventType, "batch_cancelled"),
			logging.String(logging.FieldBatchID, progress.BatchID),
			logging.Int("processed", progress.Processed),
		)
	} else if err := p.states.ClearQueue(ctx, nil); err != nil {
		return false, err
	}

	p.trigger.Deregister()
	return true, nil
}

// Resume re-registers the recurring tick when persisted state shows a run in
// flight, so a daemon restart picks up where the previous process stopped.
func (p *Processor) Resume(ctx context.Context) error {
	running, err := p.IsBatchRunning(ctx)
	if err != nil {
		return err
	}
	if !running {
		return nil
	}
	p.trigger.Register(p.tickInterval, p.tick)
	p.logger.Info("resuming interrupted batch",
		logging.String(logging.FieldEventType, "batch_resume"))
	return nil
}

// CleanupOnDeactivation cancels any active run and releases the trigger.
// Invoked by the host on shutdown.
func (p *Processor) CleanupOnDeactivation(ctx context.Context) error {
	if _, err := p.CancelBatch(ctx); err != nil {
		return err
	}
	p.trigger.Deregister()
	return nil
}
