package batch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"optipress/internal/batch"
	"optipress/internal/testsupport"
)

func TestStartBatchOrdersQueueByPriority(t *testing.T) {
	f := newFixture(t, testsupport.WithFormats("webp"))
	f.resolver.add("photos/large.jpg", 3*1024*1024)
	f.resolver.add("photos/small.jpg", 100*1024)

	f.mustStart(t, batch.BatchOptions{Format: batch.FormatWebP})

	status := f.status(t)
	if status.QueueSize != 2 {
		t.Fatalf("queue size = %d, want 2", status.QueueSize)
	}
	if !status.IsRunning {
		t.Fatal("expected batch to be running")
	}

	f.mustTick(t)

	// The small file is high priority and converts first.
	if len(f.converter.calls) < 1 || f.converter.calls[0] != "/library/photos/small.jpg.webp" {
		t.Fatalf("first conversion = %v, want small.jpg first", f.converter.calls)
	}

	progress := f.progress(t)
	assertConsistent(t, progress)
	if progress.Status != batch.StatusCompleted {
		t.Fatalf("status = %s, want completed", progress.Status)
	}
	if progress.Successful != 2 || progress.Failed != 0 || progress.Skipped != 0 {
		t.Fatalf("counters = %d/%d/%d, want 2 successful", progress.Successful, progress.Failed, progress.Skipped)
	}
	if progress.SpaceSaved != 1000 {
		t.Fatalf("space saved = %d, want 1000", progress.SpaceSaved)
	}
	if progress.EndTime == nil {
		t.Fatal("completed batch must record an end time")
	}
	if f.trigger.Registered() {
		t.Fatal("trigger must be deregistered after completion")
	}
}

func TestStartBatchEmptyLibrary(t *testing.T) {
	f := newFixture(t)

	err := f.proc.StartBatch(context.Background(), batch.BatchOptions{})
	if !errors.Is(err, batch.ErrEmptyQueue) {
		t.Fatalf("err = %v, want ErrEmptyQueue", err)
	}

	// No progress record is created for a batch that never started.
	progress := f.progress(t)
	if progress != nil {
		t.Fatalf("progress = %+v, want nil", progress)
	}
	if f.trigger.Registered() {
		t.Fatal("trigger must not be registered for an empty batch")
	}
}

func TestStartBatchAlreadyRunning(t *testing.T) {
	f := newFixture(t)
	f.resolver.add("a.jpg", 1024)

	f.mustStart(t, batch.BatchOptions{})

	err := f.proc.StartBatch(context.Background(), batch.BatchOptions{})
	if !errors.Is(err, batch.ErrAlreadyRunning) {
		t.Fatalf("err = %v, want ErrAlreadyRunning", err)
	}

	// The running batch is untouched.
	status := f.status(t)
	if status.QueueSize != 1 || !status.IsRunning {
		t.Fatalf("status = %+v, want one queued item still running", status)
	}
}

func TestStartBatchDisabledFormat(t *testing.T) {
	f := newFixture(t, testsupport.WithFormats("webp"))
	f.resolver.add("a.jpg", 1024)

	err := f.proc.StartBatch(context.Background(), batch.BatchOptions{Format: batch.FormatAVIF})
	if !errors.Is(err, batch.ErrFormatDisabled) {
		t.Fatalf("err = %v, want ErrFormatDisabled", err)
	}
}

func TestTransientFailureRetriesThenSucceeds(t *testing.T) {
	f := newFixture(t, testsupport.WithFormats("webp"))
	f.resolver.add("flaky.jpg", 1024)
	f.converter.script("flaky.jpg", batch.ErrConversion, nil)

	f.mustStart(t, batch.BatchOptions{})
	f.mustTick(t)

	// First attempt failed transiently; the item is requeued, not counted.
	progress := f.progress(t)
	assertConsistent(t, progress)
	if progress.Status != batch.StatusRunning {
		t.Fatalf("status = %s, want running while a retry is pending", progress.Status)
	}
	if progress.Processed != 0 {
		t.Fatalf("processed = %d, want 0 before the retry resolves", progress.Processed)
	}

	// The retry gate holds until the backoff elapses.
	f.mustTick(t)
	if got := f.converter.callCount(); got != 1 {
		t.Fatalf("conversion attempts = %d, want 1 while gated", got)
	}

	f.clock.Advance(2 * time.Second)
	f.mustTick(t)

	progress = f.progress(t)
	assertConsistent(t, progress)
	if progress.Status != batch.StatusCompleted {
		t.Fatalf("status = %s, want completed", progress.Status)
	}
	if progress.Successful != 1 || progress.Failed != 0 {
		t.Fatalf("counters = %d successful / %d failed, want 1/0", progress.Successful, progress.Failed)
	}
	if len(progress.Errors) != 0 {
		t.Fatalf("errors = %v, want none after a successful retry", progress.Errors)
	}
}

func TestTransientFailureExhaustsRetries(t *testing.T) {
	f := newFixture(t, testsupport.WithFormats("webp"))
	f.resolver.add("broken.jpg", 1024)
	f.converter.script("broken.jpg",
		batch.ErrConversion, batch.ErrConversion, batch.ErrConversion, batch.ErrConversion)

	f.mustStart(t, batch.BatchOptions{})

	// Original attempt plus three retries, advancing past each backoff gate.
	for i := 0; i < 4; i++ {
		f.mustTick(t)
		f.clock.Advance(time.Minute)
	}

	if got := f.converter.callCount(); got != 4 {
		t.Fatalf("conversion attempts = %d, want 4", got)
	}

	progress := f.progress(t)
	assertConsistent(t, progress)
	if progress.Status != batch.StatusCompleted {
		t.Fatalf("status = %s, want completed", progress.Status)
	}
	if progress.Failed != 1 || progress.Successful != 0 {
		t.Fatalf("counters = %d failed / %d successful, want 1/0", progress.Failed, progress.Successful)
	}
	if len(progress.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one entry", progress.Errors)
	}
}

func TestPermanentFailureDoesNotRetry(t *testing.T) {
	f := newFixture(t, testsupport.WithFormats("webp"))
	f.resolver.add("gone.jpg", 1024)

	f.mustStart(t, batch.BatchOptions{})

	// Source disappears between queueing and processing.
	f.resolver.remove("gone.jpg")
	f.mustTick(t)

	progress := f.progress(t)
	assertConsistent(t, progress)
	if progress.Status != batch.StatusCompleted {
		t.Fatalf("status = %s, want completed", progress.Status)
	}
	if progress.Failed != 1 {
		t.Fatalf("failed = %d, want 1", progress.Failed)
	}
	if got := f.converter.callCount(); got != 0 {
		t.Fatalf("conversion attempts = %d, want 0 for a missing source", got)
	}
}

func TestSkipAlreadyConverted(t *testing.T) {
	f := newFixture(t, testsupport.WithFormats("webp"))
	f.resolver.add("done.jpg", 1024)
	f.resolver.add("fresh.jpg", 1024)
	f.resolver.markConverted("done.jpg", batch.FormatWebP)

	f.mustStart(t, batch.BatchOptions{})
	f.mustTick(t)

	progress := f.progress(t)
	assertConsistent(t, progress)
	if progress.Skipped != 1 || progress.Successful != 1 {
		t.Fatalf("counters = %d skipped / %d successful, want 1/1", progress.Skipped, progress.Successful)
	}
	if got := f.converter.callCount(); got != 1 {
		t.Fatalf("conversion attempts = %d, want 1", got)
	}
}

func TestForceReconvertsExistingOutputs(t *testing.T) {
	f := newFixture(t, testsupport.WithFormats("webp"))
	f.resolver.add("done.jpg", 1024)
	f.resolver.markConverted("done.jpg", batch.FormatWebP)

	f.mustStart(t, batch.BatchOptions{Force: true})
	f.mustTick(t)

	progress := f.progress(t)
	assertConsistent(t, progress)
	if progress.Successful != 1 || progress.Skipped != 0 {
		t.Fatalf("counters = %d successful / %d skipped, want 1/0", progress.Successful, progress.Skipped)
	}
}

func TestCancelBatchIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.resolver.add("a.jpg", 1024)
	f.resolver.add("b.jpg", 1024)

	f.mustStart(t, batch.BatchOptions{})

	cancelled, err := f.proc.CancelBatch(context.Background())
	if err != nil || !cancelled {
		t.Fatalf("CancelBatch = %v, %v; want true, nil", cancelled, err)
	}

	progress := f.progress(t)
	if progress.Status != batch.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", progress.Status)
	}
	if progress.EndTime == nil {
		t.Fatal("cancelled batch must record an end time")
	}
	status := f.status(t)
	if status.QueueSize != 0 {
		t.Fatalf("queue size = %d, want 0 after cancel", status.QueueSize)
	}
	if f.trigger.Registered() {
		t.Fatal("trigger must be deregistered after cancel")
	}

	// A second cancel with nothing running still reports success.
	cancelled, err = f.proc.CancelBatch(context.Background())
	if err != nil || !cancelled {
		t.Fatalf("second CancelBatch = %v, %v; want true, nil", cancelled, err)
	}
}

func TestCleanupOnDeactivation(t *testing.T) {
	f := newFixture(t)
	f.resolver.add("a.jpg", 1024)
	f.resolver.add("b.jpg", 1024)

	f.mustStart(t, batch.BatchOptions{})

	if err := f.proc.CleanupOnDeactivation(context.Background()); err != nil {
		t.Fatalf("CleanupOnDeactivation failed: %v", err)
	}

	progress := f.progress(t)
	if progress.Status != batch.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", progress.Status)
	}
	if progress.EndTime == nil {
		t.Fatal("deactivated batch must record an end time")
	}
	status := f.status(t)
	if status.QueueSize != 0 {
		t.Fatalf("queue size = %d, want 0 after deactivation", status.QueueSize)
	}
	if f.trigger.Registered() {
		t.Fatal("trigger must be deregistered after deactivation")
	}

	// Deactivating an idle processor is a no-op.
	if err := f.proc.CleanupOnDeactivation(context.Background()); err != nil {
		t.Fatalf("idle CleanupOnDeactivation failed: %v", err)
	}
}

func TestProcessBatchWithoutRunningBatch(t *testing.T) {
	f := newFixture(t)

	if err := f.proc.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch on idle state failed: %v", err)
	}
	if got := f.converter.callCount(); got != 0 {
		t.Fatalf("conversion attempts = %d, want 0", got)
	}
}

func TestTimeBudgetLeavesQueueRemainder(t *testing.T) {
	// Test config uses a one second budget per tick; each conversion
	// advances the fake clock well past it.
	f := newFixture(t, testsupport.WithFormats("webp"))
	f.converter.clock = f.clock
	f.converter.advance = 2 * time.Second
	f.resolver.add("a.jpg", 1024)
	f.resolver.add("b.jpg", 1024)
	f.resolver.add("c.jpg", 1024)

	f.mustStart(t, batch.BatchOptions{})
	f.mustTick(t)

	progress := f.progress(t)
	assertConsistent(t, progress)
	if progress.Status != batch.StatusRunning {
		t.Fatalf("status = %s, want running with work remaining", progress.Status)
	}
	if progress.Processed != 1 {
		t.Fatalf("processed = %d, want 1 per budgeted tick", progress.Processed)
	}
	status := f.status(t)
	if status.QueueSize != 2 {
		t.Fatalf("queue size = %d, want 2 remaining", status.QueueSize)
	}
	if !f.trigger.Registered() {
		t.Fatal("trigger must stay registered while work remains")
	}

	// Later ticks drain the remainder one item at a time.
	f.mustTick(t)
	f.mustTick(t)

	progress = f.progress(t)
	assertConsistent(t, progress)
	if progress.Status != batch.StatusCompleted || progress.Successful != 3 {
		t.Fatalf("status = %s with %d successful, want completed with 3", progress.Status, progress.Successful)
	}
}

func TestResumeReregistersInterruptedBatch(t *testing.T) {
	f := newFixture(t)
	f.resolver.add("a.jpg", 1024)

	f.mustStart(t, batch.BatchOptions{})

	// Simulate a daemon restart: the trigger is gone but state persists.
	f.trigger.Deregister()
	if f.trigger.Registered() {
		t.Fatal("precondition: trigger deregistered")
	}

	if err := f.proc.Resume(context.Background()); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if !f.trigger.Registered() {
		t.Fatal("Resume must re-register the trigger for a running batch")
	}

	f.mustTick(t)
	progress := f.progress(t)
	if progress.Status != batch.StatusCompleted {
		t.Fatalf("status = %s, want completed after resume", progress.Status)
	}
}

func TestResumeWithoutRunningBatchIsNoOp(t *testing.T) {
	f := newFixture(t)

	if err := f.proc.Resume(context.Background()); err != nil {
		t.Fatalf("Resume on empty state failed: %v", err)
	}
	if f.trigger.Registered() {
		t.Fatal("Resume must not register a trigger without a running batch")
	}
}

func TestBatchOptionsLimitAndOffset(t *testing.T) {
	f := newFixture(t, testsupport.WithFormats("webp"))
	for _, id := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"} {
		f.resolver.add(id, 1024)
	}

	f.mustStart(t, batch.BatchOptions{Limit: 2, Offset: 1})

	status := f.status(t)
	if status.QueueSize != 2 {
		t.Fatalf("queue size = %d, want 2 with limit applied", status.QueueSize)
	}

	f.mustTick(t)
	progress := f.progress(t)
	assertConsistent(t, progress)
	if progress.Total != 2 || progress.Successful != 2 {
		t.Fatalf("total = %d successful = %d, want 2/2", progress.Total, progress.Successful)
	}
}

func TestBatchOptionsExplicitAttachmentIDs(t *testing.T) {
	f := newFixture(t, testsupport.WithFormats("webp"))
	f.resolver.add("keep.jpg", 1024)
	f.resolver.add("other.jpg", 1024)

	f.mustStart(t, batch.BatchOptions{AttachmentIDs: []string{"keep.jpg", "missing.jpg"}})

	// Unresolvable IDs are filtered at queue-build time.
	status := f.status(t)
	if status.QueueSize != 1 {
		t.Fatalf("queue size = %d, want 1", status.QueueSize)
	}

	f.mustTick(t)
	progress := f.progress(t)
	assertConsistent(t, progress)
	if progress.Successful != 1 {
		t.Fatalf("successful = %d, want 1", progress.Successful)
	}
	if f.converter.calls[0] != "/library/keep.jpg.webp" {
		t.Fatalf("converted %v, want keep.jpg only", f.converter.calls)
	}
}

func TestBothFormatsConvertedPerItem(t *testing.T) {
	f := newFixture(t, testsupport.WithFormats("webp", "avif"))
	f.resolver.add("a.jpg", 1024)

	f.mustStart(t, batch.BatchOptions{Format: batch.FormatAll})
	f.mustTick(t)

	if got := f.converter.callCount(); got != 2 {
		t.Fatalf("conversion attempts = %d, want one per format", got)
	}
	progress := f.progress(t)
	assertConsistent(t, progress)
	if progress.Successful != 1 {
		t.Fatalf("successful = %d, want 1 (item-level count)", progress.Successful)
	}
	if progress.SpaceSaved != 1000 {
		t.Fatalf("space saved = %d, want combined 1000", progress.SpaceSaved)
	}
}

func TestProgressSurvivesReopen(t *testing.T) {
	f := newFixture(t, testsupport.WithFormats("webp"))
	f.resolver.add("a.jpg", 1024)

	f.mustStart(t, batch.BatchOptions{})
	f.mustTick(t)

	// A second processor over the same store sees the completed batch.
	other := batch.NewProcessor(
		f.cfg,
		batch.NewStateStore(f.store),
		f.resolver,
		f.converter,
		f.trigger,
		nil,
	)
	progress, err := other.GetBatchProgress(context.Background())
	if err != nil {
		t.Fatalf("GetBatchProgress failed: %v", err)
	}
	if progress == nil || progress.Status != batch.StatusCompleted {
		t.Fatalf("progress = %+v, want persisted completed batch", progress)
	}
}
