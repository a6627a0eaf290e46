package batch_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"optipress/internal/batch"
	"optipress/internal/config"
	"optipress/internal/kvstore"
	"optipress/internal/logging"
	"optipress/internal/testsupport"
	"optipress/internal/trigger"
)

// fakeClock is a manually advanced time source shared with the processor.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeResolver serves a fixed candidate set from memory.
type fakeResolver struct {
	mu        sync.Mutex
	refs      map[string]batch.ItemRef
	order     []string
	converted map[string]bool
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		refs:      make(map[string]batch.ItemRef),
		converted: make(map[string]bool),
	}
}

func (r *fakeResolver) add(id string, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[id] = batch.ItemRef{ID: id, Path: "/library/" + id, Size: size}
	r.order = append(r.order, id)
}

func (r *fakeResolver) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.refs, id)
}

func (r *fakeResolver) markConverted(id string, format batch.Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converted["/library/"+id+"."+string(format)] = true
}

func (r *fakeResolver) ListCandidates(_ context.Context, limit, offset int) ([]batch.ItemRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var refs []batch.ItemRef
	for _, id := range r.order {
		if ref, ok := r.refs[id]; ok {
			refs = append(refs, ref)
		}
	}
	if offset > 0 {
		if offset >= len(refs) {
			return nil, nil
		}
		refs = refs[offset:]
	}
	if limit > 0 && limit < len(refs) {
		refs = refs[:limit]
	}
	return refs, nil
}

func (r *fakeResolver) Resolve(_ context.Context, itemID string) (batch.ItemRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.refs[itemID]
	if !ok {
		return batch.ItemRef{}, fmt.Errorf("%w: %s", batch.ErrSourceMissing, itemID)
	}
	return ref, nil
}

func (r *fakeResolver) HasConverted(path string, format batch.Format) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.converted[path+"."+string(format)]
}

// fakeConverter replays scripted per-path outcomes; paths without a script
// always succeed.
type fakeConverter struct {
	mu      sync.Mutex
	saved   int64
	scripts map[string][]error
	calls   []string
	clock   *fakeClock
	advance time.Duration
}

func newFakeConverter(saved int64) *fakeConverter {
	return &fakeConverter{saved: saved, scripts: make(map[string][]error)}
}

func (c *fakeConverter) script(id string, outcomes ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts["/library/"+id] = outcomes
}

func (c *fakeConverter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *fakeConverter) Convert(_ context.Context, sourcePath string, format batch.Format, _ int) (int64, error) {
	c.mu.Lock()
	c.calls = append(c.calls, sourcePath+"."+string(format))
	var err error
	if queue := c.scripts[sourcePath]; len(queue) > 0 {
		err = queue[0]
		c.scripts[sourcePath] = queue[1:]
	}
	clock, advance := c.clock, c.advance
	c.mu.Unlock()

	if clock != nil && advance > 0 {
		clock.Advance(advance)
	}
	if err != nil {
		return 0, err
	}
	return c.saved, nil
}

type fixture struct {
	cfg       *config.Config
	store     *kvstore.Store
	resolver  *fakeResolver
	converter *fakeConverter
	trigger   *trigger.Manual
	clock     *fakeClock
	proc      *batch.Processor
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	f := &fixture{
		cfg:       cfg,
		store:     store,
		resolver:  newFakeResolver(),
		converter: newFakeConverter(500),
		trigger:   trigger.NewManual(),
		clock:     newFakeClock(),
	}
	f.proc = batch.NewProcessor(
		cfg,
		batch.NewStateStore(store),
		f.resolver,
		f.converter,
		f.trigger,
		logging.NewNop(),
		batch.WithClock(f.clock.Now),
	)
	return f
}

func (f *fixture) mustStart(t *testing.T, opts batch.BatchOptions) {
	t.Helper()
	if err := f.proc.StartBatch(context.Background(), opts); err != nil {
		t.Fatalf("StartBatch failed: %v", err)
	}
}

func (f *fixture) mustTick(t *testing.T) {
	t.Helper()
	if err := f.proc.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
}

func (f *fixture) progress(t *testing.T) *batch.Progress {
	t.Helper()
	progress, err := f.proc.GetBatchProgress(context.Background())
	if err != nil {
		t.Fatalf("GetBatchProgress failed: %v", err)
	}
	return progress
}

func (f *fixture) status(t *testing.T) batch.QueueStatus {
	t.Helper()
	status, err := f.proc.GetQueueStatus(context.Background())
	if err != nil {
		t.Fatalf("GetQueueStatus failed: %v", err)
	}
	return status
}

func assertConsistent(t *testing.T, p *batch.Progress) {
	t.Helper()
	if p == nil {
		t.Fatal("expected progress record")
	}
	if p.Processed != p.Successful+p.Failed+p.Skipped {
		t.Fatalf("progress inconsistent: processed=%d successful=%d failed=%d skipped=%d",
			p.Processed, p.Successful, p.Failed, p.Skipped)
	}
	if p.Processed > p.Total {
		t.Fatalf("processed %d exceeds total %d", p.Processed, p.Total)
	}
}
