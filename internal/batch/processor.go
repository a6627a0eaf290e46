package batch

import (
	"log/slog"
	"sync"
	"time"

	"optipress/internal/config"
	"optipress/internal/logging"
)

// Processor owns the batch lifecycle: building queues, draining them tick by
// tick, and reporting progress. One instance serializes all mutations of the
// persisted state.
type Processor struct {
	cfg       *config.Config
	states    *StateStore
	resolver  Resolver
	converter Converter
	trigger   Trigger
	logger    *slog.Logger

	retry        retryPolicy
	tickInterval time.Duration
	timeBudget   time.Duration
	memoryLimit  uint64
	errorLogCap  int

	now func() time.Time

	// mu serializes StartBatch, ProcessBatch, and CancelBatch. Ticks are
	// single-threaded by design; the lock only guards against concurrent
	// control calls arriving over the API while a tick runs.
	mu sync.Mutex
}

// Option configures optional Processor behavior.
type Option func(*Processor)

// WithClock injects a time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProcessor constructs a batch processor.
func NewProcessor(cfg *config.Config, states *StateStore, resolver Resolver, converter Converter, trig Trigger, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		cfg:       cfg,
		states:    states,
		resolver:  resolver,
		converter: converter,
		trigger:   trig,
		logger:    logging.NewComponentLogger(logger, "batch"),
		retry: retryPolicy{
			base: time.Duration(cfg.Batch.RetryBaseSeconds) * time.Second,
			max:  time.Duration(cfg.Batch.RetryMaxSeconds) * time.Second,
		},
		tickInterval: time.Duration(cfg.Batch.TickInterval) * time.Second,
		timeBudget:   time.Duration(cfg.Batch.TimeBudgetSeconds) * time.Second,
		memoryLimit:  resolveMemoryLimit(cfg.Batch.MemoryLimitMiB),
		errorLogCap:  cfg.Batch.ErrorLogCap,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// resolveMemoryLimit converts the configured limit to bytes. 0 disables the
// check; -1 derives the ceiling from total system memory.
func resolveMemoryLimit(limitMiB int) uint64 {
	switch {
	case limitMiB == 0:
		return 0
	case limitMiB < 0:
		return systemMemoryBytes()
	default:
		return uint64(limitMiB) * 1024 * 1024
	}
}

func (p *Processor) qualityFor(format Format) int {
	if format == FormatAVIF {
		return p.cfg.Conversion.AVIFQuality
	}
	return p.cfg.Conversion.WebPQuality
}

// enabledFormats expands an item's requested format against configuration.
// FormatAll maps to every enabled format; a specific request is returned
// as-is so the executor can surface ErrFormatDisabled when it is not enabled.
func (p *Processor) enabledFormats(requested Format) []Format {
	if requested == "" || requested == FormatAll {
		formats := make([]Format, 0, len(p.cfg.Conversion.Formats))
		for _, name := range p.cfg.Conversion.Formats {
			formats = append(formats, Format(name))
		}
		return formats
	}
	return []Format{requested}
}
