// Package batch implements the bulk image-conversion queue and scheduler.
//
// A batch run is a persisted, priority-ordered queue of conversion items
// drained incrementally by a periodically-triggered tick. Each tick is a
// bounded synchronous pass: it pops eligible items in (priority, created)
// order, invokes the converter, and persists queue and progress together
// after every item so a crash loses at most the in-flight update. Ticks stop
// early once the wall-clock or memory budget is spent; transient failures are
// retried with exponential backoff up to MaxRetryAttempts.
//
// The Processor is the single writer of persisted batch state. Construct one
// per host process and share it between the daemon trigger, the status API,
// and CLI entry points.
package batch
