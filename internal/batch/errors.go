package batch

import "errors"

// Control errors surfaced to callers of StartBatch/CancelBatch. These are
// never retried.
var (
	ErrAlreadyRunning = errors.New("batch already running")
	ErrEmptyQueue     = errors.New("no convertible items matched the batch options")
)

// Per-item error markers. Converters and resolvers tag failures with one of
// these so the retry policy can classify them.
var (
	// ErrSourceMissing marks a permanently failed item whose source file is gone.
	ErrSourceMissing = errors.New("source file missing")
	// ErrFormatDisabled marks an item requesting a format not enabled in config.
	ErrFormatDisabled = errors.New("format disabled")
	// ErrConfiguration marks an unusable converter setup, e.g. a missing binary.
	ErrConfiguration = errors.New("configuration error")
	// ErrConversion marks a transient conversion failure.
	ErrConversion = errors.New("conversion failed")
	// ErrTimeout marks a conversion that exceeded its deadline.
	ErrTimeout = errors.New("conversion timed out")
)

// isPermanent reports whether an item error must not be retried. Unknown
// errors are treated as transient; they stay bounded by the attempt cap.
func isPermanent(err error) bool {
	return errors.Is(err, ErrSourceMissing) ||
		errors.Is(err, ErrFormatDisabled) ||
		errors.Is(err, ErrConfiguration)
}
