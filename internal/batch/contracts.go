package batch

import (
	"context"
	"time"
)

// ItemRef describes one convertible item known to the resolver. Size feeds the
// priority classifier.
type ItemRef struct {
	ID   string
	Path string
	Size int64
}

// Converter performs one synchronous conversion and reports bytes reclaimed.
type Converter interface {
	Convert(ctx context.Context, sourcePath string, format Format, quality int) (int64, error)
}

// Resolver provides access to the media catalog: candidate listings, path
// resolution, and the existing-output check behind skip logic.
type Resolver interface {
	ListCandidates(ctx context.Context, limit, offset int) ([]ItemRef, error)
	// Resolve returns the concrete source for an item ID; the error wraps
	// ErrSourceMissing when the file no longer exists.
	Resolve(ctx context.Context, itemID string) (ItemRef, error)
	HasConverted(path string, format Format) bool
}

// Trigger registers a recurring callback that drives batch ticks. Deregister
// must be safe to call from inside the callback.
type Trigger interface {
	Register(interval time.Duration, fn func())
	Deregister()
	// Next returns the next scheduled firing, or the zero time when
	// nothing is registered.
	Next() time.Time
}
