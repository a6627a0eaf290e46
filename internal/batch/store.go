package batch

import (
	"context"
	"encoding/json"
	"fmt"

	"optipress/internal/kvstore"
)

// Logical keys in the state database.
const (
	queueKey    = "batch:queue"
	progressKey = "batch:progress"
)

// StateStore persists the queue and progress record. Queue and progress
// updates that belong to one item are written in a single transaction so a
// crash cannot separate them.
type StateStore struct {
	kv *kvstore.Store
}

// NewStateStore wraps a key-value store with batch state accessors.
func NewStateStore(kv *kvstore.Store) *StateStore {
	return &StateStore{kv: kv}
}

// LoadQueue returns the persisted queue, or an empty slice when absent.
func (s *StateStore) LoadQueue(ctx context.Context) ([]QueueItem, error) {
	raw, err := s.kv.Get(ctx, queueKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var items []QueueItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return items, nil
}

// LoadProgress returns the persisted progress record, or nil when no batch
// has ever been started.
func (s *StateStore) LoadProgress(ctx context.Context) (*Progress, error) {
	raw, err := s.kv.Get(ctx, progressKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	progress := new(Progress)
	if err := json.Unmarshal(raw, progress); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return progress, nil
}

// SaveState persists queue and progress atomically.
func (s *StateStore) SaveState(ctx context.Context, items []QueueItem, progress *Progress) error {
	queueRaw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	progressRaw, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	return s.kv.Update(ctx, func(tx *kvstore.Tx) error {
		if err := tx.Set(queueKey, queueRaw); err != nil {
			return err
		}
		return tx.Set(progressKey, progressRaw)
	})
}

// SaveProgress persists the progress record alone.
func (s *StateStore) SaveProgress(ctx context.Context, progress *Progress) error {
	raw, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	return s.kv.Set(ctx, progressKey, raw)
}

// ClearQueue removes the persisted queue while leaving progress in place,
// optionally writing a final progress record in the same transaction.
func (s *StateStore) ClearQueue(ctx context.Context, progress *Progress) error {
	return s.kv.Update(ctx, func(tx *kvstore.Tx) error {
		if err := tx.Delete(queueKey); err != nil {
			return err
		}
		if progress == nil {
			return nil
		}
		raw, err := json.Marshal(progress)
		if err != nil {
			return fmt.Errorf("encode progress: %w", err)
		}
		return tx.Set(progressKey, raw)
	})
}
