package batch

import (
	"math"
	"sort"
	"time"
)

// Format identifies a conversion output format.
type Format string

const (
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
	// FormatAll requests every format enabled in configuration.
	FormatAll Format = "all"
)

// Priority orders queue items; lower values are processed first.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityNormal Priority = 2
	PriorityLow    Priority = 3
)

// Status represents the lifecycle of a batch run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// QueueItem is one unit of conversion work persisted in the queue.
type QueueItem struct {
	ItemID      string     `json:"item_id"`
	Format      Format     `json:"format"`
	Force       bool       `json:"force"`
	Priority    Priority   `json:"priority"`
	RetryCount  int        `json:"retry_count"`
	RetryAfter  *time.Time `json:"retry_after,omitempty"`
	CreatedTime time.Time  `json:"created_time"`
}

// Eligible reports whether the item may be popped at the given instant.
func (i QueueItem) Eligible(now time.Time) bool {
	return i.RetryAfter == nil || !i.RetryAfter.After(now)
}

// BatchOptions describes the selection criteria for a batch run.
type BatchOptions struct {
	Format        Format   `json:"format,omitempty"`
	Force         bool     `json:"force"`
	Limit         int      `json:"limit,omitempty"`
	Offset        int      `json:"offset,omitempty"`
	AttachmentIDs []string `json:"attachment_ids,omitempty"`
}

// ItemError records one per-item failure for observability.
type ItemError struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

// Progress is the persisted record of a batch run. Counters only ever grow
// within a run; processed always equals successful + failed + skipped.
type Progress struct {
	BatchID    string       `json:"batch_id"`
	Status     Status       `json:"status"`
	Total      int          `json:"total"`
	Processed  int          `json:"processed"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	SpaceSaved int64        `json:"space_saved"`
	StartTime  time.Time    `json:"start_time"`
	EndTime    *time.Time   `json:"end_time,omitempty"`
	Options    BatchOptions `json:"options"`
	Errors     []ItemError  `json:"errors,omitempty"`
}

// Percentage returns completion as a percentage rounded to two decimals.
// A run with zero items reports 0.
func (p *Progress) Percentage() float64 {
	if p == nil || p.Total == 0 {
		return 0
	}
	return math.Round(float64(p.Processed)/float64(p.Total)*10000) / 100
}

// IsTerminal reports whether the run has finished.
func (p *Progress) IsTerminal() bool {
	return p != nil && (p.Status == StatusCompleted || p.Status == StatusCancelled)
}

// RecordError appends a per-item failure, evicting the oldest entry once cap
// entries are retained.
func (p *Progress) RecordError(itemID, message string, cap int) {
	p.Errors = append(p.Errors, ItemError{ItemID: itemID, Error: message})
	if cap > 0 && len(p.Errors) > cap {
		p.Errors = p.Errors[len(p.Errors)-cap:]
	}
}

// sortQueue orders items ascending by (priority, created_time). The sort is
// stable so items sharing both keys keep their resolver order. Retry gates do
// not participate in ordering.
func sortQueue(items []QueueItem) {
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].Priority != items[b].Priority {
			return items[a].Priority < items[b].Priority
		}
		return items[a].CreatedTime.Before(items[b].CreatedTime)
	})
}
