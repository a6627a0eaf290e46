package logging

// Standardized attribute keys shared across components so log lines stay
// machine-filterable.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldItemID    = "item_id"
	FieldFormat    = "format"
	FieldBatchID   = "batch_id"
	FieldErrorHint = "error_hint"
)
