// Package api defines the JSON payloads exchanged between the daemon's HTTP
// endpoint and its clients, plus a small client used by the CLI.
package api

import "optipress/internal/batch"

// DaemonStatus is the /api/status payload.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StateDBPath  string             `json:"state_db_path"`
	LockFilePath string             `json:"lock_file_path"`
	Queue        batch.QueueStatus  `json:"queue"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus describes availability of an external encoder binary.
type DependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// BatchStartRequest is the /api/batch/start body.
type BatchStartRequest struct {
	Format        string   `json:"format,omitempty"`
	Force         bool     `json:"force,omitempty"`
	Limit         int      `json:"limit,omitempty"`
	Offset        int      `json:"offset,omitempty"`
	AttachmentIDs []string `json:"attachment_ids,omitempty"`
}

// Options converts the request into batch options.
func (r BatchStartRequest) Options() batch.BatchOptions {
	return batch.BatchOptions{
		Format:        batch.Format(r.Format),
		Force:         r.Force,
		Limit:         r.Limit,
		Offset:        r.Offset,
		AttachmentIDs: r.AttachmentIDs,
	}
}

// BatchStartResponse reports the queue built for a new batch.
type BatchStartResponse struct {
	BatchID   string `json:"batch_id"`
	QueueSize int    `json:"queue_size"`
}

// BatchCancelResponse reports cancellation outcome.
type BatchCancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// ProgressResponse wraps the persisted progress record. Progress is null
// when no batch has ever run.
type ProgressResponse struct {
	Progress *batch.Progress `json:"progress"`
}

// CleanupResponse reports one maintenance pass.
type CleanupResponse struct {
	TempFilesDeleted int   `json:"temp_files_deleted"`
	RecordsPruned    int   `json:"records_pruned"`
	OrphansDeleted   int   `json:"orphans_deleted"`
	SpaceReclaimed   int64 `json:"space_reclaimed"`
	Errors           int   `json:"errors"`
}

// ErrorResponse carries an error message for non-2xx statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}
