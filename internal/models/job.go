package models

// JobStatus is the lifecycle state shared by every persisted job record
// (document workflows and queued scrape jobs alike).
//
// Transitions are monotonic: pending -> processing -> completed | failed.
// There is no transition out of a terminal state and no cancellation path.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal returns true for completed/failed states
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}
