package protocol

import "time"

// AssessmentJob is the unit of work published to the queue when a
// recording is accepted for analysis.
type AssessmentJob struct {
	RecordingID   string    `json:"recording_id"`
	UserID        string    `json:"user_id"`
	StorageKey    string    `json:"storage_key"`
	MimeType      string    `json:"mime_type"`
	ReferenceText string    `json:"reference_text,omitempty"`
	Language      string    `json:"language,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// AssessmentResult summarizes the outcome of a processed job, broadcast
// for any interested subscribers.
type AssessmentResult struct {
	RecordingID string    `json:"recording_id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

const (
	StreamAssessments = "ASSESSMENTS"

	SubjectAssessmentJobs   = "assessment.jobs"
	SubjectAssessmentResult = "assessment.result"

	QueueGroupWorkers = "lingua-workers"
)
