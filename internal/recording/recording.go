package recording

import "time"

// Status tracks the analysis lifecycle of a recording. Transitions only
// move forward; done and failed are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Recording is a stored user utterance plus the artifacts produced by
// assessing it.
type Recording struct {
	ID             string
	UserID         string
	Name           string
	URL            string
	StorageKey     string
	MimeType       string
	Size           int64
	ReferenceText  string
	Language       string
	Duration       float64
	SpeakingTime   float64
	TranscriptText string
	Transcript     []byte
	Analysis       []byte
	Status         Status
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
