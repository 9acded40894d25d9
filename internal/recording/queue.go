package recording

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lingualabs/lingua-core/internal/bus"
	"github.com/lingualabs/lingua-core/internal/protocol"
	"github.com/nats-io/nats.go"
)

// JobQueue hands accepted recordings to the worker pool. Jobs survive a
// process restart; the stream retains each job until a worker acks it.
type JobQueue interface {
	Enqueue(ctx context.Context, job protocol.AssessmentJob) error
}

// NATSQueue is a JetStream-backed JobQueue.
type NATSQueue struct {
	js  nats.JetStreamContext
	log *slog.Logger
}

// NewNATSQueue ensures the assessment stream exists and returns a queue
// bound to it.
func NewNATSQueue(client *bus.Client, log *slog.Logger) (*NATSQueue, error) {
	js := client.JetStream()
	_, err := js.StreamInfo(protocol.StreamAssessments)
	if err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return nil, fmt.Errorf("inspect stream: %w", err)
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      protocol.StreamAssessments,
			Subjects:  []string{protocol.SubjectAssessmentJobs},
			Retention: nats.WorkQueuePolicy,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			return nil, fmt.Errorf("create stream: %w", err)
		}
		log.Info("created assessment stream", slog.String("stream", protocol.StreamAssessments))
	}
	return &NATSQueue{js: js, log: log}, nil
}

func (q *NATSQueue) Enqueue(ctx context.Context, job protocol.AssessmentJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if _, err := q.js.Publish(protocol.SubjectAssessmentJobs, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	q.log.Debug("enqueued assessment job",
		slog.String("recording_id", job.RecordingID),
		slog.String("user_id", job.UserID))
	return nil
}
