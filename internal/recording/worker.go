package recording

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lingualabs/lingua-core/internal/bus"
	"github.com/lingualabs/lingua-core/internal/config"
	"github.com/lingualabs/lingua-core/internal/protocol"
	"github.com/nats-io/nats.go"
)

// Worker consumes assessment jobs from the queue group and drives the
// manager. Multiple workers across processes share the group; each job
// is delivered to exactly one of them.
type Worker struct {
	manager *Manager
	bus     *bus.Client
	cfg     config.WorkerConfig
	log     *slog.Logger
	sub     *nats.Subscription
	sem     chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewWorker(parent context.Context, manager *Manager, busClient *bus.Client, cfg config.WorkerConfig, log *slog.Logger) *Worker {
	ctx, cancel := context.WithCancel(parent)
	return &Worker{
		manager: manager,
		bus:     busClient,
		cfg:     cfg,
		log:     log.With(slog.String("component", "worker")),
		sem:     make(chan struct{}, cfg.Concurrency),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() error {
	timeout := w.jobTimeout()
	sub, err := w.bus.JetStream().QueueSubscribe(
		protocol.SubjectAssessmentJobs,
		protocol.QueueGroupWorkers,
		w.handle,
		nats.ManualAck(),
		nats.AckWait(timeout+30*time.Second),
		nats.MaxAckPending(w.cfg.Concurrency),
	)
	if err != nil {
		return fmt.Errorf("subscribe assessment jobs: %w", err)
	}
	w.sub = sub
	w.log.Info("assessment worker started",
		slog.Int("concurrency", w.cfg.Concurrency),
		slog.Duration("job_timeout", timeout))
	return nil
}

func (w *Worker) Close() {
	w.cancel()
	if w.sub != nil {
		_ = w.sub.Drain()
	}
	w.wg.Wait()
}

func (w *Worker) Healthy() bool {
	return w.sub != nil && w.sub.IsValid()
}

func (w *Worker) handle(msg *nats.Msg) {
	var job protocol.AssessmentJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		w.log.Warn("failed to decode assessment job", slog.String("error", err.Error()))
		_ = msg.Term()
		return
	}

	select {
	case w.sem <- struct{}{}:
	case <-w.ctx.Done():
		_ = msg.Nak()
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.sem }()

		ctx, cancel := context.WithTimeout(w.ctx, w.jobTimeout())
		defer cancel()

		err := w.manager.Process(ctx, job)
		if err != nil {
			w.log.Warn("assessment job failed",
				slog.String("recording_id", job.RecordingID),
				slog.String("error", err.Error()))
		}
		// The recording row is already settled either way; redelivering
		// the job would hit a terminal row and no-op.
		_ = msg.Ack()

		w.publishResult(job, err)
	}()
}

func (w *Worker) publishResult(job protocol.AssessmentJob, procErr error) {
	result := protocol.AssessmentResult{
		RecordingID: job.RecordingID,
		UserID:      job.UserID,
		Status:      string(StatusDone),
		CompletedAt: time.Now().UTC(),
	}
	if procErr != nil {
		result.Status = string(StatusFailed)
		result.Error = procErr.Error()
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := w.bus.Conn().Publish(protocol.SubjectAssessmentResult, data); err != nil {
		w.log.Warn("failed to publish assessment result",
			slog.String("recording_id", job.RecordingID),
			slog.String("error", err.Error()))
	}
}

func (w *Worker) jobTimeout() time.Duration {
	if w.cfg.JobTimeoutMS <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(w.cfg.JobTimeoutMS) * time.Millisecond
}
