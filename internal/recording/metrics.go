package recording

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// pipelineMetrics exposes the assessment pipeline through the global meter
// provider. Instrument creation failures leave the corresponding field nil
// and the recorders become no-ops.
type pipelineMetrics struct {
	submissions metric.Int64Counter
	jobs        metric.Int64Counter
	jobSeconds  metric.Float64Histogram
}

func newPipelineMetrics() *pipelineMetrics {
	meter := otel.Meter("github.com/lingualabs/lingua-core/recording")
	m := &pipelineMetrics{}
	m.submissions, _ = meter.Int64Counter("lingua.recordings.submitted",
		metric.WithDescription("Recordings accepted for assessment"))
	m.jobs, _ = meter.Int64Counter("lingua.assessment.jobs",
		metric.WithDescription("Assessment jobs settled, by terminal status"))
	m.jobSeconds, _ = meter.Float64Histogram("lingua.assessment.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall-clock time from job pickup to settlement"))
	return m
}

func (m *pipelineMetrics) recordSubmission(ctx context.Context) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.Add(ctx, 1)
}

func (m *pipelineMetrics) recordJob(ctx context.Context, status Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", string(status)))
	if m.jobs != nil {
		m.jobs.Add(ctx, 1, attrs)
	}
	if m.jobSeconds != nil {
		m.jobSeconds.Record(ctx, elapsed.Seconds(), attrs)
	}
}
