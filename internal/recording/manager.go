package recording

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lingualabs/lingua-core/internal/analysis"
	"github.com/lingualabs/lingua-core/internal/assessment"
	"github.com/lingualabs/lingua-core/internal/audio"
	"github.com/lingualabs/lingua-core/internal/protocol"
	"github.com/lingualabs/lingua-core/internal/speech"
	"github.com/lingualabs/lingua-core/internal/storage"
)

// SubmitRequest carries an uploaded recording into the pipeline.
type SubmitRequest struct {
	UserID        string
	Name          string
	MimeType      string
	ReferenceText string
	Data          []byte
}

// Receipt is returned immediately on submission, before analysis runs.
type Receipt struct {
	RecordingID    string `json:"recordingId"`
	URL            string `json:"url"`
	AnalysisStatus string `json:"analysisStatus"`
}

// AnalysisPayload is the stored analysis blob. Either section may be nil
// when its analyzer was unavailable or failed.
type AnalysisPayload struct {
	Prosody *analysis.ProsodyReport        `json:"prosody,omitempty"`
	Summary *analysis.PronunciationSummary `json:"summary,omitempty"`
}

// Manager owns the recording lifecycle: accept an upload, persist it,
// queue the assessment, and settle the final status when a worker
// finishes the job.
type Manager struct {
	store      *Store
	files      storage.FileStore
	normalizer *audio.Normalizer
	driver     *speech.Driver
	prosody    analysis.ProsodyAnalyzer
	summarizer analysis.PronunciationSummarizer
	queue      JobQueue
	language   string
	log        *slog.Logger
	clock      func() time.Time
	metrics    *pipelineMetrics
}

func NewManager(store *Store, files storage.FileStore, normalizer *audio.Normalizer,
	driver *speech.Driver, prosody analysis.ProsodyAnalyzer, summarizer analysis.PronunciationSummarizer,
	queue JobQueue, language string, log *slog.Logger) *Manager {
	return &Manager{
		store:      store,
		files:      files,
		normalizer: normalizer,
		driver:     driver,
		prosody:    prosody,
		summarizer: summarizer,
		queue:      queue,
		language:   language,
		log:        log.With(slog.String("component", "recording")),
		clock:      time.Now,
		metrics:    newPipelineMetrics(),
	}
}

// Submit stores the raw audio, creates the catalog row in processing
// state, and enqueues the assessment job. The caller gets a receipt
// right away; analysis happens on a worker.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (Receipt, error) {
	if req.UserID == "" {
		return Receipt{}, fmt.Errorf("user id required")
	}
	if len(req.Data) == 0 {
		return Receipt{}, fmt.Errorf("empty audio payload")
	}

	id := uuid.NewString()
	name := req.Name
	if name == "" {
		name = id + extensionForMime(req.MimeType)
	}

	obj, err := m.files.Upload(ctx, req.Data, name, req.MimeType, path.Join("recordings", req.UserID))
	if err != nil {
		return Receipt{}, fmt.Errorf("store audio: %w", err)
	}

	rec := &Recording{
		ID:            id,
		UserID:        req.UserID,
		Name:          name,
		URL:           obj.URL,
		StorageKey:    obj.Key,
		MimeType:      req.MimeType,
		Size:          int64(len(req.Data)),
		ReferenceText: req.ReferenceText,
		Language:      m.language,
		Status:        StatusProcessing,
	}
	if err := m.store.Create(ctx, rec); err != nil {
		return Receipt{}, err
	}

	job := protocol.AssessmentJob{
		RecordingID:   id,
		UserID:        req.UserID,
		StorageKey:    obj.Key,
		MimeType:      req.MimeType,
		ReferenceText: req.ReferenceText,
		Language:      m.language,
		SubmittedAt:   m.clock().UTC(),
	}
	if err := m.queue.Enqueue(ctx, job); err != nil {
		if ferr := m.store.MarkFailed(ctx, id, "enqueue failed: "+err.Error()); ferr != nil {
			m.log.Error("failed to settle recording after enqueue error",
				slog.String("recording_id", id), slog.String("error", ferr.Error()))
		}
		return Receipt{}, fmt.Errorf("enqueue assessment: %w", err)
	}

	m.metrics.recordSubmission(ctx)
	m.log.Info("recording accepted",
		slog.String("recording_id", id),
		slog.String("user_id", req.UserID),
		slog.Int("size", len(req.Data)))

	return Receipt{RecordingID: id, URL: obj.URL, AnalysisStatus: string(StatusProcessing)}, nil
}

// Get returns a recording by id.
func (m *Manager) Get(ctx context.Context, id string) (*Recording, error) {
	return m.store.Get(ctx, id)
}

// ListByUser returns recent recordings for a user.
func (m *Manager) ListByUser(ctx context.Context, userID string, limit int) ([]*Recording, error) {
	return m.store.ListByUser(ctx, userID, limit)
}

// Process runs the full assessment for a queued job and settles the
// recording status. Recognition failures mark the recording failed;
// analyzer failures only degrade the stored analysis.
func (m *Manager) Process(ctx context.Context, job protocol.AssessmentJob) error {
	rec, err := m.store.Get(ctx, job.RecordingID)
	if err != nil {
		return err
	}
	if rec.Status.Terminal() {
		m.log.Warn("skipping job for settled recording",
			slog.String("recording_id", rec.ID), slog.String("status", string(rec.Status)))
		return nil
	}

	started := m.clock()
	transcript, analysisPayload, err := m.assess(ctx, rec, job)
	if err != nil {
		if ferr := m.store.MarkFailed(ctx, rec.ID, err.Error()); ferr != nil {
			m.log.Error("failed to mark recording failed",
				slog.String("recording_id", rec.ID), slog.String("error", ferr.Error()))
		}
		m.metrics.recordJob(ctx, StatusFailed, m.clock().Sub(started))
		return err
	}

	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	analysisJSON, err := json.Marshal(analysisPayload)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	if err := m.store.MarkDone(ctx, rec.ID, transcriptText(transcript), transcriptJSON, analysisJSON,
		float64(transcript.Metadata.Duration), float64(transcript.Metadata.SpeakingTime)); err != nil {
		return err
	}

	m.metrics.recordJob(ctx, StatusDone, m.clock().Sub(started))
	m.log.Info("recording assessed",
		slog.String("recording_id", rec.ID),
		slog.Int64("duration_ms", transcript.Metadata.Duration),
		slog.Int("segments", len(transcript.Segments)))
	return nil
}

// transcriptText recomputes the displayable transcript from the segment
// display texts.
func transcriptText(t *assessment.Transcript) string {
	texts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if seg.Text != "" {
			texts = append(texts, seg.Text)
		}
	}
	return strings.Join(texts, " ")
}

func (m *Manager) assess(ctx context.Context, rec *Recording, job protocol.AssessmentJob) (*assessment.Transcript, AnalysisPayload, error) {
	raw, err := m.files.Fetch(ctx, job.StorageKey)
	if err != nil {
		return nil, AnalysisPayload{}, fmt.Errorf("fetch audio: %w", err)
	}

	wavData, err := m.normalizer.Normalize(ctx, raw, job.MimeType)
	if err != nil {
		return nil, AnalysisPayload{}, fmt.Errorf("normalize audio: %w", err)
	}

	clip, err := audio.DecodeClip(wavData)
	if err != nil {
		return nil, AnalysisPayload{}, fmt.Errorf("decode audio: %w", err)
	}

	raws, err := m.driver.Assess(ctx, clip, job.ReferenceText)
	if err != nil {
		return nil, AnalysisPayload{}, err
	}

	language := job.Language
	if language == "" {
		language = m.language
	}
	transcript := assessment.Build(raws, rec.URL, language, m.clock().UTC())

	payload := AnalysisPayload{}
	if m.prosody != nil {
		report, err := m.prosody.Analyze(ctx, &transcript, wavData, "audio/wav")
		if err != nil {
			m.log.Warn("prosody analysis failed, continuing without",
				slog.String("recording_id", rec.ID), slog.String("error", err.Error()))
		} else {
			payload.Prosody = &report
			applyStressWords(&transcript, report.StressWords)
		}
	}
	if m.summarizer != nil {
		summary, err := m.summarizer.Summarize(ctx, raws)
		if err != nil {
			m.log.Warn("pronunciation summary failed, continuing without",
				slog.String("recording_id", rec.ID), slog.String("error", err.Error()))
		} else {
			payload.Summary = &summary
		}
	}

	return &transcript, payload, nil
}

// applyStressWords marks transcript words the prosody analyzer singled
// out as stressed.
func applyStressWords(t *assessment.Transcript, stressWords []string) {
	if len(stressWords) == 0 {
		return
	}
	stressed := make(map[string]struct{}, len(stressWords))
	for _, w := range stressWords {
		stressed[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	for si := range t.Segments {
		for wi := range t.Segments[si].Words {
			word := &t.Segments[si].Words[wi]
			if _, ok := stressed[strings.ToLower(word.Word)]; ok {
				word.IsStressed = true
			}
		}
	}
}

func extensionForMime(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "wav"):
		return ".wav"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return ".mp3"
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return ".m4a"
	default:
		return ".bin"
	}
}
