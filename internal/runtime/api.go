package runtime

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lingualabs/lingua-core/internal/recording"
)

// maxUploadBytes caps a single recording upload at 32 MiB.
const maxUploadBytes = 32 << 20

// maxListLimit caps the page size of a list request.
const maxListLimit = 200

type api struct {
	manager *recording.Manager
	log     *slog.Logger
}

func newAPI(manager *recording.Manager, log *slog.Logger) *api {
	return &api{manager: manager, log: log.With(slog.String("component", "api"))}
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/recordings", a.handleSubmit)
	mux.HandleFunc("GET /v1/recordings/{id}", a.handleGet)
	mux.HandleFunc("GET /v1/recordings", a.handleList)
}

// recordingView is the wire shape of a recording. Transcript and
// analysis are embedded verbatim from the stored JSON blobs.
type recordingView struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Name           string          `json:"name,omitempty"`
	URL            string          `json:"url"`
	MimeType       string          `json:"mimeType,omitempty"`
	Size           int64           `json:"size"`
	Duration       float64         `json:"duration"`
	SpeakingTime   float64         `json:"speakingTime"`
	AnalysisStatus string          `json:"analysisStatus"`
	FailureReason  string          `json:"failureReason,omitempty"`
	TranscriptText string          `json:"transcriptText,omitempty"`
	Transcript     json.RawMessage `json:"transcript,omitempty"`
	Analysis       json.RawMessage `json:"analysis,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func viewOf(rec *recording.Recording) recordingView {
	return recordingView{
		ID:             rec.ID,
		UserID:         rec.UserID,
		Name:           rec.Name,
		URL:            rec.URL,
		MimeType:       rec.MimeType,
		Size:           rec.Size,
		Duration:       rec.Duration,
		SpeakingTime:   rec.SpeakingTime,
		AnalysisStatus: string(rec.Status),
		FailureReason:  rec.FailureReason,
		TranscriptText: rec.TranscriptText,
		Transcript:     json.RawMessage(rec.Transcript),
		Analysis:       json.RawMessage(rec.Analysis),
		CreatedAt:      rec.CreatedAt,
	}
}

func (a *api) handleSubmit(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty audio payload")
		return
	}
	if len(body) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "audio payload too large")
		return
	}

	receipt, err := a.manager.Submit(r.Context(), recording.SubmitRequest{
		UserID:        userID,
		Name:          r.Header.Get("X-Recording-Name"),
		MimeType:      r.Header.Get("Content-Type"),
		ReferenceText: r.Header.Get("X-Reference-Text"),
		Data:          body,
	})
	if err != nil {
		a.log.Warn("submit failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to accept recording")
		return
	}

	writeJSON(w, http.StatusAccepted, receipt)
}

func (a *api) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := a.manager.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, recording.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recording not found")
			return
		}
		a.log.Warn("get recording failed", slog.String("recording_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load recording")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rec))
}

func (a *api) handleList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = r.Header.Get("X-User-ID")
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user parameter")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	recs, err := a.manager.ListByUser(r.Context(), userID, limit)
	if err != nil {
		a.log.Warn("list recordings failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list recordings")
		return
	}

	views := make([]recordingView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, viewOf(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"recordings": views})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
