package recording

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/lingualabs/lingua-core/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func openStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.RecordingsConfig{Path: filepath.Join(t.TempDir(), "recordings.db")}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open recording store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := openStore(t)
	rec := &Recording{
		ID:         "rec-1",
		UserID:     "user-1",
		Name:       "morning.wav",
		URL:        "http://localhost/objects/recordings/user-1/morning.wav",
		StorageKey: "recordings/user-1/morning.wav",
		MimeType:   "audio/wav",
		Size:       1024,
		Status:     StatusProcessing,
	}
	if err := s.Create(context.Background(), rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "user-1" || got.Status != StatusProcessing {
		t.Fatalf("unexpected recording: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByUserNewestFirst(t *testing.T) {
	s := openStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		offset := time.Duration(i) * time.Minute
		s.clock = func() time.Time { return base.Add(offset) }
		if err := s.Create(context.Background(), &Recording{ID: id, UserID: "user-1", Status: StatusProcessing}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	s.clock = time.Now
	if err := s.Create(context.Background(), &Recording{ID: "other", UserID: "user-2", Status: StatusProcessing}); err != nil {
		t.Fatalf("create other: %v", err)
	}

	recs, err := s.ListByUser(context.Background(), "user-1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recordings, got %d", len(recs))
	}
	if recs[0].ID != "c" || recs[1].ID != "b" {
		t.Fatalf("unexpected order: %s, %s", recs[0].ID, recs[1].ID)
	}
}

func TestMarkDoneStoresArtifacts(t *testing.T) {
	s := openStore(t)
	if err := s.Create(context.Background(), &Recording{ID: "rec-1", UserID: "u", Status: StatusProcessing}); err != nil {
		t.Fatalf("create: %v", err)
	}
	transcript := []byte(`{"segments":[]}`)
	analysis := []byte(`{"summary":null}`)
	if err := s.MarkDone(context.Background(), "rec-1", "Good morning.", transcript, analysis, 3.2, 2.1); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	got, err := s.Get(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusDone {
		t.Fatalf("expected done, got %s", got.Status)
	}
	if string(got.Transcript) != string(transcript) {
		t.Fatalf("unexpected transcript: %s", got.Transcript)
	}
	if got.TranscriptText != "Good morning." {
		t.Fatalf("unexpected transcript text: %q", got.TranscriptText)
	}
	if got.Duration != 3.2 || got.SpeakingTime != 2.1 {
		t.Fatalf("unexpected timing: %v / %v", got.Duration, got.SpeakingTime)
	}
}

func TestTerminalStatusNeverRegresses(t *testing.T) {
	s := openStore(t)
	if err := s.Create(context.Background(), &Recording{ID: "rec-1", UserID: "u", Status: StatusProcessing}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.MarkFailed(context.Background(), "rec-1", "engine exploded"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	err := s.MarkDone(context.Background(), "rec-1", "", nil, nil, 0, 0)
	if !errors.Is(err, ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus, got %v", err)
	}
	err = s.MarkProcessing(context.Background(), "rec-1")
	if !errors.Is(err, ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus, got %v", err)
	}

	got, err := s.Get(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusFailed || got.FailureReason != "engine exploded" {
		t.Fatalf("terminal row changed: %+v", got)
	}
}

func TestTransitionMissingRecording(t *testing.T) {
	s := openStore(t)
	err := s.MarkDone(context.Background(), "ghost", "", nil, nil, 0, 0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
