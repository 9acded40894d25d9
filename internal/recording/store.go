package recording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lingualabs/lingua-core/internal/config"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a recording id has no row.
var ErrNotFound = errors.New("recording not found")

// ErrTerminalStatus is returned when a transition is attempted on a
// recording already in done or failed state.
var ErrTerminalStatus = errors.New("recording already in terminal status")

// Store wraps a SQLite-backed recording catalog.
type Store struct {
	db    *sql.DB
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the recording store according to config.
func Open(ctx context.Context, cfg config.RecordingsConfig, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS recordings (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT,
    url TEXT,
    storage_key TEXT,
    mime_type TEXT,
    size INTEGER NOT NULL DEFAULT 0,
    reference_text TEXT,
    language TEXT,
    duration REAL NOT NULL DEFAULT 0,
    speaking_time REAL NOT NULL DEFAULT 0,
    transcript_text TEXT,
    transcript BLOB,
    analysis BLOB,
    analysis_status TEXT NOT NULL,
    failure_reason TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recordings_user_created ON recordings(user_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts a new recording row.
func (s *Store) Create(ctx context.Context, rec *Recording) error {
	now := s.clock().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings(id, user_id, name, url, storage_key, mime_type, size,
		 reference_text, language, duration, speaking_time, transcript_text, transcript, analysis,
		 analysis_status, failure_reason, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Name, rec.URL, rec.StorageKey, rec.MimeType, rec.Size,
		rec.ReferenceText, rec.Language, rec.Duration, rec.SpeakingTime, rec.TranscriptText, rec.Transcript, rec.Analysis,
		string(rec.Status), rec.FailureReason, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

// Get retrieves a recording by id.
func (s *Store) Get(ctx context.Context, id string) (*Recording, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, url, storage_key, mime_type, size,
		 reference_text, language, duration, speaking_time, transcript_text, transcript, analysis,
		 analysis_status, failure_reason, created_at, updated_at
		 FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// ListByUser retrieves up to limit recordings for a user, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]*Recording, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, url, storage_key, mime_type, size,
		 reference_text, language, duration, speaking_time, transcript_text, transcript, analysis,
		 analysis_status, failure_reason, created_at, updated_at
		 FROM recordings WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// MarkProcessing moves a pending recording into processing.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.transition(ctx, id,
		`UPDATE recordings SET analysis_status = ?, updated_at = ?
		 WHERE id = ? AND analysis_status NOT IN ('done', 'failed')`,
		string(StatusProcessing), formatTime(s.clock()), id)
}

// MarkDone records the assessment artifacts and finalizes the recording.
// Terminal rows are never overwritten.
func (s *Store) MarkDone(ctx context.Context, id, transcriptText string, transcript, analysis []byte, duration, speakingTime float64) error {
	return s.transition(ctx, id,
		`UPDATE recordings SET analysis_status = ?, transcript_text = ?, transcript = ?, analysis = ?,
		 duration = ?, speaking_time = ?, failure_reason = '', updated_at = ?
		 WHERE id = ? AND analysis_status NOT IN ('done', 'failed')`,
		string(StatusDone), transcriptText, transcript, analysis, duration, speakingTime, formatTime(s.clock()), id)
}

// MarkFailed finalizes the recording with a failure reason.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) error {
	return s.transition(ctx, id,
		`UPDATE recordings SET analysis_status = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND analysis_status NOT IN ('done', 'failed')`,
		string(StatusFailed), reason, formatTime(s.clock()), id)
}

func (s *Store) transition(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrTerminalStatus, id)
	}
	return nil
}

// Timestamps are stored as fixed-width RFC3339 text so lexicographic
// ordering in SQL matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (*Recording, error) {
	var rec Recording
	var status string
	var created, updated string
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.URL, &rec.StorageKey, &rec.MimeType, &rec.Size,
		&rec.ReferenceText, &rec.Language, &rec.Duration, &rec.SpeakingTime, &rec.TranscriptText, &rec.Transcript, &rec.Analysis,
		&status, &rec.FailureReason, &created, &updated)
	if err != nil {
		return nil, err
	}
	rec.Status = Status(status)
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		rec.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		rec.UpdatedAt = ts
	}
	return &rec, nil
}
