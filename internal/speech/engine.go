package speech

import (
	"context"

	"github.com/lingualabs/lingua-core/internal/audio"
)

// SessionConfig is the JSON assessment configuration handed to the engine
// alongside the audio.
type SessionConfig struct {
	ReferenceText           string `json:"referenceText,omitempty"`
	GradingSystem           string `json:"gradingSystem"`
	Granularity             string `json:"granularity"`
	PhonemeAlphabet         string `json:"phonemeAlphabet"`
	NBestPhonemeCount       int    `json:"nBestPhonemeCount"`
	EnableMiscue            bool   `json:"enableMiscue"`
	EnableProsodyAssessment bool   `json:"enableProsodyAssessment"`
	Language                string `json:"language,omitempty"`
}

// DefaultSessionConfig returns the assessment profile used for every
// recording: hundred-point grading, phoneme granularity, IPA symbols, one
// alternative phoneme candidate, miscue and prosody scoring enabled.
func DefaultSessionConfig(language, referenceText string) SessionConfig {
	return SessionConfig{
		ReferenceText:           referenceText,
		GradingSystem:           "HundredMark",
		Granularity:             "Phoneme",
		PhonemeAlphabet:         "IPA",
		NBestPhonemeCount:       1,
		EnableMiscue:            true,
		EnableProsodyAssessment: true,
		Language:                language,
	}
}

// CancelReason distinguishes a graceful end of stream from a genuine engine
// failure.
type CancelReason int

const (
	CancelEndOfStream CancelReason = iota
	CancelError
)

type CancelDetail struct {
	Reason CancelReason
	Code   string
	Detail string
}

// Handlers receive the engine's session lifecycle events. Recognized carries
// the structured side-channel payload for one finalized utterance; the typed
// result surface is never used because only the side channel exposes the
// full phoneme and syllable tree.
type Handlers struct {
	Recognizing func(text string)
	Recognized  func(payload []byte)
	Stopped     func()
	Canceled    func(detail CancelDetail)
}

// Engine owns one streaming-recognition transport. StartSession returns once
// the session is running; events arrive asynchronously on the handlers until
// Stopped or Canceled fires.
type Engine interface {
	StartSession(ctx context.Context, clip audio.PCMClip, cfg SessionConfig, h Handlers) error
}
