// Package analysis holds the downstream collaborators consumed after
// transcript building: a prosody analyzer and a pronunciation summarizer.
// Their failures never fail a recording; the lifecycle manager downgrades
// them to absent fields.
package analysis

import (
	"context"

	"github.com/lingualabs/lingua-core/internal/assessment"
)

// ProsodyReport scores rhythm, stress, and intonation across the recording.
type ProsodyReport struct {
	Prosody     float64  `json:"prosody"`
	Fluency     float64  `json:"fluency"`
	StressWords []string `json:"stressWords"`
}

type ProsodyAnalyzer interface {
	Analyze(ctx context.Context, transcript *assessment.Transcript, audio []byte, mimeType string) (ProsodyReport, error)
}

// PhonemeIssue aggregates repeated trouble with one phoneme.
type PhonemeIssue struct {
	Phoneme         string  `json:"phoneme"`
	Occurrences     int     `json:"occurrences"`
	AverageAccuracy float64 `json:"averageAccuracy"`
}

// PronunciationSummary condenses the raw assessments into learner-facing
// highlights.
type PronunciationSummary struct {
	ProblemPhonemes []PhonemeIssue `json:"problemPhonemes"`
	WordCount       int            `json:"wordCount"`
	ErrorWordCount  int            `json:"errorWordCount"`
	Advice          string         `json:"advice,omitempty"`
}

type PronunciationSummarizer interface {
	Summarize(ctx context.Context, raws []assessment.RawUtteranceAssessment) (PronunciationSummary, error)
}
