package analysis

import (
	"context"
	"sort"

	"github.com/lingualabs/lingua-core/internal/assessment"
)

type mockProsody struct{}

// NewMockProsody returns a deterministic analyzer derived purely from the
// transcript, for development and tests.
func NewMockProsody() ProsodyAnalyzer {
	return &mockProsody{}
}

func (m *mockProsody) Analyze(_ context.Context, transcript *assessment.Transcript, _ []byte, _ string) (ProsodyReport, error) {
	report := ProsodyReport{
		Prosody:     transcript.Overall.Prosody,
		Fluency:     transcript.Overall.Fluency,
		StressWords: []string{},
	}
	// Flag the highest-accuracy word per segment as carrying stress.
	for _, seg := range transcript.Segments {
		best := -1
		for i, w := range seg.Words {
			if best < 0 || w.Accuracy > seg.Words[best].Accuracy {
				best = i
			}
		}
		if best >= 0 {
			report.StressWords = append(report.StressWords, seg.Words[best].Word)
		}
	}
	return report, nil
}

type mockSummarizer struct{}

// NewMockSummarizer returns a summarizer that aggregates weak phonemes
// straight from the raw assessments.
func NewMockSummarizer() PronunciationSummarizer {
	return &mockSummarizer{}
}

func (m *mockSummarizer) Summarize(_ context.Context, raws []assessment.RawUtteranceAssessment) (PronunciationSummary, error) {
	type acc struct {
		count int
		total float64
	}
	weak := map[string]*acc{}
	summary := PronunciationSummary{ProblemPhonemes: []PhonemeIssue{}}

	for _, raw := range raws {
		if len(raw.NBest) == 0 {
			continue
		}
		for _, w := range raw.NBest[0].Words {
			summary.WordCount++
			if w.PronunciationAssessment != nil && w.PronunciationAssessment.ErrorType != "" && w.PronunciationAssessment.ErrorType != "None" {
				summary.ErrorWordCount++
			}
			for _, p := range w.Phonemes {
				if p.PronunciationAssessment == nil {
					continue
				}
				score := p.PronunciationAssessment.AccuracyScore
				if score > 60 {
					continue
				}
				a := weak[p.Phoneme]
				if a == nil {
					a = &acc{}
					weak[p.Phoneme] = a
				}
				a.count++
				a.total += score
			}
		}
	}

	for phoneme, a := range weak {
		summary.ProblemPhonemes = append(summary.ProblemPhonemes, PhonemeIssue{
			Phoneme:         phoneme,
			Occurrences:     a.count,
			AverageAccuracy: a.total / float64(a.count),
		})
	}
	sort.Slice(summary.ProblemPhonemes, func(i, j int) bool {
		a, b := summary.ProblemPhonemes[i], summary.ProblemPhonemes[j]
		if a.Occurrences != b.Occurrences {
			return a.Occurrences > b.Occurrences
		}
		return a.Phoneme < b.Phoneme
	})
	return summary, nil
}
