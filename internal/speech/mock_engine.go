package speech

import (
	"context"
	"encoding/json"

	"github.com/lingualabs/lingua-core/internal/assessment"
	"github.com/lingualabs/lingua-core/internal/audio"
)

type mockEngine struct{}

// NewMockEngine returns an engine that fabricates a single clean utterance
// covering the whole clip. Used in development and tests.
func NewMockEngine() Engine {
	return &mockEngine{}
}

func (m *mockEngine) StartSession(_ context.Context, clip audio.PCMClip, cfg SessionConfig, h Handlers) error {
	durTicks := clip.Duration().Milliseconds() * 10000
	raw := assessment.RawUtteranceAssessment{
		RecognitionStatus: "Success",
		Duration:          durTicks,
		DisplayText:       "Mock assessment.",
		NBest: []assessment.RawHypothesis{{
			Confidence: 0.9,
			Lexical:    "mock assessment",
			Display:    "Mock assessment.",
			PronunciationAssessment: &assessment.RawUtteranceScores{
				AccuracyScore:     90,
				FluencyScore:      90,
				ProsodyScore:      90,
				CompletenessScore: 100,
				PronScore:         90,
			},
			Words: []assessment.RawWord{{
				Word:     "mock",
				Offset:   0,
				Duration: durTicks,
				PronunciationAssessment: &assessment.RawWordAssessment{
					AccuracyScore: 90,
				},
			}},
		}},
	}

	go func() {
		h.Recognizing("mock")
		payload, err := json.Marshal(raw)
		if err == nil {
			h.Recognized(payload)
		}
		h.Stopped()
	}()
	return nil
}
