package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lingualabs/lingua-core/internal/assessment"
	"github.com/lingualabs/lingua-core/internal/audio"
)

// Driver runs one recognition session to a single deterministic outcome: an
// ordered list of raw utterance assessments, or an error. The engine's own
// voice-activity detection decides utterance boundaries; the driver only
// accumulates what the session reports.
type Driver struct {
	engine   Engine
	language string
	log      *slog.Logger
}

func NewDriver(engine Engine, language string, log *slog.Logger) *Driver {
	return &Driver{
		engine:   engine,
		language: language,
		log:      log.With(slog.String("component", "speech")),
	}
}

type outcome struct {
	results []assessment.RawUtteranceAssessment
	err     error
}

// Assess pushes the clip through a session and blocks until the session
// settles. Settlement happens exactly once and only from the stopped or
// canceled handler, never from an individual recognized-utterance callback,
// so multi-utterance recordings are not resolved prematurely.
func (d *Driver) Assess(ctx context.Context, clip audio.PCMClip, referenceText string) ([]assessment.RawUtteranceAssessment, error) {
	var (
		mu          sync.Mutex
		results     []assessment.RawUtteranceAssessment
		lastPartial string
	)

	done := make(chan outcome, 1)
	var once sync.Once
	settle := func(o outcome) {
		once.Do(func() { done <- o })
	}

	finish := func() outcome {
		mu.Lock()
		defer mu.Unlock()
		if len(results) == 0 && lastPartial != "" {
			// The engine never finalized anything but heard speech; keep
			// the last partial hypothesis instead of failing the recording.
			return outcome{results: []assessment.RawUtteranceAssessment{synthesizeFromPartial(lastPartial)}}
		}
		return outcome{results: results}
	}

	handlers := Handlers{
		Recognizing: func(text string) {
			mu.Lock()
			lastPartial = text
			mu.Unlock()
		},
		Recognized: func(payload []byte) {
			var raw assessment.RawUtteranceAssessment
			if err := json.Unmarshal(payload, &raw); err != nil {
				d.log.Warn("discarding undecodable utterance payload", slog.String("error", err.Error()))
				return
			}
			mu.Lock()
			results = append(results, raw)
			mu.Unlock()
		},
		Stopped: func() {
			settle(finish())
		},
		Canceled: func(detail CancelDetail) {
			if detail.Reason == CancelEndOfStream {
				settle(finish())
				return
			}
			settle(outcome{err: cancelError(detail)})
		},
	}

	cfg := DefaultSessionConfig(d.language, referenceText)
	if err := d.engine.StartSession(ctx, clip, cfg, handlers); err != nil {
		return nil, fmt.Errorf("start recognition session: %w", err)
	}

	select {
	case o := <-done:
		return o.results, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func synthesizeFromPartial(partial string) assessment.RawUtteranceAssessment {
	return assessment.RawUtteranceAssessment{
		RecognitionStatus: "Success",
		DisplayText:       partial,
		NBest: []assessment.RawHypothesis{{
			Display: partial,
			Lexical: strings.ToLower(partial),
		}},
	}
}

// cancelError attaches a diagnostic hint derived from the engine's free-text
// detail to help operators triage without reading engine logs.
func cancelError(detail CancelDetail) error {
	hint := "unspecified engine failure"
	lower := strings.ToLower(detail.Detail + " " + detail.Code)
	switch {
	case strings.Contains(lower, "401"),
		strings.Contains(lower, "403"),
		strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "forbidden"),
		strings.Contains(lower, "auth"),
		strings.Contains(lower, "permission"):
		hint = "verify speech service credentials and permissions"
	case strings.Contains(lower, "audio"),
		strings.Contains(lower, "format"),
		strings.Contains(lower, "header"),
		strings.Contains(lower, "sample"):
		hint = "audio payload may be malformed"
	}
	return fmt.Errorf("recognition session canceled (%s): %s: %s", detail.Code, hint, detail.Detail)
}
