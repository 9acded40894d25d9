package assessment

import (
	"strings"
	"time"
)

// The engine reports offsets and durations in 100-nanosecond ticks.
const ticksPerMillisecond = 10000

// Phoneme accuracy above this value counts as a correct realization.
const phonemeCorrectThreshold = 60

// Build transforms the engine's raw per-utterance assessments into a
// normalized Transcript. It is a pure function of its inputs: identical raw
// results yield an identical transcript apart from the creation timestamp.
// Utterances without a usable best hypothesis are dropped silently.
func Build(raws []RawUtteranceAssessment, audioURL, language string, now time.Time) Transcript {
	t := Transcript{
		AudioURL: audioURL,
		Metadata: Metadata{
			Language:       language,
			AssessmentType: "pronunciation",
			CreatedAt:      now.UTC(),
		},
	}

	var speakingTime int64
	for _, raw := range raws {
		seg, ok := buildSegment(raw, len(t.Segments))
		if !ok {
			continue
		}
		for _, w := range seg.Words {
			speakingTime += w.Duration
		}
		t.Segments = append(t.Segments, seg)
	}

	if n := len(t.Segments); n > 0 {
		t.Metadata.Duration = t.Segments[n-1].EndTime
	}
	t.Metadata.SpeakingTime = speakingTime

	// Utterance-level sub-scores are taken from the first utterance only;
	// see the open question recorded in DESIGN.md.
	if len(raws) > 0 && len(raws[0].NBest) > 0 {
		if scores := raws[0].NBest[0].PronunciationAssessment; scores != nil {
			t.Overall = Scores{
				Accuracy:      scores.AccuracyScore,
				Fluency:       scores.FluencyScore,
				Prosody:       scores.ProsodyScore,
				Completeness:  scores.CompletenessScore,
				Pronunciation: scores.PronScore,
			}
		}
	}

	return t
}

func buildSegment(raw RawUtteranceAssessment, index int) (Segment, bool) {
	if len(raw.NBest) == 0 {
		return Segment{}, false
	}
	hyp := raw.NBest[0]
	if len(hyp.Words) == 0 {
		return Segment{}, false
	}

	seg := Segment{
		ID:   index + 1,
		Text: raw.DisplayText,
	}

	var prev string
	var accuracySum float64
	for _, rw := range hyp.Words {
		word := buildWord(rw, hyp.Confidence, prev)
		accuracySum += word.Accuracy
		prev = rw.Word
		seg.Words = append(seg.Words, word)
	}

	first := seg.Words[0]
	last := seg.Words[len(seg.Words)-1]
	seg.StartTime = first.Offset
	seg.EndTime = last.Offset + last.Duration

	if hyp.PronunciationAssessment != nil {
		seg.OverallAccuracy = hyp.PronunciationAssessment.AccuracyScore
	} else {
		seg.OverallAccuracy = accuracySum / float64(len(seg.Words))
	}

	return seg, true
}

func buildWord(rw RawWord, confidence float64, prev string) Word {
	w := Word{
		Word:            rw.Word,
		Offset:          rw.Offset / ticksPerMillisecond,
		Duration:        rw.Duration / ticksPerMillisecond,
		ConfidenceScore: confidence,
		Phonemes:        []Phoneme{},
		Syllables:       []Syllable{},
		Errors:          []ErrorAnnotation{},
		IsDuplicated:    prev != "" && strings.EqualFold(normalizeWord(rw.Word), normalizeWord(prev)),
	}
	if rw.PronunciationAssessment != nil {
		w.Accuracy = rw.PronunciationAssessment.AccuracyScore
	}

	var actual strings.Builder
	for _, rp := range rw.Phonemes {
		p := buildPhoneme(rp)
		if p.IsCorrect {
			actual.WriteString(p.ActualPhoneme)
		}
		w.Phonemes = append(w.Phonemes, p)
	}
	w.ActualPronunciation = actual.String()

	var expected strings.Builder
	for _, rs := range rw.Syllables {
		s := Syllable{
			Syllable: rs.Syllable,
			Grapheme: rs.Grapheme,
			Offset:   rs.Offset / ticksPerMillisecond,
			Duration: rs.Duration / ticksPerMillisecond,
		}
		if rs.PronunciationAssessment != nil {
			s.AccuracyScore = rs.PronunciationAssessment.AccuracyScore
		}
		expected.WriteString(rs.Syllable)
		w.Syllables = append(w.Syllables, s)
	}
	w.ExpectedPronunciation = expected.String()

	w.Errors = classifyErrors(rw, w.Accuracy)
	return w
}

func buildPhoneme(rp RawPhoneme) Phoneme {
	p := Phoneme{
		Phoneme:         rp.Phoneme,
		Offset:          rp.Offset / ticksPerMillisecond,
		Duration:        rp.Duration / ticksPerMillisecond,
		ExpectedPhoneme: rp.Phoneme,
	}
	if rp.PronunciationAssessment != nil {
		p.Accuracy = rp.PronunciationAssessment.AccuracyScore
	}
	p.IsCorrect = p.Accuracy > phonemeCorrectThreshold
	if p.IsCorrect {
		p.ActualPhoneme = p.ExpectedPhoneme
	} else if rp.PronunciationAssessment != nil && len(rp.PronunciationAssessment.NBestPhonemes) > 0 {
		p.ActualPhoneme = rp.PronunciationAssessment.NBestPhonemes[0].Phoneme
	}
	return p
}

// classifyErrors maps the engine's word-level diagnostics onto error
// annotations. Accuracy-derived confidences are inverted (low accuracy means
// high confidence in the error); probability-derived ones are rescaled to
// the 0-100 range.
func classifyErrors(rw RawWord, accuracy float64) []ErrorAnnotation {
	errs := []ErrorAnnotation{}
	pa := rw.PronunciationAssessment
	if pa == nil {
		return errs
	}

	if pa.ErrorType == rawErrorMispronunciation {
		errs = append(errs, ErrorAnnotation{
			Type:       ErrorMispronunciation,
			Confidence: 100 - accuracy,
		})
	}

	if pa.Feedback == nil || pa.Feedback.Prosody == nil {
		return errs
	}
	prosody := pa.Feedback.Prosody

	if br := prosody.Break; br != nil {
		for _, et := range br.ErrorTypes {
			switch et {
			case rawErrorUnexpectedBreak:
				if br.UnexpectedBreak != nil {
					errs = append(errs, ErrorAnnotation{
						Type:       ErrorUnexpectedBreak,
						Confidence: br.UnexpectedBreak.Confidence * 100,
					})
				}
			case rawErrorMissingBreak:
				if br.MissingBreak != nil {
					errs = append(errs, ErrorAnnotation{
						Type:       ErrorMissingBreak,
						Confidence: br.MissingBreak.Confidence * 100,
					})
				}
			}
		}
	}

	if in := prosody.Intonation; in != nil {
		for _, et := range in.ErrorTypes {
			if et == rawErrorMonotone && in.Monotone != nil {
				errs = append(errs, ErrorAnnotation{
					Type:       ErrorMonotone,
					Confidence: in.Monotone.SyllablePitchDeltaConfidence * 100,
				})
			}
		}
	}

	return errs
}

func normalizeWord(w string) string {
	return strings.TrimSpace(strings.ToLower(w))
}
