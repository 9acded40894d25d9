package assessment

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

// approx compares probability-derived confidences, which pick up float
// noise from the 0..1 to 0..100 rescale.
func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-6
}

func rawWord(text string, offsetMS, durationMS int64, accuracy float64) RawWord {
	return RawWord{
		Word:     text,
		Offset:   offsetMS * ticksPerMillisecond,
		Duration: durationMS * ticksPerMillisecond,
		PronunciationAssessment: &RawWordAssessment{
			AccuracyScore: accuracy,
		},
	}
}

func rawUtterance(display string, words ...RawWord) RawUtteranceAssessment {
	return RawUtteranceAssessment{
		RecognitionStatus: "Success",
		DisplayText:       display,
		NBest: []RawHypothesis{{
			Confidence: 0.93,
			Display:    display,
			PronunciationAssessment: &RawUtteranceScores{
				AccuracyScore:     88,
				FluencyScore:      91,
				ProsodyScore:      77,
				CompletenessScore: 100,
				PronScore:         86,
			},
			Words: words,
		}},
	}
}

func TestBuildEmptyInput(t *testing.T) {
	got := Build(nil, "https://cdn.example.com/a.wav", "en-US", time.Now())
	if len(got.Segments) != 0 {
		t.Fatalf("expected no segments, got %d", len(got.Segments))
	}
	if got.Metadata.Duration != 0 || got.Metadata.SpeakingTime != 0 {
		t.Fatalf("expected zero durations, got %+v", got.Metadata)
	}
}

func TestBuildDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	raws := []RawUtteranceAssessment{
		rawUtterance("Hello world.",
			rawWord("hello", 100, 400, 95),
			rawWord("world", 550, 380, 82),
		),
	}

	a := Build(raws, "url", "en-US", now)
	b := Build(raws, "url", "en-US", now)

	aj, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	bj, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(aj) != string(bj) {
		t.Fatalf("expected identical transcripts\n%s\n%s", aj, bj)
	}
}

func TestBuildSegmentTiming(t *testing.T) {
	raws := []RawUtteranceAssessment{
		rawUtterance("Good morning.",
			rawWord("good", 120, 300, 90),
			rawWord("morning", 480, 520, 88),
		),
	}
	got := Build(raws, "url", "en-US", time.Now())
	if len(got.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(got.Segments))
	}
	seg := got.Segments[0]
	if seg.StartTime != 120 {
		t.Fatalf("expected start 120, got %d", seg.StartTime)
	}
	if seg.EndTime != 480+520 {
		t.Fatalf("expected end 1000, got %d", seg.EndTime)
	}
	if seg.Text != "Good morning." {
		t.Fatalf("expected engine display text, got %q", seg.Text)
	}
	if got.Metadata.Duration != seg.EndTime {
		t.Fatalf("expected duration from last segment end, got %d", got.Metadata.Duration)
	}
	if got.Metadata.SpeakingTime != 300+520 {
		t.Fatalf("expected speaking time 820, got %d", got.Metadata.SpeakingTime)
	}
}

func TestBuildDropsSegmentsWithoutWords(t *testing.T) {
	raws := []RawUtteranceAssessment{
		{RecognitionStatus: "Success", DisplayText: "silence"},
		{RecognitionStatus: "Success", DisplayText: "empty", NBest: []RawHypothesis{{Display: "empty"}}},
		rawUtterance("Kept.", rawWord("kept", 0, 200, 75)),
	}
	got := Build(raws, "url", "en-US", time.Now())
	if len(got.Segments) != 1 {
		t.Fatalf("expected only the populated segment, got %d", len(got.Segments))
	}
	if got.Segments[0].Text != "Kept." {
		t.Fatalf("unexpected surviving segment %q", got.Segments[0].Text)
	}
}

func TestDuplicatedWords(t *testing.T) {
	raws := []RawUtteranceAssessment{
		rawUtterance("The the book.",
			rawWord("The", 0, 150, 90),
			rawWord("the", 200, 150, 85),
			rawWord("book", 400, 300, 92),
		),
	}
	got := Build(raws, "url", "en-US", time.Now())
	words := got.Segments[0].Words
	if words[0].IsDuplicated {
		t.Fatal("first word must never be duplicated")
	}
	if !words[1].IsDuplicated {
		t.Fatal("expected case-insensitive duplicate flag on second word")
	}
	if words[2].IsDuplicated {
		t.Fatal("book is not a duplicate")
	}
}

func TestDuplicationDoesNotCrossSegments(t *testing.T) {
	raws := []RawUtteranceAssessment{
		rawUtterance("Stop.", rawWord("stop", 0, 200, 90)),
		rawUtterance("Stop.", rawWord("stop", 1000, 200, 90)),
	}
	got := Build(raws, "url", "en-US", time.Now())
	if got.Segments[1].Words[0].IsDuplicated {
		t.Fatal("duplication must only consider the previous word within the same segment")
	}
}

func TestPhonemeCorrectness(t *testing.T) {
	w := rawWord("cat", 0, 300, 70)
	w.Phonemes = []RawPhoneme{
		{
			Phoneme: "k",
			PronunciationAssessment: &RawPhonemeAssessment{
				AccuracyScore: 95,
				NBestPhonemes: []RawPhonemeCandidate{{Phoneme: "g", Score: 40}},
			},
		},
		{
			Phoneme: "æ",
			PronunciationAssessment: &RawPhonemeAssessment{
				AccuracyScore: 42,
				NBestPhonemes: []RawPhonemeCandidate{{Phoneme: "ʌ", Score: 58}},
			},
		},
		{
			Phoneme: "t",
			PronunciationAssessment: &RawPhonemeAssessment{
				AccuracyScore: 60, // boundary: not strictly greater
			},
		},
	}
	got := Build([]RawUtteranceAssessment{rawUtterance("Cat.", w)}, "url", "en-US", time.Now())
	phonemes := got.Segments[0].Words[0].Phonemes

	if !phonemes[0].IsCorrect || phonemes[0].ActualPhoneme != "k" {
		t.Fatalf("correct phoneme must echo expected, got %+v", phonemes[0])
	}
	if phonemes[1].IsCorrect {
		t.Fatal("accuracy 42 must not be correct")
	}
	if phonemes[1].ActualPhoneme != "ʌ" {
		t.Fatalf("expected top alternative for incorrect phoneme, got %q", phonemes[1].ActualPhoneme)
	}
	if phonemes[2].IsCorrect {
		t.Fatal("accuracy exactly 60 must not count as correct")
	}
	if phonemes[2].ActualPhoneme != "" {
		t.Fatalf("no alternative reported, actual must be empty, got %q", phonemes[2].ActualPhoneme)
	}
	if got.Segments[0].Words[0].ActualPronunciation != "k" {
		t.Fatalf("actual pronunciation must concatenate correct phonemes only, got %q",
			got.Segments[0].Words[0].ActualPronunciation)
	}
}

func TestExpectedPronunciationFromSyllables(t *testing.T) {
	w := rawWord("morning", 0, 500, 88)
	w.Syllables = []RawSyllable{
		{Syllable: "mɔːr", Grapheme: "mor", Offset: 0, Duration: 250 * ticksPerMillisecond,
			PronunciationAssessment: &RawSyllableAssessment{AccuracyScore: 91}},
		{Syllable: "nɪŋ", Grapheme: "ning", Offset: 250 * ticksPerMillisecond, Duration: 250 * ticksPerMillisecond,
			PronunciationAssessment: &RawSyllableAssessment{AccuracyScore: 84}},
	}
	got := Build([]RawUtteranceAssessment{rawUtterance("Morning.", w)}, "url", "en-US", time.Now())
	word := got.Segments[0].Words[0]
	if word.ExpectedPronunciation != "mɔːrnɪŋ" {
		t.Fatalf("expected syllable concatenation, got %q", word.ExpectedPronunciation)
	}
	if len(word.Syllables) != 2 || word.Syllables[0].AccuracyScore != 91 {
		t.Fatalf("unexpected syllables %+v", word.Syllables)
	}
	if word.Syllables[1].Offset != 250 || word.Syllables[1].Duration != 250 {
		t.Fatalf("expected tick conversion on syllable timing, got %+v", word.Syllables[1])
	}
}

func TestErrorClassification(t *testing.T) {
	w := rawWord("probably", 0, 600, 30)
	w.PronunciationAssessment.ErrorType = "Mispronunciation"
	w.PronunciationAssessment.Feedback = &RawFeedback{
		Prosody: &RawProsodyFeedback{
			Break: &RawBreakFeedback{
				ErrorTypes:      []string{"UnexpectedBreak"},
				UnexpectedBreak: &RawBreakDetail{Confidence: 0.72},
			},
			Intonation: &RawIntonationFeedback{
				ErrorTypes: []string{"Monotone"},
				Monotone:   &RawMonotoneDetail{SyllablePitchDeltaConfidence: 0.81},
			},
		},
	}
	got := Build([]RawUtteranceAssessment{rawUtterance("Probably.", w)}, "url", "en-US", time.Now())
	errs := got.Segments[0].Words[0].Errors
	if len(errs) != 3 {
		t.Fatalf("expected 3 annotations, got %+v", errs)
	}
	byType := map[ErrorType]float64{}
	for _, e := range errs {
		byType[e.Type] = e.Confidence
	}
	if byType[ErrorMispronunciation] != 70 {
		t.Fatalf("expected inverted accuracy 70, got %v", byType[ErrorMispronunciation])
	}
	if !approx(byType[ErrorUnexpectedBreak], 72) {
		t.Fatalf("expected rescaled break confidence 72, got %v", byType[ErrorUnexpectedBreak])
	}
	if !approx(byType[ErrorMonotone], 81) {
		t.Fatalf("expected rescaled pitch confidence 81, got %v", byType[ErrorMonotone])
	}
}

func TestMissingBreakClassification(t *testing.T) {
	w := rawWord("and", 0, 200, 85)
	w.PronunciationAssessment.Feedback = &RawFeedback{
		Prosody: &RawProsodyFeedback{
			Break: &RawBreakFeedback{
				ErrorTypes:   []string{"MissingBreak"},
				MissingBreak: &RawBreakDetail{Confidence: 0.55},
			},
		},
	}
	got := Build([]RawUtteranceAssessment{rawUtterance("And.", w)}, "url", "en-US", time.Now())
	errs := got.Segments[0].Words[0].Errors
	if len(errs) != 1 || errs[0].Type != ErrorMissingBreak || !approx(errs[0].Confidence, 55) {
		t.Fatalf("unexpected annotations %+v", errs)
	}
}

func TestOverallFromFirstUtteranceOnly(t *testing.T) {
	first := rawUtterance("One.", rawWord("one", 0, 200, 90))
	second := rawUtterance("Two.", rawWord("two", 1000, 200, 10))
	second.NBest[0].PronunciationAssessment = &RawUtteranceScores{AccuracyScore: 10, PronScore: 10}

	got := Build([]RawUtteranceAssessment{first, second}, "url", "en-US", time.Now())
	if got.Overall.Accuracy != 88 || got.Overall.Pronunciation != 86 {
		t.Fatalf("overall must come from the first utterance, got %+v", got.Overall)
	}
}

func TestSingleWordScenario(t *testing.T) {
	raws := []RawUtteranceAssessment{rawUtterance("Hello.", rawWord("hello", 300, 2400, 97))}
	got := Build(raws, "https://cdn.example.com/clip.wav", "en-US", time.Now())
	if len(got.Segments) != 1 || len(got.Segments[0].Words) != 1 {
		t.Fatalf("expected exactly one segment and word, got %+v", got.Segments)
	}
	w := got.Segments[0].Words[0]
	if len(w.Errors) != 0 {
		t.Fatalf("clean word must carry no error annotations, got %+v", w.Errors)
	}
	if w.IsDuplicated {
		t.Fatal("single word cannot be duplicated")
	}
	if got.Segments[0].EndTime < 0 || got.Segments[0].EndTime != 2700 {
		t.Fatalf("unexpected end time %d", got.Segments[0].EndTime)
	}
}
