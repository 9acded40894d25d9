package assessment

// RawUtteranceAssessment is one finalized recognition result exactly as the
// engine reports it on its JSON side channel. The typed result surface does
// not expose the phoneme and syllable tree, so this is the only shape the
// rest of the pipeline consumes. Immutable once received.
type RawUtteranceAssessment struct {
	ID                string          `json:"Id,omitempty"`
	RecognitionStatus string          `json:"RecognitionStatus"`
	Offset            int64           `json:"Offset"`
	Duration          int64           `json:"Duration"`
	DisplayText       string          `json:"DisplayText"`
	SNR               float64         `json:"SNR,omitempty"`
	NBest             []RawHypothesis `json:"NBest"`
}

// RawHypothesis is one ranked interpretation of an utterance. Index 0 is the
// best hypothesis and the only one the builder reads.
type RawHypothesis struct {
	Confidence              float64               `json:"Confidence"`
	Lexical                 string                `json:"Lexical"`
	ITN                     string                `json:"ITN"`
	MaskedITN               string                `json:"MaskedITN"`
	Display                 string                `json:"Display"`
	PronunciationAssessment *RawUtteranceScores   `json:"PronunciationAssessment,omitempty"`
	Words                   []RawWord             `json:"Words"`
}

type RawUtteranceScores struct {
	AccuracyScore     float64 `json:"AccuracyScore"`
	FluencyScore      float64 `json:"FluencyScore"`
	ProsodyScore      float64 `json:"ProsodyScore"`
	CompletenessScore float64 `json:"CompletenessScore"`
	PronScore         float64 `json:"PronScore"`
}

type RawWord struct {
	Word                    string             `json:"Word"`
	Offset                  int64              `json:"Offset"`
	Duration                int64              `json:"Duration"`
	PronunciationAssessment *RawWordAssessment `json:"PronunciationAssessment,omitempty"`
	Syllables               []RawSyllable      `json:"Syllables,omitempty"`
	Phonemes                []RawPhoneme       `json:"Phonemes,omitempty"`
}

type RawWordAssessment struct {
	AccuracyScore float64      `json:"AccuracyScore"`
	ErrorType     string       `json:"ErrorType,omitempty"`
	Feedback      *RawFeedback `json:"Feedback,omitempty"`
}

type RawSyllable struct {
	Syllable                string                 `json:"Syllable"`
	Grapheme                string                 `json:"Grapheme,omitempty"`
	Offset                  int64                  `json:"Offset"`
	Duration                int64                  `json:"Duration"`
	PronunciationAssessment *RawSyllableAssessment `json:"PronunciationAssessment,omitempty"`
}

type RawSyllableAssessment struct {
	AccuracyScore float64 `json:"AccuracyScore"`
}

type RawPhoneme struct {
	Phoneme                 string                `json:"Phoneme"`
	Offset                  int64                 `json:"Offset"`
	Duration                int64                 `json:"Duration"`
	PronunciationAssessment *RawPhonemeAssessment `json:"PronunciationAssessment,omitempty"`
}

type RawPhonemeAssessment struct {
	AccuracyScore float64               `json:"AccuracyScore"`
	NBestPhonemes []RawPhonemeCandidate `json:"NBestPhonemes,omitempty"`
}

type RawPhonemeCandidate struct {
	Phoneme string  `json:"Phoneme"`
	Score   float64 `json:"Score"`
}

// RawFeedback carries the engine's prosody diagnostics per word.
type RawFeedback struct {
	Prosody *RawProsodyFeedback `json:"Prosody,omitempty"`
}

type RawProsodyFeedback struct {
	Break      *RawBreakFeedback      `json:"Break,omitempty"`
	Intonation *RawIntonationFeedback `json:"Intonation,omitempty"`
}

type RawBreakFeedback struct {
	ErrorTypes      []string        `json:"ErrorTypes,omitempty"`
	UnexpectedBreak *RawBreakDetail `json:"UnexpectedBreak,omitempty"`
	MissingBreak    *RawBreakDetail `json:"MissingBreak,omitempty"`
	BreakLength     int64           `json:"BreakLength,omitempty"`
}

type RawBreakDetail struct {
	Confidence float64 `json:"Confidence"`
}

type RawIntonationFeedback struct {
	ErrorTypes []string            `json:"ErrorTypes,omitempty"`
	Monotone   *RawMonotoneDetail  `json:"Monotone,omitempty"`
}

type RawMonotoneDetail struct {
	SyllablePitchDeltaConfidence float64 `json:"SyllablePitchDeltaConfidence"`
}

// engine error type names as they appear in word assessments
const (
	rawErrorMispronunciation = "Mispronunciation"
	rawErrorUnexpectedBreak  = "UnexpectedBreak"
	rawErrorMissingBreak     = "MissingBreak"
	rawErrorMonotone         = "Monotone"
)
