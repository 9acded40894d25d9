package assessment

import "time"

// ErrorType classifies a word-level pronunciation problem.
type ErrorType string

const (
	ErrorMispronunciation ErrorType = "mispronunciation"
	ErrorUnexpectedBreak  ErrorType = "unexpected_break"
	ErrorMissingBreak     ErrorType = "missing_break"
	ErrorMonotone         ErrorType = "monotone"
)

// Transcript is the normalized assessment of one recording. All times are
// milliseconds from the start of the audio.
type Transcript struct {
	AudioURL string    `json:"audioUrl"`
	Segments []Segment `json:"segments"`
	Metadata Metadata  `json:"metadata"`
	Overall  Scores    `json:"overall"`
}

type Metadata struct {
	Duration       int64     `json:"duration"`
	SpeakingTime   int64     `json:"speakingTime"`
	Language       string    `json:"language"`
	AssessmentType string    `json:"assessmentType"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Scores struct {
	Accuracy      float64 `json:"accuracy"`
	Fluency       float64 `json:"fluency"`
	Prosody       float64 `json:"prosody"`
	Completeness  float64 `json:"completeness"`
	Pronunciation float64 `json:"pronunciation"`
}

// Segment is one continuous speech unit per the engine's voice-activity
// detection, bounded by detected pauses.
type Segment struct {
	ID              int     `json:"id"`
	StartTime       int64   `json:"startTime"`
	EndTime         int64   `json:"endTime"`
	Text            string  `json:"text"`
	Words           []Word  `json:"words"`
	OverallAccuracy float64 `json:"overallAccuracy"`
}

type Word struct {
	Word                  string            `json:"word"`
	Accuracy              float64           `json:"accuracy"`
	Offset                int64             `json:"offset"`
	Duration              int64             `json:"duration"`
	Phonemes              []Phoneme         `json:"phonemes"`
	Syllables             []Syllable        `json:"syllables"`
	Errors                []ErrorAnnotation `json:"errors"`
	IsStressed            bool              `json:"isStressed"`
	IsDuplicated          bool              `json:"isDuplicated"`
	ConfidenceScore       float64           `json:"confidenceScore"`
	ExpectedPronunciation string            `json:"expectedPronunciation"`
	ActualPronunciation   string            `json:"actualPronunciation"`
}

type Phoneme struct {
	Phoneme         string  `json:"phoneme"`
	Accuracy        float64 `json:"accuracy"`
	Offset          int64   `json:"offset"`
	Duration        int64   `json:"duration"`
	ExpectedPhoneme string  `json:"expectedPhoneme"`
	ActualPhoneme   string  `json:"actualPhoneme"`
	IsCorrect       bool    `json:"isCorrect"`
}

type Syllable struct {
	Syllable      string  `json:"syllable"`
	Grapheme      string  `json:"grapheme"`
	AccuracyScore float64 `json:"accuracyScore"`
	Offset        int64   `json:"offset"`
	Duration      int64   `json:"duration"`
}

type ErrorAnnotation struct {
	Type       ErrorType `json:"type"`
	Confidence float64   `json:"confidence"`
}
