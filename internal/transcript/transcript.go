// Package transcript records timed conversation transcripts and
// persists them per room.
package transcript

// Word carries word-level timing within an utterance. Times are Unix
// seconds until rebased.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TimedTranscript is one conversation entry with timing information.
type TimedTranscript struct {
	Type    string  `json:"type"`
	Role    string  `json:"role"`
	Content string  `json:"content"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Words   []Word  `json:"words"`
}

// TypeTranscript is the default entry type.
const TypeTranscript = "transcript"
