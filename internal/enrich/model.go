// Package enrich turns a batch of play events into enriched records by
// attaching weather and a batch-wide mood, degrading per field instead of
// dropping tracks when a collaborator fails.
package enrich

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ademuri/mood-tools/internal/mood"
)

// Rendered markers for values that could not be resolved.
const (
	Unavailable            = "unavailable"
	UnknownTempoText       = "unknown"
	MoodWeatherUnavailable = "weather data unavailable"
	MoodLLMUnavailable     = "LLM service unavailable"
)

// Tempo is a track's BPM, or unknown.
type Tempo struct {
	BPM   float64
	Known bool
}

// UnknownTempo marks a track whose BPM could not be found.
var UnknownTempo = Tempo{}

// KnownTempo returns UnknownTempo for non-positive BPMs.
func KnownTempo(bpm float64) Tempo {
	if bpm <= 0 {
		return UnknownTempo
	}
	return Tempo{BPM: bpm, Known: true}
}

func (t Tempo) String() string {
	if !t.Known {
		return UnknownTempoText
	}
	return strconv.FormatFloat(t.BPM, 'f', -1, 64)
}

// PlayEvent is one observed playback. Sequence is the 1-based position in
// the fetched batch.
type PlayEvent struct {
	Sequence   int
	TrackName  string
	ArtistName string
	PlayedAt   time.Time
	Tempo      Tempo
}

// WeatherObservation is the ambient conditions at one timestamp.
type WeatherObservation struct {
	Temperature *float64
	Condition   string
}

// Valid reports whether both temperature and condition are present.
func (o WeatherObservation) Valid() bool {
	return o.Temperature != nil && strings.TrimSpace(o.Condition) != ""
}

// MoodPrediction is the single label computed for a run.
type MoodPrediction struct {
	Label mood.Label
	OK    bool
}

// Field is a value that is either present or explicitly unavailable.
// Reason says why it is unavailable.
type Field[T any] struct {
	Value     T
	Available bool
	Reason    string
}

// Known wraps a resolved value.
func Known[T any](v T) Field[T] {
	return Field[T]{Value: v, Available: true}
}

// Missing marks a field unavailable for reason.
func Missing[T any](reason string) Field[T] {
	return Field[T]{Reason: reason}
}

func (f Field[T]) String() string {
	if !f.Available {
		return Unavailable
	}
	switch v := any(f.Value).(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// EnrichedRecord is the pipeline output for one PlayEvent.
type EnrichedRecord struct {
	PlayEvent
	TimeOfDay   mood.Bucket
	WeatherOK   bool
	Temperature Field[float64]
	Condition   Field[string]
	Mood        Field[mood.Label]
}

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeEmpty              Outcome = "empty"
	OutcomeFullyEnriched      Outcome = "fully_enriched"
	OutcomeWeatherOnly        Outcome = "weather_only"
	OutcomeWeatherUnavailable Outcome = "weather_unavailable"
)

// Result is everything one run produced.
type Result struct {
	Records   []EnrichedRecord
	Outcome   Outcome
	WeatherOK bool
	LLMOK     bool
	Mood      MoodPrediction
}

// MoodNote describes the batch mood for humans, including why it is missing.
func (r Result) MoodNote() string {
	switch r.Outcome {
	case OutcomeWeatherUnavailable:
		return MoodWeatherUnavailable
	case OutcomeWeatherOnly:
		return MoodLLMUnavailable
	case OutcomeFullyEnriched:
		return r.Mood.Label.String()
	default:
		return ""
	}
}
