package mood

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyBatch = errors.New("mood prediction needs at least one track")

// BatchItem is one listened track as the model sees it.
type BatchItem struct {
	TrackName   string  `json:"track_name"`
	ArtistName  string  `json:"artist_name"`
	Tempo       string  `json:"tempo_bpm"`
	TimeOfDay   Bucket  `json:"time_of_day"`
	Condition   string  `json:"weather_condition"`
	Temperature float64 `json:"temperature"`
}

// Predictor returns the dominant mood across a whole batch.
type Predictor interface {
	Predict(ctx context.Context, batch []BatchItem) (Label, error)
}

type predictionRequest struct {
	Units  string      `json:"temperature_units,omitempty"`
	Tracks []BatchItem `json:"tracks"`
}

type predictionResponse struct {
	Mood string `json:"mood" jsonschema:"enum=happy,enum=angry,enum=sad,enum=energized"`
}

var instructions = "You infer how a listener is feeling from what they just played. " +
	"You receive JSON with the tracks, each with its tempo in BPM (or \"unknown\"), " +
	"the part of day it was played and the weather at that moment. " +
	"Weigh all tracks together and answer with the single dominant mood for the whole session. " +
	"Return ONLY a JSON object {\"mood\": <label>} where <label> is one of: " +
	strings.Join(labelStrings(), ", ") + "."

func buildPayload(units string, batch []BatchItem) ([]byte, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}
	payload, err := json.Marshal(predictionRequest{Units: units, Tracks: batch})
	if err != nil {
		return nil, fmt.Errorf("encoding batch: %w", err)
	}
	return payload, nil
}

// decodeModelJSON unmarshals the model output, tolerating text around the
// first JSON object.
func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return errors.New("empty model output")
	}

	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}

	sub := s[start : end+1]
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("unmarshalling extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}

// parseModelOutput turns raw model text into a label. Anything outside the
// closed set is an error, never a default.
func parseModelOutput(outputText string) (Label, error) {
	var out predictionResponse
	if err := decodeModelJSON(outputText, &out); err != nil {
		return "", fmt.Errorf("decoding mood: %w", err)
	}
	return ParseLabel(out.Mood)
}
