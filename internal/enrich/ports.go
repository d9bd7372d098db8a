package enrich

import (
	"context"
	"time"

	"github.com/ademuri/mood-tools/internal/mood"
)

// TrackSource supplies the most recent plays, most recent first, numbered
// from 1.
type TrackSource interface {
	RecentlyPlayed(ctx context.Context, limit int) ([]PlayEvent, error)
}

// TempoLookup never fails; it returns UnknownTempo instead.
type TempoLookup interface {
	Tempo(ctx context.Context, artist, track string) Tempo
}

// WeatherLookup returns the conditions at the configured location.
type WeatherLookup interface {
	Lookup(ctx context.Context, at time.Time) (WeatherObservation, error)
}

// MoodPredictor labels a whole batch.
type MoodPredictor interface {
	Predict(ctx context.Context, batch []mood.BatchItem) (mood.Label, error)
}
