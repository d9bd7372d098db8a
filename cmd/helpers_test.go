package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ademuri/mood-tools/internal/enrich"
	"github.com/ademuri/mood-tools/internal/mood"
	"github.com/ademuri/mood-tools/internal/store"
)

func createTestDb(t *testing.T) (*store.Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "mood.db")

	db, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New(%s) error: %v", dbPath, err)
	}
	t.Cleanup(func() { db.Close() })
	return db, dbPath
}

type fakeSource struct {
	events []enrich.PlayEvent
	err    error
}

func (f fakeSource) RecentlyPlayed(ctx context.Context, limit int) ([]enrich.PlayEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

type fakeTempo map[string]float64

func (f fakeTempo) Tempo(ctx context.Context, artist, track string) enrich.Tempo {
	return enrich.KnownTempo(f[track])
}

type fakeWeather struct {
	fail bool
}

func (f fakeWeather) Lookup(ctx context.Context, at time.Time) (enrich.WeatherObservation, error) {
	if f.fail {
		return enrich.WeatherObservation{}, errors.New("weather service down")
	}
	temp := 21.5
	return enrich.WeatherObservation{Temperature: &temp, Condition: "Clouds"}, nil
}

type fakePredictor struct {
	label mood.Label
	err   error
}

func (f fakePredictor) Predict(ctx context.Context, batch []mood.BatchItem) (mood.Label, error) {
	return f.label, f.err
}

func testEvents() []enrich.PlayEvent {
	base := time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)
	return []enrich.PlayEvent{
		{Sequence: 1, TrackName: "Midnight City", ArtistName: "M83", PlayedAt: base},
		{Sequence: 2, TrackName: "Teardrop", ArtistName: "Massive Attack", PlayedAt: base.Add(-5 * time.Minute)},
		{Sequence: 3, TrackName: "Roygbiv", ArtistName: "Boards of Canada", PlayedAt: base.Add(-10 * time.Minute)},
	}
}
