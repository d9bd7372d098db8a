package enrich

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Collect fetches a batch from src and fills in each event's tempo. A nil
// tempo lookup leaves every tempo unknown.
func Collect(ctx context.Context, src TrackSource, tempo TempoLookup, limit int, log *zap.Logger) ([]PlayEvent, error) {
	if log == nil {
		log = zap.NewNop()
	}

	events, err := src.RecentlyPlayed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching recently played: %w", err)
	}

	out := make([]PlayEvent, len(events))
	for i, e := range events {
		if tempo != nil {
			e.Tempo = tempo.Tempo(ctx, e.ArtistName, e.TrackName)
		}
		if !e.Tempo.Known {
			log.Debug("tempo unknown", zap.String("artist", e.ArtistName), zap.String("track", e.TrackName))
		}
		out[i] = e
	}
	return out, nil
}
