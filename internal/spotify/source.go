// Package spotify reads recently played tracks from the Spotify Web API.
package spotify

import (
	"context"
	"fmt"
	"time"

	"github.com/zmb3/spotify/v2"

	"github.com/ademuri/mood-tools/internal/enrich"
)

// MaxLimit is the most recently played items the API returns in one call.
const MaxLimit = 50

// Source is a TrackSource backed by an authenticated Spotify client.
type Source struct {
	api *spotify.Client
	loc *time.Location
}

var _ enrich.TrackSource = (*Source)(nil)

// NewSource reports play times in loc, or UTC when loc is nil.
func NewSource(api *spotify.Client, loc *time.Location) *Source {
	if loc == nil {
		loc = time.UTC
	}
	return &Source{api: api, loc: loc}
}

func (s *Source) RecentlyPlayed(ctx context.Context, limit int) ([]enrich.PlayEvent, error) {
	if limit < 1 || limit > MaxLimit {
		return nil, fmt.Errorf("limit %d out of range [1, %d]", limit, MaxLimit)
	}

	items, err := s.api.PlayerRecentlyPlayedOpt(ctx, &spotify.RecentlyPlayedOptions{Limit: spotify.Numeric(limit)})
	if err != nil {
		return nil, fmt.Errorf("fetching recently played: %w", err)
	}

	events := make([]enrich.PlayEvent, 0, len(items))
	for _, item := range items {
		if len(events) == limit {
			break
		}
		events = append(events, convertItem(item, len(events)+1, s.loc))
	}
	return events, nil
}

func convertItem(item spotify.RecentlyPlayedItem, sequence int, loc *time.Location) enrich.PlayEvent {
	artist := ""
	if len(item.Track.Artists) > 0 {
		artist = item.Track.Artists[0].Name
	}
	return enrich.PlayEvent{
		Sequence:   sequence,
		TrackName:  item.Track.Name,
		ArtistName: artist,
		PlayedAt:   item.PlayedAt.In(loc),
		Tempo:      enrich.UnknownTempo,
	}
}
