// Package lastfm reads recent scrobbles as play events.
package lastfm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ademuri/lastfm-go/lastfm"
	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"github.com/ademuri/mood-tools/internal/enrich"
)

// MaxLimit is the largest page user.getRecentTracks serves.
const MaxLimit = 200

var ErrMissingCredentials = errors.New("missing last.fm API key, secret or user")

// recentTracksAPI is the part of the last.fm user API used here.
type recentTracksAPI interface {
	GetRecentTracks(args map[string]interface{}) (lastfm.UserGetRecentTracks, error)
}

type Config struct {
	APIKey   string
	Secret   string
	User     string
	Location *time.Location
	Attempts uint
}

type Source struct {
	api      recentTracksAPI
	user     string
	loc      *time.Location
	attempts uint
	log      *zap.Logger
}

var _ enrich.TrackSource = (*Source)(nil)

func NewSource(cfg Config, log *zap.Logger) (*Source, error) {
	if cfg.APIKey == "" || cfg.Secret == "" || cfg.User == "" {
		return nil, ErrMissingCredentials
	}
	client := lastfm.New(cfg.APIKey, cfg.Secret)
	client.SetUserAgent("mood-tools/1.0")
	return newSource(client.User, cfg, log), nil
}

func newSource(api recentTracksAPI, cfg Config, log *zap.Logger) *Source {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Source{
		api:      api,
		user:     strings.ToLower(cfg.User),
		loc:      cfg.Location,
		attempts: cfg.Attempts,
		log:      log,
	}
}

// RecentlyPlayed returns the newest scrobbles. The "now playing" entry has
// no timestamp and is skipped.
func (s *Source) RecentlyPlayed(ctx context.Context, limit int) ([]enrich.PlayEvent, error) {
	if limit < 1 || limit > MaxLimit {
		return nil, fmt.Errorf("limit %d out of range [1, %d]", limit, MaxLimit)
	}

	var recentTracks lastfm.UserGetRecentTracks
	err := retry.Do(
		func() error {
			var err error
			recentTracks, err = s.api.GetRecentTracks(lastfm.P{
				"limit": limit,
				"page":  1,
				"user":  s.user,
			})
			return err
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var lerr *lastfm.LastfmError
			if errors.As(err, &lerr) && lerr.Code/100 == 5 {
				s.log.Info("last.fm errored, retrying", zap.Error(lerr))
				return true
			}
			return false
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching recent tracks: %w", err)
	}

	events := make([]enrich.PlayEvent, 0, limit)
	for _, t := range recentTracks.Tracks {
		if len(events) == limit {
			break
		}
		if t.NowPlaying == "true" || t.Date.Uts == "" {
			continue
		}
		uts, err := strconv.ParseInt(t.Date.Uts, 10, 64)
		if err != nil {
			s.log.Warn("skipping scrobble with bad timestamp", zap.String("uts", t.Date.Uts), zap.String("track", t.Name))
			continue
		}
		events = append(events, enrich.PlayEvent{
			Sequence:   len(events) + 1,
			TrackName:  t.Name,
			ArtistName: t.Artist.Name,
			PlayedAt:   time.Unix(uts, 0).In(s.loc),
			Tempo:      enrich.UnknownTempo,
		})
	}
	return events, nil
}
