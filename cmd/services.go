/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ademuri/mood-tools/internal/deezer"
	"github.com/ademuri/mood-tools/internal/enrich"
	"github.com/ademuri/mood-tools/internal/lastfm"
	"github.com/ademuri/mood-tools/internal/logging"
	"github.com/ademuri/mood-tools/internal/mood"
	"github.com/ademuri/mood-tools/internal/spotify"
	"github.com/ademuri/mood-tools/internal/store"
	"github.com/ademuri/mood-tools/internal/weather"
)

func newLogger() (*zap.Logger, error) {
	return logging.New(viper.GetString("log_level"), viper.GetString("log_format"))
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return loc, nil
}

func newSpotifyAuthenticator(db *store.Store, log *zap.Logger) (*spotify.Authenticator, error) {
	return spotify.NewAuthenticator(spotify.AuthConfig{
		ClientID:     viper.GetString("spotify_client_id"),
		ClientSecret: viper.GetString("spotify_client_secret"),
		RedirectURL:  viper.GetString("spotify_redirect_url"),
	}, db, log)
}

// newTrackSource returns the configured source and a hook to run once
// fetching is done.
func newTrackSource(ctx context.Context, name string, db *store.Store, loc *time.Location, log *zap.Logger) (enrich.TrackSource, func(), error) {
	switch name {
	case "spotify":
		auth, err := newSpotifyAuthenticator(db, log)
		if err != nil {
			return nil, nil, err
		}
		client, err := auth.Client(ctx)
		if err != nil {
			return nil, nil, err
		}
		done := func() {
			if err := auth.SaveRefreshed(client); err != nil {
				log.Warn("saving refreshed spotify token", zap.Error(err))
			}
		}
		return spotify.NewSource(client, loc), done, nil

	case "lastfm":
		src, err := lastfm.NewSource(lastfm.Config{
			APIKey:   viper.GetString("lastfm_api_key"),
			Secret:   viper.GetString("lastfm_secret"),
			User:     viper.GetString("user"),
			Location: loc,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown source %q (want spotify or lastfm)", name)
	}
}

func newTempoLookup(db *store.Store, timeout time.Duration, log *zap.Logger) *deezer.Client {
	return deezer.NewClient(deezer.Config{
		Timeout: timeout,
		Cache:   db,
	}, log)
}

func newWeatherLookup(units weather.Units, timeout time.Duration, log *zap.Logger) (*weather.Client, error) {
	return weather.NewClient(weather.Config{
		APIKey:    viper.GetString("openweather_api_key"),
		Latitude:  viper.GetFloat64("latitude"),
		Longitude: viper.GetFloat64("longitude"),
		Units:     units,
		Timeout:   timeout,
	}, log)
}

// newPredictor returns nil when no predictor can be built; the run then
// reports the mood as unavailable instead of failing.
func newPredictor(units weather.Units, timeout time.Duration, log *zap.Logger) enrich.MoodPredictor {
	p, err := mood.NewOpenAIPredictor(mood.OpenAIConfig{
		APIKey:     viper.GetString("llm_api_key"),
		BaseURL:    viper.GetString("llm_base_url"),
		Model:      viper.GetString("llm_model"),
		Units:      string(units),
		Timeout:    timeout,
		MaxRetries: 2,
	})
	if err != nil {
		log.Warn("mood predictor disabled", zap.Error(err))
		return nil
	}
	return p
}
