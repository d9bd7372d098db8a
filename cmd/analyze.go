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
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ademuri/mood-tools/internal/enrich"
	"github.com/ademuri/mood-tools/internal/report"
	"github.com/ademuri/mood-tools/internal/store"
	"github.com/ademuri/mood-tools/internal/weather"
)

type AnalyzeConfig struct {
	DbPath      string
	Source      string
	Limit       int
	Format      report.Format
	Save        bool
	Output      string
	Units       weather.Units
	Timezone    string
	Concurrency int
	Timeout     time.Duration
}

// analysisDeps are the collaborators of one run.
type analysisDeps struct {
	source    enrich.TrackSource
	tempo     enrich.TempoLookup
	weather   enrich.WeatherLookup
	predictor enrich.MoodPredictor
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Enriches recently played tracks and labels the mood",
	Long: `Fetches the most recently played tracks, looks up tempo and the weather
at each play time, and asks the model for one mood for the batch.

If any weather lookup fails, weather and mood are reported as unavailable for
every track. If only the model fails, weather is kept and the mood is reported
as unavailable.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := requireKeys("openweather_api_key"); err != nil {
			return err
		}
		switch viper.GetString("source") {
		case "spotify":
			return requireKeys("spotify_client_id", "spotify_client_secret")
		case "lastfm":
			return requireKeys("lastfm_api_key", "lastfm_secret", "user")
		default:
			return fmt.Errorf("unknown source %q (want spotify or lastfm)", viper.GetString("source"))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		format, err := report.ParseFormat(viper.GetString("format"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		units, err := weather.ParseUnits(viper.GetString("units"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		config := AnalyzeConfig{
			DbPath:      viper.GetString("database"),
			Source:      viper.GetString("source"),
			Limit:       viper.GetInt("limit"),
			Format:      format,
			Save:        viper.GetBool("save"),
			Output:      viper.GetString("output"),
			Units:       units,
			Timezone:    viper.GetString("timezone"),
			Concurrency: viper.GetInt("weather_concurrency"),
			Timeout:     viper.GetDuration("request_timeout"),
		}
		if err := analyzeRecent(cmd.Context(), config); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("source", "spotify", "Where to read plays from: spotify or lastfm")
	viper.BindPFlag("source", analyzeCmd.Flags().Lookup("source"))

	analyzeCmd.Flags().IntP("limit", "l", 10, "Number of recent tracks to analyze")
	viper.BindPFlag("limit", analyzeCmd.Flags().Lookup("limit"))

	analyzeCmd.Flags().StringP("format", "f", "table", "Output format: table, yaml or csv")
	viper.BindPFlag("format", analyzeCmd.Flags().Lookup("format"))

	analyzeCmd.Flags().Bool("save", false, "Store the run in the database")
	viper.BindPFlag("save", analyzeCmd.Flags().Lookup("save"))

	analyzeCmd.Flags().StringP("output", "o", "", "Write the report to this file instead of stdout")
	viper.BindPFlag("output", analyzeCmd.Flags().Lookup("output"))

	analyzeCmd.Flags().String("units", "metric", "Temperature units: metric or imperial")
	viper.BindPFlag("units", analyzeCmd.Flags().Lookup("units"))

	analyzeCmd.Flags().String("openweather_api_key", "", "OpenWeather API key")
	viper.BindPFlag("openweather_api_key", analyzeCmd.Flags().Lookup("openweather_api_key"))

	analyzeCmd.Flags().Float64("latitude", 0, "Latitude the tracks were played at")
	viper.BindPFlag("latitude", analyzeCmd.Flags().Lookup("latitude"))

	analyzeCmd.Flags().Float64("longitude", 0, "Longitude the tracks were played at")
	viper.BindPFlag("longitude", analyzeCmd.Flags().Lookup("longitude"))

	analyzeCmd.Flags().String("llm_api_key", "", "API key for the mood model")
	viper.BindPFlag("llm_api_key", analyzeCmd.Flags().Lookup("llm_api_key"))

	analyzeCmd.Flags().String("llm_base_url", "", "Base URL of an OpenAI-compatible API")
	viper.BindPFlag("llm_base_url", analyzeCmd.Flags().Lookup("llm_base_url"))

	analyzeCmd.Flags().String("llm_model", "gpt-4o-mini", "Model used to label the mood")
	viper.BindPFlag("llm_model", analyzeCmd.Flags().Lookup("llm_model"))

	analyzeCmd.Flags().Int("weather_concurrency", 1, "Weather lookups in flight at once")
	viper.BindPFlag("weather_concurrency", analyzeCmd.Flags().Lookup("weather_concurrency"))

	analyzeCmd.Flags().Duration("request_timeout", 15*time.Second, "Timeout for each outbound call")
	viper.BindPFlag("request_timeout", analyzeCmd.Flags().Lookup("request_timeout"))
}

func analyzeRecent(ctx context.Context, config AnalyzeConfig) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	loc, err := loadLocation(config.Timezone)
	if err != nil {
		return err
	}

	db, err := store.New(config.DbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	source, done, err := newTrackSource(ctx, config.Source, db, loc, log)
	if err != nil {
		return err
	}
	defer done()

	weatherClient, err := newWeatherLookup(config.Units, config.Timeout, log)
	if err != nil {
		return err
	}

	deps := analysisDeps{
		source:    source,
		tempo:     newTempoLookup(db, config.Timeout, log),
		weather:   weatherClient,
		predictor: newPredictor(config.Units, config.Timeout, log),
	}

	out := io.Writer(os.Stdout)
	if config.Output != "" {
		f, err := os.Create(config.Output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	_, err = runAnalysis(ctx, config, deps, db, out, log)
	return err
}

// runAnalysis collects, enriches, optionally stores, and renders one run.
func runAnalysis(ctx context.Context, config AnalyzeConfig, deps analysisDeps, db *store.Store, out io.Writer, log *zap.Logger) (report.Report, error) {
	events, err := enrich.Collect(ctx, deps.source, deps.tempo, config.Limit, log)
	if err != nil {
		return report.Report{}, err
	}

	pipeline := enrich.NewPipeline(deps.weather, deps.predictor,
		enrich.WithLogger(log),
		enrich.WithConcurrency(config.Concurrency),
		enrich.WithCallTimeout(config.Timeout),
	)
	result, err := pipeline.Enrich(ctx, events)
	if err != nil {
		return report.Report{}, fmt.Errorf("enriching tracks: %w", err)
	}

	r := report.Report{
		RunID:   uuid.NewString(),
		Created: time.Now(),
		Source:  config.Source,
		Units:   config.Units,
		Result:  result,
	}
	log.Info("run finished",
		zap.String("run", r.RunID),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("tracks", len(result.Records)))

	if config.Save {
		err := db.SaveRun(store.Run{
			ID:      r.RunID,
			Created: r.Created,
			Source:  r.Source,
			Units:   string(r.Units),
			Result:  result,
		})
		if err != nil {
			return r, fmt.Errorf("saving run: %w", err)
		}
	}

	if err := report.Render(out, config.Format, r); err != nil {
		return r, err
	}
	if config.Save {
		fmt.Fprintf(os.Stderr, "Saved run %s\n", r.RunID)
	}
	return r, nil
}
