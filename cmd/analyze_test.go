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
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ademuri/mood-tools/internal/enrich"
	"github.com/ademuri/mood-tools/internal/mood"
	"github.com/ademuri/mood-tools/internal/report"
	"github.com/ademuri/mood-tools/internal/weather"
)

func TestRunAnalysis(t *testing.T) {
	tests := []struct {
		name        string
		deps        analysisDeps
		wantOutcome enrich.Outcome
		want        []string
	}{
		{
			name: "Fully enriched",
			deps: analysisDeps{
				source:    fakeSource{events: testEvents()},
				tempo:     fakeTempo{"Midnight City": 105},
				weather:   fakeWeather{},
				predictor: fakePredictor{label: mood.Sad},
			},
			wantOutcome: enrich.OutcomeFullyEnriched,
			want:        []string{"Midnight City", "105", "unknown", "21.5°C", "Clouds", "Mood: sad (fully_enriched, 2 tracks)"},
		},
		{
			name: "Weather down",
			deps: analysisDeps{
				source:    fakeSource{events: testEvents()},
				tempo:     fakeTempo{},
				weather:   fakeWeather{fail: true},
				predictor: fakePredictor{label: mood.Sad},
			},
			wantOutcome: enrich.OutcomeWeatherUnavailable,
			want:        []string{"unavailable", "weather data unavailable"},
		},
		{
			name: "No predictor configured",
			deps: analysisDeps{
				source:  fakeSource{events: testEvents()},
				tempo:   fakeTempo{},
				weather: fakeWeather{},
			},
			wantOutcome: enrich.OutcomeWeatherOnly,
			want:        []string{"Clouds", "LLM service unavailable"},
		},
		{
			name: "Predictor fails",
			deps: analysisDeps{
				source:    fakeSource{events: testEvents()},
				tempo:     fakeTempo{},
				weather:   fakeWeather{},
				predictor: fakePredictor{err: errors.New("rate limited")},
			},
			wantOutcome: enrich.OutcomeWeatherOnly,
			want:        []string{"LLM service unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _ := createTestDb(t)
			config := AnalyzeConfig{Source: "spotify", Limit: 2, Format: report.FormatTable, Units: weather.Metric, Save: true}

			var out bytes.Buffer
			r, err := runAnalysis(context.Background(), config, tt.deps, db, &out, zap.NewNop())
			if err != nil {
				t.Fatalf("runAnalysis: %v", err)
			}
			if r.Result.Outcome != tt.wantOutcome {
				t.Errorf("outcome = %q, want %q", r.Result.Outcome, tt.wantOutcome)
			}
			if len(r.Result.Records) != 2 {
				t.Errorf("got %d records, want 2", len(r.Result.Records))
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output missing %q:\n%s", w, out.String())
				}
			}

			stored, err := db.GetRun(r.RunID)
			if err != nil {
				t.Fatalf("GetRun(%s): %v", r.RunID, err)
			}
			if stored.Result.Outcome != tt.wantOutcome || len(stored.Result.Records) != 2 {
				t.Errorf("stored run = %+v", stored.Result)
			}
		})
	}
}

func TestRunAnalysisWithoutSave(t *testing.T) {
	db, _ := createTestDb(t)
	deps := analysisDeps{
		source:    fakeSource{events: testEvents()},
		tempo:     fakeTempo{},
		weather:   fakeWeather{},
		predictor: fakePredictor{label: mood.Happy},
	}
	config := AnalyzeConfig{Source: "lastfm", Limit: 10, Format: report.FormatYAML, Units: weather.Imperial}

	var out bytes.Buffer
	if _, err := runAnalysis(context.Background(), config, deps, db, &out, zap.NewNop()); err != nil {
		t.Fatalf("runAnalysis: %v", err)
	}
	if !strings.Contains(out.String(), "mood: happy") || !strings.Contains(out.String(), "units: imperial") {
		t.Errorf("yaml output:\n%s", out.String())
	}
	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected nothing stored, got %+v", runs)
	}
}

func TestRunAnalysisSourceError(t *testing.T) {
	db, _ := createTestDb(t)
	deps := analysisDeps{source: fakeSource{err: errors.New("token expired")}, weather: fakeWeather{}}
	config := AnalyzeConfig{Limit: 5, Format: report.FormatTable}

	_, err := runAnalysis(context.Background(), config, deps, db, &bytes.Buffer{}, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "token expired") {
		t.Errorf("err = %v", err)
	}
}

func TestRunAnalysisEmpty(t *testing.T) {
	db, _ := createTestDb(t)
	deps := analysisDeps{source: fakeSource{}, weather: fakeWeather{fail: true}}
	config := AnalyzeConfig{Limit: 5, Format: report.FormatTable}

	var out bytes.Buffer
	r, err := runAnalysis(context.Background(), config, deps, db, &out, zap.NewNop())
	if err != nil {
		t.Fatalf("runAnalysis: %v", err)
	}
	if r.Result.Outcome != enrich.OutcomeEmpty || !strings.Contains(out.String(), "No recently played tracks.") {
		t.Errorf("outcome %q, output:\n%s", r.Result.Outcome, out.String())
	}
}
