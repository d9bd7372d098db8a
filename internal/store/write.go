package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ademuri/mood-tools/internal/enrich"
)

// Run is one persisted pipeline execution.
type Run struct {
	ID      string
	Created time.Time
	Source  string
	Units   string
	Result  enrich.Result
}

// SaveRun writes a run and all of its records in one transaction.
func (s *Store) SaveRun(run Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var moodLabel sql.NullString
	if run.Result.Mood.OK {
		moodLabel = sql.NullString{String: run.Result.Mood.Label.String(), Valid: true}
	}
	_, err = tx.Exec(
		"INSERT INTO Run (id, created, source, units, outcome, weather_ok, llm_ok, mood) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.Created.UTC(), run.Source, run.Units, string(run.Result.Outcome),
		run.Result.WeatherOK, run.Result.LLMOK, moodLabel)
	if err != nil {
		return fmt.Errorf("inserting run %q: %w", run.ID, err)
	}

	for _, rec := range run.Result.Records {
		if err := createRecord(tx, run.ID, rec); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func createRecord(tx *sql.Tx, runID string, rec enrich.EnrichedRecord) error {
	var (
		tempo       sql.NullFloat64
		temperature sql.NullFloat64
		condition   sql.NullString
		moodLabel   sql.NullString
		reason      sql.NullString
	)
	if rec.Tempo.Known {
		tempo = sql.NullFloat64{Float64: rec.Tempo.BPM, Valid: true}
	}
	if rec.Temperature.Available {
		temperature = sql.NullFloat64{Float64: rec.Temperature.Value, Valid: true}
	}
	if rec.Condition.Available {
		condition = sql.NullString{String: rec.Condition.Value, Valid: true}
	}
	if rec.Mood.Available {
		moodLabel = sql.NullString{String: rec.Mood.Value.String(), Valid: true}
	} else {
		reason = sql.NullString{String: rec.Mood.Reason, Valid: true}
	}

	_, err := tx.Exec(`
		INSERT INTO Record (run, sequence, track, artist, played_at, tempo, time_of_day, weather_ok, temperature, condition, mood, unavailable_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.Sequence, rec.TrackName, rec.ArtistName, rec.PlayedAt.Format(time.RFC3339Nano),
		tempo, string(rec.TimeOfDay), rec.WeatherOK, temperature, condition, moodLabel, reason)
	if err != nil {
		return fmt.Errorf("inserting record %d of run %q: %w", rec.Sequence, runID, err)
	}
	return nil
}

func tempoKey(artist, track string) (string, string) {
	return strings.ToLower(strings.TrimSpace(artist)), strings.ToLower(strings.TrimSpace(track))
}

// SaveTempo caches a known BPM. Unknown tempos are never cached.
func (s *Store) SaveTempo(artist, track string, bpm float64) error {
	if bpm <= 0 {
		return nil
	}
	a, t := tempoKey(artist, track)
	_, err := s.db.Exec("INSERT OR REPLACE INTO Tempo (artist, track, bpm, updated) VALUES (?, ?, ?, ?)",
		a, t, bpm, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("caching tempo for %q - %q: %w", artist, track, err)
	}
	return nil
}

func (s *Store) SaveToken(service string, token *oauth2.Token) error {
	encoded, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding %s token: %w", service, err)
	}
	_, err = s.db.Exec("INSERT OR REPLACE INTO Token (service, token, updated) VALUES (?, ?, ?)",
		service, string(encoded), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving %s token: %w", service, err)
	}
	return nil
}
