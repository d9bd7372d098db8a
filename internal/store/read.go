package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/ademuri/mood-tools/internal/enrich"
	"github.com/ademuri/mood-tools/internal/mood"
)

var ErrRunNotFound = errors.New("run not found")

// RunSummary is one line of run history.
type RunSummary struct {
	ID      string
	Created time.Time
	Source  string
	Outcome enrich.Outcome
	Mood    string
	Tracks  int
}

// ListRuns returns the n most recent runs, newest first.
func (s *Store) ListRuns(n int) ([]RunSummary, error) {
	query := `
		SELECT r.id, r.created, r.source, r.outcome, r.mood, COUNT(rec.sequence)
		FROM Run r
		LEFT JOIN Record rec ON rec.run = r.id
		GROUP BY r.id
		ORDER BY r.created DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r       RunSummary
			outcome string
			label   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Created, &r.Source, &outcome, &label, &r.Tracks); err != nil {
			return nil, err
		}
		r.Outcome = enrich.Outcome(outcome)
		r.Mood = moodNote(r.Outcome, label)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func moodNote(outcome enrich.Outcome, label sql.NullString) string {
	if label.Valid {
		return label.String
	}
	return enrich.Result{Outcome: outcome}.MoodNote()
}

// GetRun loads a run with its records in sequence order.
func (s *Store) GetRun(id string) (Run, error) {
	row := s.db.QueryRow("SELECT id, created, source, units, outcome, weather_ok, llm_ok, mood FROM Run WHERE id = ?", id)
	return s.scanRun(row)
}

// LatestRun loads the most recently created run.
func (s *Store) LatestRun() (Run, error) {
	row := s.db.QueryRow("SELECT id, created, source, units, outcome, weather_ok, llm_ok, mood FROM Run ORDER BY created DESC LIMIT 1")
	return s.scanRun(row)
}

func (s *Store) scanRun(row *sql.Row) (Run, error) {
	var (
		run     Run
		outcome string
		label   sql.NullString
	)
	err := row.Scan(&run.ID, &run.Created, &run.Source, &run.Units, &outcome, &run.Result.WeatherOK, &run.Result.LLMOK, &label)
	if err == sql.ErrNoRows {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	run.Result.Outcome = enrich.Outcome(outcome)
	if label.Valid {
		l, err := mood.ParseLabel(label.String)
		if err != nil {
			return Run{}, fmt.Errorf("run %q: %w", run.ID, err)
		}
		run.Result.Mood = enrich.MoodPrediction{Label: l, OK: true}
	}

	records, err := s.getRecords(run.ID)
	if err != nil {
		return Run{}, err
	}
	run.Result.Records = records
	return run, nil
}

func (s *Store) getRecords(runID string) ([]enrich.EnrichedRecord, error) {
	query := `
		SELECT sequence, track, artist, played_at, tempo, time_of_day, weather_ok, temperature, condition, mood, unavailable_reason
		FROM Record
		WHERE run = ?
		ORDER BY sequence ASC
	`
	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	records := []enrich.EnrichedRecord{}
	for rows.Next() {
		var (
			rec         enrich.EnrichedRecord
			playedAt    string
			tempo       sql.NullFloat64
			bucket      string
			temperature sql.NullFloat64
			condition   sql.NullString
			label       sql.NullString
			reason      sql.NullString
		)
		if err := rows.Scan(&rec.Sequence, &rec.TrackName, &rec.ArtistName, &playedAt, &tempo, &bucket,
			&rec.WeatherOK, &temperature, &condition, &label, &reason); err != nil {
			return nil, err
		}

		rec.PlayedAt, err = time.Parse(time.RFC3339Nano, playedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing played_at %q: %w", playedAt, err)
		}
		rec.TimeOfDay = mood.Bucket(bucket)
		rec.Tempo = enrich.UnknownTempo
		if tempo.Valid {
			rec.Tempo = enrich.KnownTempo(tempo.Float64)
		}

		rec.Temperature = enrich.Missing[float64](enrich.Unavailable)
		if temperature.Valid {
			rec.Temperature = enrich.Known(temperature.Float64)
		}
		rec.Condition = enrich.Missing[string](enrich.Unavailable)
		if condition.Valid {
			rec.Condition = enrich.Known(condition.String)
		}

		switch {
		case label.Valid:
			l, err := mood.ParseLabel(label.String)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", rec.Sequence, err)
			}
			rec.Mood = enrich.Known(l)
		case reason.Valid:
			rec.Mood = enrich.Missing[mood.Label](reason.String)
		default:
			rec.Mood = enrich.Missing[mood.Label](enrich.Unavailable)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetTempo returns a cached BPM, if any.
func (s *Store) GetTempo(artist, track string) (float64, bool, error) {
	a, t := tempoKey(artist, track)
	row := s.db.QueryRow("SELECT bpm FROM Tempo WHERE artist = ? AND track = ?", a, t)
	var bpm float64
	err := row.Scan(&bpm)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("getting cached tempo: %w", err)
	}
	return bpm, true, nil
}

// LoadToken returns the stored token for service, or nil if none was saved.
func (s *Store) LoadToken(service string) (*oauth2.Token, error) {
	row := s.db.QueryRow("SELECT token FROM Token WHERE service = ?", service)
	var encoded string
	err := row.Scan(&encoded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s token: %w", service, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(encoded), &token); err != nil {
		return nil, fmt.Errorf("decoding %s token: %w", service, err)
	}
	return &token, nil
}
