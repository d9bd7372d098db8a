package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/ademuri/mood-tools/internal/enrich"
	"github.com/ademuri/mood-tools/internal/mood"
)

func createTestDb(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "mood.db")

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New(%s) error: %v", dbPath, err)
	}

	return store
}

func testRun(id string, created time.Time, outcome enrich.Outcome) Run {
	playedAt := time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)
	result := enrich.Result{Outcome: outcome}
	rec := enrich.EnrichedRecord{
		PlayEvent: enrich.PlayEvent{
			Sequence:   1,
			TrackName:  "Midnight City",
			ArtistName: "M83",
			PlayedAt:   playedAt,
			Tempo:      enrich.KnownTempo(105),
		},
		TimeOfDay: mood.Evening,
	}
	rec2 := rec
	rec2.Sequence = 2
	rec2.TrackName = "Teardrop"
	rec2.ArtistName = "Massive Attack"
	rec2.Tempo = enrich.UnknownTempo
	rec2.PlayedAt = playedAt.Add(-5 * time.Minute)

	switch outcome {
	case enrich.OutcomeFullyEnriched:
		result.WeatherOK, result.LLMOK = true, true
		result.Mood = enrich.MoodPrediction{Label: mood.Energized, OK: true}
		for _, r := range []*enrich.EnrichedRecord{&rec, &rec2} {
			r.WeatherOK = true
			r.Temperature = enrich.Known(11.3)
			r.Condition = enrich.Known("Clear")
			r.Mood = enrich.Known(mood.Energized)
		}
	case enrich.OutcomeWeatherUnavailable:
		for _, r := range []*enrich.EnrichedRecord{&rec, &rec2} {
			r.Temperature = enrich.Missing[float64](enrich.Unavailable)
			r.Condition = enrich.Missing[string](enrich.Unavailable)
			r.Mood = enrich.Missing[mood.Label](enrich.MoodWeatherUnavailable)
		}
		rec.WeatherOK = true
	}
	result.Records = []enrich.EnrichedRecord{rec, rec2}

	return Run{ID: id, Created: created, Source: "spotify", Units: "metric", Result: result}
}

func TestSaveAndGetRun(t *testing.T) {
	s := createTestDb(t)
	defer s.Close()

	created := time.Date(2024, 3, 10, 19, 0, 0, 0, time.UTC)
	want := testRun("run-1", created, enrich.OutcomeFullyEnriched)
	if err := s.SaveRun(want); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Source != "spotify" || got.Units != "metric" || !got.Created.Equal(created) {
		t.Errorf("run header = %+v", got)
	}
	if got.Result.Outcome != enrich.OutcomeFullyEnriched || !got.Result.Mood.OK || got.Result.Mood.Label != mood.Energized {
		t.Errorf("result = %+v", got.Result)
	}
	if len(got.Result.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(got.Result.Records))
	}

	first := got.Result.Records[0]
	if first.Sequence != 1 || first.TrackName != "Midnight City" || !first.PlayedAt.Equal(want.Result.Records[0].PlayedAt) {
		t.Errorf("first record = %+v", first)
	}
	if first.Tempo != enrich.KnownTempo(105) {
		t.Errorf("first tempo = %v", first.Tempo)
	}
	if first.Temperature != enrich.Known(11.3) || first.Condition != enrich.Known("Clear") || first.Mood != enrich.Known(mood.Energized) {
		t.Errorf("first enrichment = %+v %+v %+v", first.Temperature, first.Condition, first.Mood)
	}
	if first.TimeOfDay != mood.Evening {
		t.Errorf("time of day = %q", first.TimeOfDay)
	}
	if got.Result.Records[1].Tempo.Known {
		t.Errorf("second tempo should be unknown, got %v", got.Result.Records[1].Tempo)
	}
}

func TestSaveRunKeepsUnavailableReasons(t *testing.T) {
	s := createTestDb(t)
	defer s.Close()

	if err := s.SaveRun(testRun("run-2", time.Now(), enrich.OutcomeWeatherUnavailable)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	got, err := s.GetRun("run-2")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Result.Mood.OK {
		t.Errorf("mood should not be set: %+v", got.Result.Mood)
	}
	for _, rec := range got.Result.Records {
		if rec.Temperature.Available || rec.Condition.Available || rec.Mood.Available {
			t.Errorf("record %d has values: %+v", rec.Sequence, rec)
		}
		if rec.Mood.Reason != enrich.MoodWeatherUnavailable {
			t.Errorf("record %d mood reason = %q", rec.Sequence, rec.Mood.Reason)
		}
		if rec.Temperature.String() != enrich.Unavailable {
			t.Errorf("record %d temperature = %q", rec.Sequence, rec.Temperature.String())
		}
	}
	if !got.Result.Records[0].WeatherOK || got.Result.Records[1].WeatherOK {
		t.Errorf("per-record weather flags not preserved")
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := createTestDb(t)
	defer s.Close()

	if _, err := s.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun err = %v, want ErrRunNotFound", err)
	}
	if _, err := s.LatestRun(); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LatestRun err = %v, want ErrRunNotFound", err)
	}
}

func TestListRunsAndLatest(t *testing.T) {
	s := createTestDb(t)
	defer s.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := []Run{
		testRun("old", base, enrich.OutcomeWeatherUnavailable),
		testRun("new", base.Add(2*time.Hour), enrich.OutcomeFullyEnriched),
		testRun("mid", base.Add(time.Hour), enrich.OutcomeWeatherUnavailable),
	}
	for _, r := range runs {
		if err := s.SaveRun(r); err != nil {
			t.Fatalf("SaveRun(%s): %v", r.ID, err)
		}
	}

	summaries, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != "new" || summaries[1].ID != "mid" {
		t.Fatalf("ListRuns(2) = %+v", summaries)
	}
	if summaries[0].Mood != "energized" || summaries[0].Tracks != 2 {
		t.Errorf("newest summary = %+v", summaries[0])
	}
	if summaries[1].Mood != enrich.MoodWeatherUnavailable {
		t.Errorf("mid summary mood = %q", summaries[1].Mood)
	}

	latest, err := s.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != "new" {
		t.Errorf("LatestRun = %q, want new", latest.ID)
	}
}

func TestSaveRunDuplicateID(t *testing.T) {
	s := createTestDb(t)
	defer s.Close()

	r := testRun("dup", time.Now(), enrich.OutcomeFullyEnriched)
	if err := s.SaveRun(r); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.SaveRun(r); err == nil {
		t.Fatal("expected error saving duplicate run")
	}
	summaries, err := s.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Tracks != 2 {
		t.Errorf("failed save left partial rows: %+v", summaries)
	}
}

func TestTempoCache(t *testing.T) {
	s := createTestDb(t)
	defer s.Close()

	if _, ok, err := s.GetTempo("M83", "Midnight City"); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	if err := s.SaveTempo("M83", "Midnight City", 105); err != nil {
		t.Fatalf("SaveTempo: %v", err)
	}
	if err := s.SaveTempo("Nobody", "Nothing", 0); err != nil {
		t.Fatalf("SaveTempo unknown: %v", err)
	}

	bpm, ok, err := s.GetTempo(" m83", "MIDNIGHT CITY")
	if err != nil || !ok || bpm != 105 {
		t.Errorf("GetTempo = %v, %v, %v", bpm, ok, err)
	}
	if _, ok, _ := s.GetTempo("Nobody", "Nothing"); ok {
		t.Error("unknown tempo should not be cached")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	s := createTestDb(t)
	defer s.Close()

	tok, err := s.LoadToken("spotify")
	if err != nil || tok != nil {
		t.Fatalf("LoadToken on empty store = %v, %v", tok, err)
	}

	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.SaveToken("spotify", &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: expiry}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	if err := s.SaveToken("spotify", &oauth2.Token{AccessToken: "b", RefreshToken: "r", TokenType: "Bearer", Expiry: expiry}); err != nil {
		t.Fatalf("SaveToken (replace): %v", err)
	}

	tok, err = s.LoadToken("spotify")
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if tok.AccessToken != "b" || tok.RefreshToken != "r" || !tok.Expiry.Equal(expiry) {
		t.Errorf("token = %+v", tok)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mood.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SaveRun(testRun("keep", time.Now(), enrich.OutcomeFullyEnriched)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s.Close()
	if _, err := s.GetRun("keep"); err != nil {
		t.Errorf("GetRun after reopen: %v", err)
	}
}
