package enrich

import (
	"context"
	"errors"
	"testing"
)

type fakeSource struct {
	events []PlayEvent
	err    error
	limit  int
}

func (f *fakeSource) RecentlyPlayed(ctx context.Context, limit int) ([]PlayEvent, error) {
	f.limit = limit
	return f.events, f.err
}

type fakeTempo map[string]Tempo

func (f fakeTempo) Tempo(ctx context.Context, artist, track string) Tempo {
	if t, ok := f[artist+"/"+track]; ok {
		return t
	}
	return UnknownTempo
}

func TestCollect(t *testing.T) {
	src := &fakeSource{events: []PlayEvent{
		{Sequence: 1, TrackName: "One", ArtistName: "A", PlayedAt: baseTime},
		{Sequence: 2, TrackName: "Two", ArtistName: "B", PlayedAt: baseTime},
	}}
	tempo := fakeTempo{"A/One": KnownTempo(98.5)}

	events, err := Collect(context.Background(), src, tempo, 2, nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if src.limit != 2 {
		t.Errorf("source asked for %d, want 2", src.limit)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if !events[0].Tempo.Known || events[0].Tempo.BPM != 98.5 {
		t.Errorf("first tempo = %+v", events[0].Tempo)
	}
	if events[1].Tempo.Known || events[1].Tempo.String() != "unknown" {
		t.Errorf("second tempo = %+v", events[1].Tempo)
	}
	if src.events[0].Tempo.Known {
		t.Error("Collect mutated the source's events")
	}
}

func TestCollectSourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("401")}
	if _, err := Collect(context.Background(), src, nil, 5, nil); err == nil {
		t.Error("expected error from failing source")
	}
}

func TestKnownTempo(t *testing.T) {
	if KnownTempo(0).Known {
		t.Error("KnownTempo(0) should be unknown")
	}
	if got := KnownTempo(127.5).String(); got != "127.5" {
		t.Errorf("KnownTempo(127.5).String() = %q", got)
	}
}
