package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ademuri/mood-tools/internal/mood"
)

// ErrInvalidEvent rejects a batch before any collaborator is called.
var ErrInvalidEvent = errors.New("invalid play event")

// Pipeline merges weather and a batch mood into play events.
type Pipeline struct {
	weather     WeatherLookup
	predictor   MoodPredictor
	log         *zap.Logger
	concurrency int
	callTimeout time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets where degrades are logged. A nil logger is ignored.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithConcurrency allows up to n weather lookups in flight.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithCallTimeout bounds each weather lookup and the mood prediction.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.callTimeout = d
	}
}

// NewPipeline runs lookups sequentially with no call timeout unless
// configured otherwise. A nil predictor leaves every mood unavailable.
func NewPipeline(weather WeatherLookup, predictor MoodPredictor, opts ...Option) *Pipeline {
	p := &Pipeline{
		weather:     weather,
		predictor:   predictor,
		log:         zap.NewNop(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enrich returns exactly one record per event, in input order. Collaborator
// failures become unavailable fields; only malformed input is an error.
func (p *Pipeline) Enrich(ctx context.Context, events []PlayEvent) (Result, error) {
	if err := validateEvents(events); err != nil {
		return Result{}, err
	}
	if len(events) == 0 {
		return Result{Records: []EnrichedRecord{}, Outcome: OutcomeEmpty}, nil
	}

	observations, perEvent := p.resolveWeather(ctx, events)
	weatherOK := true
	for _, ok := range perEvent {
		weatherOK = weatherOK && ok
	}

	result := Result{WeatherOK: weatherOK}
	switch {
	case !weatherOK:
		p.log.Warn("weather incomplete for batch, skipping mood prediction",
			zap.Int("events", len(events)))
		result.Outcome = OutcomeWeatherUnavailable
	default:
		label, err := p.predict(ctx, events, observations)
		if err != nil {
			p.log.Warn("mood prediction failed", zap.Error(err))
			result.Outcome = OutcomeWeatherOnly
		} else {
			result.LLMOK = true
			result.Mood = MoodPrediction{Label: label, OK: true}
			result.Outcome = OutcomeFullyEnriched
		}
	}

	result.Records = assemble(events, observations, perEvent, result)
	return result, nil
}

func validateEvents(events []PlayEvent) error {
	seen := make(map[int]bool, len(events))
	for i, e := range events {
		if e.Sequence < 1 {
			return fmt.Errorf("%w: event %d has sequence %d", ErrInvalidEvent, i, e.Sequence)
		}
		if seen[e.Sequence] {
			return fmt.Errorf("%w: duplicate sequence %d", ErrInvalidEvent, e.Sequence)
		}
		seen[e.Sequence] = true
		if e.PlayedAt.IsZero() {
			return fmt.Errorf("%w: sequence %d has no played_at", ErrInvalidEvent, e.Sequence)
		}
	}
	return nil
}

// resolveWeather looks up every event independently. Results are stored by
// input index, so completion order never matters.
func (p *Pipeline) resolveWeather(ctx context.Context, events []PlayEvent) ([]WeatherObservation, []bool) {
	observations := make([]WeatherObservation, len(events))
	ok := make([]bool, len(events))

	lookup := func(i int) {
		e := events[i]
		callCtx, cancel := p.callContext(ctx)
		defer cancel()

		obs, err := p.weather.Lookup(callCtx, e.PlayedAt)
		if err != nil {
			p.log.Warn("weather lookup failed", zap.Int("sequence", e.Sequence), zap.Error(err))
			return
		}
		if !obs.Valid() {
			p.log.Warn("weather observation incomplete", zap.Int("sequence", e.Sequence))
			return
		}
		observations[i] = obs
		ok[i] = true
	}

	if p.concurrency <= 1 {
		for i := range events {
			lookup(i)
		}
		return observations, ok
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range events {
		g.Go(func() error {
			lookup(i)
			return nil
		})
	}
	_ = g.Wait()
	return observations, ok
}

func (p *Pipeline) predict(ctx context.Context, events []PlayEvent, observations []WeatherObservation) (mood.Label, error) {
	if p.predictor == nil {
		return "", errors.New("no mood predictor configured")
	}

	batch := make([]mood.BatchItem, len(events))
	for i, e := range events {
		batch[i] = mood.BatchItem{
			TrackName:   e.TrackName,
			ArtistName:  e.ArtistName,
			Tempo:       e.Tempo.String(),
			TimeOfDay:   mood.TimeOfDay(e.PlayedAt),
			Condition:   observations[i].Condition,
			Temperature: *observations[i].Temperature,
		}
	}

	callCtx, cancel := p.callContext(ctx)
	defer cancel()

	label, err := p.predictor.Predict(callCtx, batch)
	if err != nil {
		return "", err
	}
	// Predictors are external; re-check the closed set here.
	return mood.ParseLabel(string(label))
}

func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.callTimeout > 0 {
		return context.WithTimeout(ctx, p.callTimeout)
	}
	return context.WithCancel(ctx)
}

func assemble(events []PlayEvent, observations []WeatherObservation, perEvent []bool, result Result) []EnrichedRecord {
	records := make([]EnrichedRecord, len(events))
	for i, e := range events {
		rec := EnrichedRecord{
			PlayEvent: e,
			TimeOfDay: mood.TimeOfDay(e.PlayedAt),
			WeatherOK: perEvent[i],
		}
		switch result.Outcome {
		case OutcomeWeatherUnavailable:
			rec.Temperature = Missing[float64](Unavailable)
			rec.Condition = Missing[string](Unavailable)
			rec.Mood = Missing[mood.Label](MoodWeatherUnavailable)
		case OutcomeWeatherOnly:
			rec.Temperature = Known(*observations[i].Temperature)
			rec.Condition = Known(observations[i].Condition)
			rec.Mood = Missing[mood.Label](MoodLLMUnavailable)
		default:
			rec.Temperature = Known(*observations[i].Temperature)
			rec.Condition = Known(observations[i].Condition)
			rec.Mood = Known(result.Mood.Label)
		}
		records[i] = rec
	}
	return records
}
