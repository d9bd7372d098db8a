// Package deezer resolves a track's tempo through the public Deezer catalog.
package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ademuri/mood-tools/internal/enrich"
)

const DefaultBaseURL = "https://api.deezer.com"

// Deezer reports quota errors in a 200 response with this code.
const quotaExceededCode = 4

var ErrNoMatch = errors.New("no matching track")

// Cache stores known tempos between runs.
type Cache interface {
	GetTempo(artist, track string) (float64, bool, error)
	SaveTempo(artist, track string, bpm float64) error
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Attempts uint
	// Limiter paces every outbound request. Defaults to one per second.
	Limiter *rate.Limiter
	Cache   Cache
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   uint
	limiter    *rate.Limiter
	cache      Cache
	log        *zap.Logger
}

var _ enrich.TempoLookup = (*Client)(nil)

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		attempts:   cfg.Attempts,
		limiter:    cfg.Limiter,
		cache:      cfg.Cache,
		log:        log,
	}
}

// APIError is an error reported by Deezer, either as a non-2xx status or
// as an error object in the body.
type APIError struct {
	Status  int
	Code    int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("deezer: %s (%s, code %d)", e.Message, e.Type, e.Code)
	}
	return fmt.Sprintf("deezer: unexpected status %d", e.Status)
}

func (e *APIError) retryable() bool {
	return e.Status/100 == 5 || e.Status == http.StatusTooManyRequests || e.Code == quotaExceededCode
}

type errorBody struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type searchResponse struct {
	errorBody
	Data []struct {
		ID     int64  `json:"id"`
		Title  string `json:"title"`
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"data"`
}

type trackResponse struct {
	errorBody
	ID  int64   `json:"id"`
	BPM float64 `json:"bpm"`
}

// Tempo never fails: lookup errors, misses and a zero BPM all come back as
// UnknownTempo.
func (c *Client) Tempo(ctx context.Context, artist, track string) enrich.Tempo {
	if c.cache != nil {
		bpm, ok, err := c.cache.GetTempo(artist, track)
		if err != nil {
			c.log.Warn("reading tempo cache", zap.Error(err))
		} else if ok {
			return enrich.KnownTempo(bpm)
		}
	}

	bpm, err := c.lookup(ctx, artist, track)
	if err != nil {
		c.log.Info("tempo lookup failed", zap.String("artist", artist), zap.String("track", track), zap.Error(err))
		return enrich.UnknownTempo
	}

	tempo := enrich.KnownTempo(bpm)
	if tempo.Known && c.cache != nil {
		if err := c.cache.SaveTempo(artist, track, bpm); err != nil {
			c.log.Warn("writing tempo cache", zap.Error(err))
		}
	}
	return tempo
}

func (c *Client) lookup(ctx context.Context, artist, track string) (float64, error) {
	q := url.Values{"q": {strings.TrimSpace(artist + " " + track)}}
	search, err := get[searchResponse](ctx, c, "/search?"+q.Encode())
	if err != nil {
		return 0, fmt.Errorf("searching %q - %q: %w", artist, track, err)
	}
	if len(search.Data) == 0 {
		return 0, ErrNoMatch
	}

	details, err := get[trackResponse](ctx, c, "/track/"+strconv.FormatInt(search.Data[0].ID, 10))
	if err != nil {
		return 0, fmt.Errorf("getting track %d: %w", search.Data[0].ID, err)
	}
	return details.BPM, nil
}

type apiResponse interface {
	apiError(status int) error
}

func (b errorBody) apiError(status int) error {
	if b.Error == nil {
		return nil
	}
	return &APIError{Status: status, Code: b.Error.Code, Type: b.Error.Type, Message: b.Error.Message}
}

// get decodes each attempt into a fresh T, so an error body from a failed
// attempt never leaks into a later one.
func get[T apiResponse](ctx context.Context, c *Client, path string) (T, error) {
	var result T
	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
			var out T
			status, err := c.fetch(ctx, c.baseURL+path, &out)
			if err != nil {
				return err
			}
			if err := out.apiError(status); err != nil {
				return err
			}
			result = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var aerr *APIError
			if errors.As(err, &aerr) && aerr.retryable() {
				c.log.Info("deezer errored, retrying", zap.Error(aerr))
				return true
			}
			return false
		}),
	)
	return result, err
}

func (c *Client) fetch(ctx context.Context, reqURL string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &APIError{Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, nil
}
