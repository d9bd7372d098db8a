// Package weather looks up historical conditions at a fixed location from
// the OpenWeather One Call timemachine endpoint.
package weather

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

	"github.com/ademuri/mood-tools/internal/enrich"
)

const DefaultBaseURL = "https://api.openweathermap.org/data/3.0"

var (
	ErrIncompleteObservation = errors.New("weather response missing temperature or condition")
	ErrMissingAPIKey         = errors.New("missing OpenWeather API key")
)

// Units is the temperature unit system for a whole run.
type Units string

const (
	Metric   Units = "metric"
	Imperial Units = "imperial"
)

func ParseUnits(s string) (Units, error) {
	switch u := Units(strings.ToLower(strings.TrimSpace(s))); u {
	case Metric, Imperial:
		return u, nil
	case "":
		return Metric, nil
	default:
		return "", fmt.Errorf("unsupported units %q (want metric or imperial)", s)
	}
}

// Symbol is the temperature suffix for reports.
func (u Units) Symbol() string {
	if u == Imperial {
		return "°F"
	}
	return "°C"
}

type Config struct {
	APIKey    string
	Latitude  float64
	Longitude float64
	Units     Units
	BaseURL   string
	Timeout   time.Duration
	Attempts  uint
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger
}

var _ enrich.WeatherLookup = (*Client)(nil)

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openweather: unexpected status %d", e.Code)
}

func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Units == "" {
		cfg.Units = Metric
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}, nil
}

type timemachineResponse struct {
	Data []struct {
		Dt      int64    `json:"dt"`
		Temp    *float64 `json:"temp"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"data"`
}

// Lookup returns the temperature and main condition at time at.
func (c *Client) Lookup(ctx context.Context, at time.Time) (enrich.WeatherObservation, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(c.cfg.Latitude, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(c.cfg.Longitude, 'f', -1, 64)},
		"dt":    {strconv.FormatInt(at.Unix(), 10)},
		"appid": {c.cfg.APIKey},
		"units": {string(c.cfg.Units)},
	}
	reqURL := c.cfg.BaseURL + "/onecall/timemachine?" + params.Encode()

	var parsed timemachineResponse
	err := retry.Do(
		func() error {
			var err error
			parsed, err = c.fetch(ctx, reqURL)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.cfg.Attempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var serr *StatusError
			if errors.As(err, &serr) && (serr.Code/100 == 5 || serr.Code == http.StatusTooManyRequests) {
				c.log.Info("openweather errored, retrying", zap.Int("status", serr.Code))
				return true
			}
			return false
		}),
	)
	if err != nil {
		return enrich.WeatherObservation{}, fmt.Errorf("fetching weather at %s: %w", at.Format(time.RFC3339), err)
	}

	if len(parsed.Data) == 0 {
		return enrich.WeatherObservation{}, ErrIncompleteObservation
	}
	point := parsed.Data[0]
	if point.Temp == nil || len(point.Weather) == 0 || point.Weather[0].Main == "" {
		return enrich.WeatherObservation{}, ErrIncompleteObservation
	}

	temp := *point.Temp
	return enrich.WeatherObservation{
		Temperature: &temp,
		Condition:   point.Weather[0].Main,
	}, nil
}

func (c *Client) fetch(ctx context.Context, reqURL string) (timemachineResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return timemachineResponse{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return timemachineResponse{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return timemachineResponse{}, &StatusError{Code: resp.StatusCode}
	}

	var parsed timemachineResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return timemachineResponse{}, fmt.Errorf("decoding response: %w", err)
	}
	return parsed, nil
}
