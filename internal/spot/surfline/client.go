// Package surfline provides a client for the Surfline KBYG API.
package surfline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/swellmap/swellmap/internal/provider/resilience"
	"github.com/swellmap/swellmap/internal/spot"
)

const (
	// DefaultBaseURL is the base URL for the KBYG API.
	DefaultBaseURL = "https://services.surfline.com/kbyg"

	// ProviderName identifies this provider.
	ProviderName = "surfline"

	// ForecastDays and ForecastIntervalHours shape the surf forecast request:
	// four intervals per day, five days.
	ForecastDays          = 5
	ForecastIntervalHours = 6
)

// Endpoint names used in errors and logs.
const (
	EndpointMapview  = "mapview"
	EndpointReport   = "report"
	EndpointForecast = "forecast"
)

// StatusError is returned for any non-200 response.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s endpoint", e.StatusCode, e.Endpoint)
}

// ClientConfig holds configuration for the Surfline client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the resilient HTTP client. If nil, one is created with
	// retries disabled: region and forecast fetches are never retried.
	HTTPClient *resilience.Client

	// RateLimitRetries bounds how often a rate-limited report fetch is
	// retried (default: 3).
	RateLimitRetries uint64

	// RateLimitDelay is the fixed wait between rate-limit retries (default: 1s).
	RateLimitDelay time.Duration

	// PhotoStamp is appended to camera still URLs.
	// Defaults to the hour the client was created.
	PhotoStamp spot.PhotoStamp

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Surfline KBYG API client.
type Client struct {
	baseURL          string
	httpClient       *resilience.Client
	rateLimitRetries uint64
	rateLimitDelay   time.Duration
	stamp            spot.PhotoStamp
	logger           zerolog.Logger
}

// NewClient creates a new Surfline client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		hc := resilience.DefaultClientConfig(ProviderName)
		hc.MaxRetries = 0
		hc.Logger = cfg.Logger
		httpClient = resilience.NewClient(hc)
	}

	retries := cfg.RateLimitRetries
	if retries == 0 {
		retries = 3
	}
	delay := cfg.RateLimitDelay
	if delay == 0 {
		delay = time.Second
	}

	stamp := cfg.PhotoStamp
	if stamp == "" {
		stamp = spot.NewPhotoStamp(time.Now())
	}

	return &Client{
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		httpClient:       httpClient,
		rateLimitRetries: retries,
		rateLimitDelay:   delay,
		stamp:            stamp,
		logger:           cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// API response types.

type mapviewResponse struct {
	Data struct {
		Spots []json.RawMessage `json:"spots"`
	} `json:"data"`
}

type forecastResponse struct {
	Data struct {
		Surf []spot.SurfPeriodRecord `json:"surf"`
	} `json:"data"`
}

// SpotsInRegion fetches every spot inside the region. Records that cannot
// be resolved are skipped with a warning.
func (c *Client) SpotsInRegion(ctx context.Context, region spot.Region) ([]spot.Update, error) {
	q := url.Values{}
	q.Set("north", formatCoord(region.Top))
	q.Set("south", formatCoord(region.Bottom))
	q.Set("west", formatCoord(region.Left))
	q.Set("east", formatCoord(region.Right))

	req, err := c.newRequest(ctx, "/mapview", q)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch mapview: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Endpoint: EndpointMapview, StatusCode: resp.StatusCode}
	}

	var result mapviewResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode mapview response: %w", err)
	}

	updates := make([]spot.Update, 0, len(result.Data.Spots))
	for _, raw := range result.Data.Spots {
		u, err := spot.DecodeRecord(raw, c.stamp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("skipping mapview record")
			continue
		}
		updates = append(updates, u)
	}

	return updates, nil
}

// Report fetches the current conditions for one spot, keyed by spotID.
// A 429 answer is retried at a fixed delay; once the retries are spent the
// error wraps resilience.ErrRateLimited.
func (c *Client) Report(ctx context.Context, spotID string) (spot.Update, error) {
	q := url.Values{}
	q.Set("spotId", spotID)

	resp, err := c.httpClient.DoRateLimited(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, "/spots/reports", q)
	}, c.rateLimitRetries, c.rateLimitDelay)
	if err != nil {
		return spot.Update{}, fmt.Errorf("fetch report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return spot.Update{}, &StatusError{Endpoint: EndpointReport, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return spot.Update{}, fmt.Errorf("read report response: %w", err)
	}

	u, err := spot.DecodeRecordFor(spotID, body, c.stamp)
	if err != nil {
		return spot.Update{}, fmt.Errorf("decode report response: %w", err)
	}
	return u, nil
}

// SurfForecast fetches the five day, six hourly surf forecast for one spot.
func (c *Client) SurfForecast(ctx context.Context, spotID string) ([]spot.SurfPeriod, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(ForecastDays))
	q.Set("intervalHours", strconv.Itoa(ForecastIntervalHours))
	q.Set("spotId", spotID)

	req, err := c.newRequest(ctx, "/spots/forecasts/surf", q)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch surf forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Endpoint: EndpointForecast, StatusCode: resp.StatusCode}
	}

	var result forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode surf forecast response: %w", err)
	}

	return spot.SurfPeriods(result.Data.Surf), nil
}

func (c *Client) newRequest(ctx context.Context, path string, q url.Values) (*http.Request, error) {
	u := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
