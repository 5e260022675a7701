package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/pool-weather-logger/internal/domain"
	"github.com/couchcryptid/pool-weather-logger/internal/observability"
)

// Client implements domain.WeatherProvider using the OpenWeatherMap
// current weather API for one fixed coordinate.
type Client struct {
	apiKey     string
	lat        float64
	lon        float64
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client. baseURL is the API origin,
// e.g. https://api.openweathermap.org.
func NewClient(apiKey string, lat, lon float64, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		lat:    lat,
		lon:    lon,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// CurrentWeather fetches a fresh snapshot. Every call is one request; nothing
// is cached or retried.
func (c *Client) CurrentWeather(ctx context.Context) (domain.WeatherSnapshot, error) {
	start := domain.Now()
	snap, err := c.fetch(ctx)
	c.metrics.WeatherAPIDuration.Observe(domain.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.WeatherRequests.WithLabelValues("success").Inc()
	case errors.Is(err, domain.ErrDecode):
		c.metrics.WeatherRequests.WithLabelValues("decode_error").Inc()
	default:
		c.metrics.WeatherRequests.WithLabelValues("network_error").Inc()
	}
	return snap, err
}

func (c *Client) fetch(ctx context.Context) (domain.WeatherSnapshot, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(c.lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(c.lon, 'f', -1, 64)},
		"units": {"metric"},
		"appid": {c.apiKey},
	}
	fullURL := c.baseURL + "/data/2.5/weather?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("%w: weather request: %w", domain.ErrNetwork, redactKey(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.WeatherSnapshot{}, fmt.Errorf("%w: openweathermap API error: status %d: %s", domain.ErrNetwork, resp.StatusCode, body)
	}

	var owmResp response
	if err := json.NewDecoder(resp.Body).Decode(&owmResp); err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("%w: decode weather response: %w", domain.ErrDecode, err)
	}

	snap, err := owmResp.snapshot()
	if err != nil {
		return domain.WeatherSnapshot{}, err
	}
	c.logger.Debug("weather fetched", "main", snap.Main, "temp_c", snap.TempC)
	return snap, nil
}

// redactKey strips the query string, and with it the API key, from a
// transport error before it reaches the logs.
func redactKey(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if u, perr := url.Parse(uerr.URL); perr == nil {
			u.RawQuery = ""
			return &url.Error{Op: uerr.Op, URL: u.String(), Err: uerr.Err}
		}
	}
	return err
}
