package openmeteo

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

	"github.com/couchcryptid/wind-yield-etl/internal/domain"
	"github.com/couchcryptid/wind-yield-etl/internal/observability"
)

// hourlyVariables are requested for every forecast hour.
var hourlyVariables = []string{
	"relative_humidity_2m",
	"surface_pressure",
	"wind_speed_120m",
	"temperature_120m",
}

// Client implements domain.Forecaster using the Open-Meteo forecast API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	retries        int
	initialBackoff time.Duration
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// NewClient creates an Open-Meteo client. retries is the number of additional
// attempts after a retryable failure.
func NewClient(baseURL string, timeout time.Duration, retries int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retries:        retries,
		initialBackoff: 200 * time.Millisecond,
		metrics:        metrics,
		logger:         logger,
	}
}

// Forecast fetches the hourly hub-level forecast for a coordinate pair.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (domain.WeatherForecast, error) {
	params := url.Values{
		"latitude":        {strconv.FormatFloat(lat, 'f', 4, 64)},
		"longitude":       {strconv.FormatFloat(lon, 'f', 4, 64)},
		"wind_speed_unit": {"ms"},
		"timeformat":      {"unixtime"},
	}
	for _, v := range hourlyVariables {
		params.Add("hourly", v)
	}
	fullURL := c.baseURL + "?" + params.Encode()

	backoff := c.initialBackoff
	for attempt := 0; ; attempt++ {
		forecast, err := c.doRequest(ctx, fullURL)
		if err == nil {
			c.metrics.ForecastRequests.WithLabelValues("success").Inc()
			return forecast, nil
		}

		var re *retryableError
		if !errors.As(err, &re) || attempt >= c.retries || ctx.Err() != nil {
			c.metrics.ForecastRequests.WithLabelValues("error").Inc()
			return domain.WeatherForecast{}, err
		}

		c.metrics.ForecastRequests.WithLabelValues("retry").Inc()
		c.logger.Warn("forecast request failed, retrying",
			"lat", lat,
			"lon", lon,
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err,
		)
		if !sleepWithContext(ctx, backoff) {
			return domain.WeatherForecast{}, ctx.Err()
		}
		backoff *= 2
	}
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.WeatherForecast, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherForecast{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ForecastAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.WeatherForecast{}, &retryableError{fmt.Errorf("forecast request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		apiErr := fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return domain.WeatherForecast{}, &retryableError{apiErr}
		}
		return domain.WeatherForecast{}, apiErr
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return domain.WeatherForecast{}, fmt.Errorf("decode response: %w", err)
	}
	return r.toDomain()
}

// DecodeResponse converts a raw Open-Meteo JSON response into a forecast.
func DecodeResponse(data []byte) (domain.WeatherForecast, error) {
	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.WeatherForecast{}, fmt.Errorf("decode response: %w", err)
	}
	return r.toDomain()
}

// retryableError marks transport failures and 429/5xx responses.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Open-Meteo API response types.

type response struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Elevation        float64 `json:"elevation"`
	Timezone         string  `json:"timezone"`
	UTCOffsetSeconds int     `json:"utc_offset_seconds"`
	Hourly           hourly  `json:"hourly"`
}

// hourly holds parallel arrays; null entries mark missing model values.
type hourly struct {
	Time             []int64    `json:"time"`
	RelativeHumidity []*float64 `json:"relative_humidity_2m"`
	SurfacePressure  []*float64 `json:"surface_pressure"`
	WindSpeed        []*float64 `json:"wind_speed_120m"`
	Temperature      []*float64 `json:"temperature_120m"`
}

func (r response) toDomain() (domain.WeatherForecast, error) {
	h := r.Hourly
	n := len(h.Time)
	if len(h.RelativeHumidity) != n || len(h.SurfacePressure) != n || len(h.WindSpeed) != n || len(h.Temperature) != n {
		return domain.WeatherForecast{}, fmt.Errorf("hourly arrays differ in length (time=%d)", n)
	}

	forecast := domain.WeatherForecast{
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		Elevation:        r.Elevation,
		Timezone:         r.Timezone,
		UTCOffsetSeconds: r.UTCOffsetSeconds,
		Hourly:           make([]domain.HourlyWeather, 0, n),
	}
	for i := range n {
		if h.RelativeHumidity[i] == nil || h.SurfacePressure[i] == nil || h.WindSpeed[i] == nil || h.Temperature[i] == nil {
			continue
		}
		forecast.Hourly = append(forecast.Hourly, domain.HourlyWeather{
			Time:             time.Unix(h.Time[i], 0).UTC(),
			RelativeHumidity: *h.RelativeHumidity[i],
			SurfacePressure:  *h.SurfacePressure[i],
			WindSpeed:        *h.WindSpeed[i],
			Temperature:      *h.Temperature[i],
		})
	}
	return forecast, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
