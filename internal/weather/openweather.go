package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errMissingKey   = errors.New("openweather api key is not configured")
	errNoHTTPClient = errors.New("http client not configured")
)

// backoffConfig controls exponential backoff behaviour.
type backoffConfig struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

// OpenWeatherFetcher implements Fetcher against the OpenWeatherMap API with
// retries, exponential backoff, and a circuit breaker.
type OpenWeatherFetcher struct {
	apiKey  string
	baseURL string
	client  *http.Client
	backoff backoffConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherFetcher(client *http.Client, apiKey string) *OpenWeatherFetcher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenWeatherFetcher{
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		client:  client,
		backoff: backoffConfig{
			maxRetries:      3,
			initialInterval: 500 * time.Millisecond,
			maxInterval:     5 * time.Second,
		},
		circuit: cb,
	}
}

func (f *OpenWeatherFetcher) Fetch(ctx context.Context, req Request) (Snapshot, error) {
	if f.apiKey == "" {
		return Snapshot{}, errMissingKey
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", f.apiKey)
		values.Set("units", "metric")
		values.Set("lat", fmt.Sprintf("%f", req.Lat))
		values.Set("lon", fmt.Sprintf("%f", req.Lon))

		u := fmt.Sprintf("%s?%s", f.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := f.doWithResilience(ctx, buildRequest)
	if err != nil {
		return Snapshot{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
			Pressure float64 `json:"pressure"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Snapshot{}, err
	}

	ts := time.Unix(payload.Dt, 0).UTC()
	if payload.Dt == 0 {
		ts = time.Now().UTC()
	}

	desc := "Unknown"
	if len(payload.Weather) > 0 {
		desc = payload.Weather[0].Description
	}

	return Snapshot{
		Location:    req.Name,
		Latitude:    req.Lat,
		Longitude:   req.Lon,
		Temperature: payload.Main.Temp,
		Humidity:    payload.Main.Humidity,
		Pressure:    payload.Main.Pressure,
		Description: desc,
		Timestamp:   ts,
	}, nil
}

// drainAndClose consumes the remainder of a response body so the underlying
// connection can be reused, then closes it.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// doWithResilience executes the HTTP request with retries, exponential
// backoff, and the circuit breaker.
func (f *OpenWeatherFetcher) doWithResilience(ctx context.Context, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	if f.client == nil {
		return nil, errNoHTTPClient
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := f.circuit.Execute(func() (interface{}, error) {
			resp, execErr := f.client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			// Error responses are retried; their bodies must be drained and
			// closed here or every retry leaks a connection.
			if resp.StatusCode == http.StatusTooManyRequests {
				drainAndClose(resp.Body)
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				drainAndClose(resp.Body)
				return nil, errServerError
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				drainAndClose(resp.Body)
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
			}

			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		// If the circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if attempt >= f.backoff.maxRetries {
			return nil, lastErr
		}

		delay := f.backoff.initialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > f.backoff.maxInterval && f.backoff.maxInterval > 0 {
			delay = f.backoff.maxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}
