package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/agrihub/farm-backend/internal/weather"
)

type AppConfig struct {
	OpenWeatherAPIKey string
	OpenAIAPIKey      string
	OpenAIModel       string
	GeocoderAPIKey    string

	// Cache TTLs per service.
	WeatherTTL   time.Duration
	AgroTTL      time.Duration
	LocationTTL  time.Duration
	DivisionsTTL time.Duration

	// Batch fetch bounds.
	FetchWorkers int
	BatchTimeout time.Duration

	// Outbound HTTP timeout for upstream providers.
	HTTPTimeout time.Duration

	// RefreshInterval controls the periodic weather refresh job.
	RefreshInterval time.Duration

	// Locations refreshed by the scheduler.
	Locations []weather.Request

	Port string
}

// Load reads configuration from environment with sensible defaults. The
// OpenAI key is mandatory: starting without it would silently disable the
// agro service, so it fails fast here instead.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Info("no .env file loaded")
	}

	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	cfg.OpenAIModel = getenvDefault("OPENAI_MODEL", "gpt-4o-mini")

	var err error
	if cfg.WeatherTTL, err = getenvDuration("WEATHER_CACHE_TTL", "30m"); err != nil {
		return nil, err
	}
	if cfg.AgroTTL, err = getenvDuration("AGRO_CACHE_TTL", "1h"); err != nil {
		return nil, err
	}
	if cfg.LocationTTL, err = getenvDuration("LOCATION_CACHE_TTL", "1h"); err != nil {
		return nil, err
	}
	if cfg.DivisionsTTL, err = getenvDuration("DIVISIONS_CACHE_TTL", "24h"); err != nil {
		return nil, err
	}
	if cfg.BatchTimeout, err = getenvDuration("BATCH_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	cfg.FetchWorkers = getenvInt("FETCH_WORKERS", 5)
	cfg.Port = getenvDefault("PORT", "8080")

	locs, err := parseLocations(os.Getenv("WEATHER_LOCATIONS"))
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

// parseLocations reads "Name:lat:lon" entries separated by commas, e.g.
// "Porto:41.1579:-8.6291,Lisboa:38.7223:-9.1393". Empty input is allowed;
// the scheduler just has nothing to refresh.
func parseLocations(raw string) ([]weather.Request, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var out []weather.Request
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid WEATHER_LOCATIONS entry %q; want Name:lat:lon", entry)
		}

		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in %q: %w", entry, err)
		}
		lon, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in %q: %w", entry, err)
		}

		req := weather.Request{Name: parts[0], Lat: lat, Lon: lon}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("invalid WEATHER_LOCATIONS entry %q: %w", entry, err)
		}
		out = append(out, req)
	}
	return out, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
