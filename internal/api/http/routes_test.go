package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/agrihub/farm-backend/internal/agro"
	"github.com/agrihub/farm-backend/internal/location"
	"github.com/agrihub/farm-backend/internal/observers"
	"github.com/agrihub/farm-backend/internal/realtime"
	"github.com/agrihub/farm-backend/internal/weather"
)

type fixedFetcher struct{}

func (fixedFetcher) Fetch(_ context.Context, req weather.Request) (weather.Snapshot, error) {
	return weather.Snapshot{
		Location:    req.Name,
		Latitude:    req.Lat,
		Longitude:   req.Lon,
		Temperature: 21.3,
		Description: "Few clouds",
	}, nil
}

type fixedAdvisor struct{}

func (fixedAdvisor) Suggest(_ context.Context, snap weather.Snapshot) (agro.Suggestion, error) {
	return agro.Suggestion{
		Location:    snap.Location,
		Suggestions: []string{"irrigate early morning"},
		Priority:    agro.PriorityMedium,
		Confidence:  0.9,
		Weather:     snap,
	}, nil
}

type fixedGeocoder struct{}

func (fixedGeocoder) Geocode(_ context.Context, query string) (location.Place, error) {
	return location.Place{Name: query, Latitude: 41.1579, Longitude: -8.6291}, nil
}

func (fixedGeocoder) ReverseGeocode(_ context.Context, lat, lon float64) (location.Place, error) {
	return location.Place{Name: "Porto", Latitude: lat, Longitude: lon}, nil
}

type fixedDivisions struct{}

func (fixedDivisions) Divisions(context.Context) (location.Hierarchy, error) {
	return location.Hierarchy{Districts: []location.District{{Name: "Porto"}}}, nil
}

func testApp(t *testing.T) *fiber.App {
	t.Helper()

	agroSvc, err := agro.NewService(fixedAdvisor{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	app := fiber.New()
	RegisterRoutes(app, Services{
		Weather:  weather.NewService(fixedFetcher{}),
		Agro:     agroSvc,
		Location: location.NewService(fixedGeocoder{}, fixedDivisions{}),
		LogStats: observers.NewLog(),
		Hub:      realtime.NewHub(),
	})
	return app
}

func TestWeatherCurrentValidation(t *testing.T) {
	app := testApp(t)

	// Missing coordinates should return 400.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/current?name=Porto", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// Out-of-range latitude should also return 400.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/weather/current?name=Porto&lat=91&lon=0", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestWeatherCurrentReturnsSnapshot(t *testing.T) {
	app := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/current?name=Porto&lat=41.1579&lon=-8.6291", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var snap weather.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if snap.Location != "Porto" {
		t.Fatalf("expected location Porto, got %q", snap.Location)
	}
}

func TestWeatherBatch(t *testing.T) {
	app := testApp(t)

	body := `{"locations":[{"name":"Porto","lat":41.1579,"lon":-8.6291},{"name":"Lisboa","lat":38.7223,"lon":-9.1393}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/weather/batch", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var out struct {
		TotalRequested int `json:"total_requested"`
		TotalFetched   int `json:"total_fetched"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.TotalRequested != 2 || out.TotalFetched != 2 {
		t.Fatalf("unexpected batch counts: %+v", out)
	}
}

func TestWeatherBatchRejectsEmptyList(t *testing.T) {
	app := testApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/weather/batch", strings.NewReader(`{"locations":[]}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestAgroAnalyze(t *testing.T) {
	app := testApp(t)

	body := `{"location":"Porto","latitude":41.1579,"longitude":-8.6291}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/agro/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var out struct {
		Suggestion *agro.Suggestion `json:"suggestion"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.Suggestion == nil || len(out.Suggestion.Suggestions) == 0 {
		t.Fatalf("expected a suggestion, got %+v", out.Suggestion)
	}
}

func TestAgroAnalyzeRequiresLocation(t *testing.T) {
	app := testApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/agro/analyze", strings.NewReader(`{"latitude":41.0,"longitude":-8.0}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestSystemCacheInfo(t *testing.T) {
	app := testApp(t)

	// Warm the weather cache first.
	warm := httptest.NewRequest(http.MethodGet, "/api/v1/weather/current?name=Porto&lat=41.1579&lon=-8.6291", nil)
	if _, err := app.Test(warm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/cache", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var out map[string]struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out["weather"].Count != 1 {
		t.Fatalf("expected one cached weather entry, got %d", out["weather"].Count)
	}
}

func TestSystemCacheClear(t *testing.T) {
	app := testApp(t)

	warm := httptest.NewRequest(http.MethodGet, "/api/v1/weather/current?name=Porto&lat=41.1579&lon=-8.6291", nil)
	if _, err := app.Test(warm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/system/cache/clear", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	info := httptest.NewRequest(http.MethodGet, "/api/v1/system/cache", nil)
	infoResp, err := app.Test(info)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(infoResp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out["weather"].Count != 0 {
		t.Fatalf("expected empty weather cache after clear, got %d", out["weather"].Count)
	}
}

func TestSystemEventsAndRealtimeStats(t *testing.T) {
	app := testApp(t)

	for _, path := range []string{"/api/v1/system/events", "/api/v1/system/realtime"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusOK, resp.StatusCode)
		}
	}
}

func TestLocationsGeocode(t *testing.T) {
	app := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/locations/geocode?address=Rua+de+Santa+Catarina", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	// Empty address is rejected.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/locations/geocode", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestLocationsReverse(t *testing.T) {
	app := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/locations/reverse?lat=41.1579&lon=-8.6291", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/locations/reverse?lat=abc&lon=0", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// Parseable but out-of-range coordinates are still client errors.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/locations/reverse?lat=91&lon=0", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestLocationsDivisions(t *testing.T) {
	app := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/locations/divisions", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var h location.Hierarchy
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(h.Districts) != 1 {
		t.Fatalf("expected one district, got %d", len(h.Districts))
	}
}
