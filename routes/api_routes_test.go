package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/ETL/pipeline"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
	"github.com/LilVoxy/wash_dashboard/presentation"
	"github.com/gorilla/mux"
)

type countingRefresher struct{ calls int }

func (c *countingRefresher) Refresh() { c.calls++ }

type failingRenderer struct{}

func (failingRenderer) RenderData(models.FilterParams) (*presentation.Dashboard, *models.TransformedData, error) {
	return nil, nil, errors.New("срез ссылается на неизвестный источник")
}

func newRouter(t *testing.T, mutate func(cfg *config.DashboardConfig, dir string)) (*mux.Router, *countingRefresher) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.GetConfig()
	cfg.DataDir = dir
	if mutate != nil {
		mutate(&cfg, dir)
	}

	p := pipeline.New(cfg, nil, utils.NewWriterLogger(io.Discard, false))
	refresher := &countingRefresher{}

	router := mux.NewRouter()
	SetupRoutes(router, NewAPI(p, refresher), nil, "")
	return router, refresher
}

func withSamples(cfg *config.DashboardConfig, _ string) {
	cfg.UseSampleData = true
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestDashboardMissingRequiredFileIs503(t *testing.T) {
	router, _ := newRouter(t, nil)

	rec := get(router, "/api/dashboard")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.State != presentation.StateError || resp.Error == "" {
		t.Fatalf("unexpected error body %+v", resp)
	}
}

func TestRenderErrorIs500(t *testing.T) {
	router := mux.NewRouter()
	SetupRoutes(router, NewAPI(failingRenderer{}, nil), nil, "")

	if rec := get(router, "/api/zones"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestBadFilterIs400(t *testing.T) {
	router, _ := newRouter(t, withSamples)

	if rec := get(router, "/api/dashboard?start=2024-07&end=2024-01"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEmptyDataIs200WithEmptyState(t *testing.T) {
	router, _ := newRouter(t, func(cfg *config.DashboardConfig, dir string) {
		cfg.Sources[0].File = "water.json"
		if err := os.WriteFile(filepath.Join(dir, "water.json"), []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
	})

	rec := get(router, "/api/dashboard")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var d presentation.Dashboard
	if err := json.NewDecoder(rec.Body).Decode(&d); err != nil {
		t.Fatal(err)
	}
	if d.State != presentation.StateEmpty || len(d.Zones) != 0 {
		t.Fatalf("expected empty state, got %s with %d zones", d.State, len(d.Zones))
	}
}

func TestZonesAndMapWithFilter(t *testing.T) {
	router, _ := newRouter(t, withSamples)

	rec := get(router, "/api/zones?zone=North")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var zones ZonesResponse
	if err := json.NewDecoder(rec.Body).Decode(&zones); err != nil {
		t.Fatal(err)
	}
	if len(zones.Zones) != 1 || zones.Zones[0].Name != "North" {
		t.Fatalf("expected only North, got %+v", zones.Zones)
	}

	rec = get(router, "/api/map?metric=water_safely_pct")
	var layer presentation.MapLayer
	if err := json.NewDecoder(rec.Body).Decode(&layer); err != nil {
		t.Fatal(err)
	}
	if layer.Metric != presentation.MetricWaterPct || len(layer.Values) != 5 {
		t.Fatalf("unexpected map layer %+v", layer)
	}
}

func TestRankings(t *testing.T) {
	router, _ := newRouter(t, withSamples)

	rec := get(router, "/api/rankings?metric=water_safely_pct&limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp RankingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Metric != presentation.MetricWaterPct || len(resp.Ranks) != 2 {
		t.Fatalf("expected top 2 by water, got %+v", resp)
	}
	if resp.Best == nil || resp.Worst == nil || resp.Best.Position != 1 || resp.Best.Value < resp.Worst.Value {
		t.Fatalf("unexpected best/worst %+v / %+v", resp.Best, resp.Worst)
	}

	if rec := get(router, "/api/rankings?limit=abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestPeriodsSeries(t *testing.T) {
	router, _ := newRouter(t, withSamples)

	rec := get(router, "/api/periods?start=2024-03")
	var resp PeriodsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Series) == 0 {
		t.Fatalf("expected period series")
	}
	for _, s := range resp.Series {
		if len(s.Points) != 4 || s.Points[0].Period != "2024-03" {
			t.Fatalf("expected March to June for %s, got %+v", s.Metric, s.Points)
		}
	}
}

func TestChartsAndExports(t *testing.T) {
	router, _ := newRouter(t, withSamples)

	rec := get(router, "/api/charts/safe-access.png")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("expected PNG chart, got %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
		t.Fatalf("expected PNG body")
	}

	if rec := get(router, "/api/charts/unknown.png"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown chart, got %d", rec.Code)
	}

	rec = get(router, "/api/export.csv?zone=North")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="wash_dashboard_North.csv"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "demo-north,North,Demo,") {
		t.Fatalf("unexpected csv %q", rec.Body.String())
	}

	rec = get(router, "/api/export.xlsx")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Fatalf("expected XLSX archive, got %d", rec.Code)
	}
}

func TestRefreshAndHealth(t *testing.T) {
	router, refresher := newRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if rec.Code != http.StatusAccepted || refresher.calls != 1 {
		t.Fatalf("expected accepted refresh, got %d (calls %d)", rec.Code, refresher.calls)
	}

	if rec := get(router, "/api/refresh"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET refresh, got %d", rec.Code)
	}

	if rec := get(router, "/api/health"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}
}
