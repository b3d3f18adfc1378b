package pipeline

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/LilVoxy/wash_dashboard/ETL/cache"
	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/extractors"
	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
	"github.com/LilVoxy/wash_dashboard/presentation"
)

func testPipeline(t *testing.T, useSamples bool) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.GetConfig()
	cfg.DataDir = dir
	cfg.UseSampleData = useSamples
	cfg.Forecast.MinR2Threshold = 0

	fileCache, err := cache.NewFileCache(cfg.CacheSize)
	if err != nil {
		t.Fatal(err)
	}
	return New(cfg, fileCache, utils.NewWriterLogger(io.Discard, false)), dir
}

func TestRenderMissingRequiredFile(t *testing.T) {
	p, _ := testPipeline(t, false)

	_, err := p.Render(models.FilterParams{})
	if !errors.Is(err, extractors.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestRenderLilongweWaterOnly(t *testing.T) {
	p, dir := testPipeline(t, false)

	csv := "country,zone,year,w_safely_managed_pct\nMalawi,Lilongwe,2023,40\nMalawi,Lilongwe,2024,45\n"
	if err := os.WriteFile(filepath.Join(dir, "Water Access Data.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := p.Render(models.FilterParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.State != presentation.StatePartial {
		t.Fatalf("expected partial state without sewer and operations files, got %s", d.State)
	}
	if len(d.Zones) != 1 {
		t.Fatalf("expected one zone, got %d", len(d.Zones))
	}
	z := d.Zones[0]
	if *z.WaterSafelyPct != 45 || z.SewerSafelyPct != nil || *z.SafeAccess != 45 {
		t.Fatalf("unexpected Lilongwe row %+v", z)
	}
	if d.Forecast != nil {
		t.Fatalf("expected no forecast without period data")
	}

	if len(z.Ladders) != 2 || z.Ladders[0].Name != "water" || z.Ladders[1].Name != "sewer" {
		t.Fatalf("expected water and sewer ladders, got %+v", z.Ladders)
	}
	safely, _ := z.Ladders[0].Step("water_safely_pct")
	basic, _ := z.Ladders[0].Step("water_basic_pct")
	if safely.Value == nil || *safely.Value != 45 || basic.Value != nil {
		t.Fatalf("expected only the safely managed level, got %+v", z.Ladders[0].Steps)
	}
	for _, step := range z.Ladders[1].Steps {
		if step.Value != nil {
			t.Fatalf("expected empty sewer ladder without sewer file, got %+v", step)
		}
	}
}

func TestRenderSamplesWithForecast(t *testing.T) {
	p, _ := testPipeline(t, true)

	d, data, err := p.RenderData(models.FilterParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.Zones) != 5 || len(data.Periods) != 6 {
		t.Fatalf("expected 5 zones and 6 periods from samples, got %d/%d", len(d.Zones), len(data.Periods))
	}
	if len(d.Cards) != len(p.Config().Targets) {
		t.Fatalf("expected one card per target, got %d", len(d.Cards))
	}
	if d.Forecast == nil || len(d.Forecast.Points) != p.Config().Forecast.Periods {
		t.Fatalf("expected forecast for %d periods, got %+v", p.Config().Forecast.Periods, d.Forecast)
	}
	if d.Forecast.Points[0].Period != "2024-07" {
		t.Fatalf("expected forecast to start after the last month, got %s", d.Forecast.Points[0].Period)
	}
}

func TestRenderAppliesFilter(t *testing.T) {
	p, _ := testPipeline(t, true)

	d, err := p.Render(models.FilterParams{
		Zone:       "north",
		StartMonth: models.Period{Year: 2024, Month: 2},
		EndMonth:   models.Period{Year: 2024, Month: 4},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.Zones) != 1 || d.Zones[0].Name != "North" {
		t.Fatalf("expected only North, got %+v", d.Zones)
	}
	if len(d.Series) == 0 || len(d.Series[0].Points) != 3 {
		t.Fatalf("expected three months in range, got %+v", d.Series)
	}
	if d.Filter.Zone != "north" {
		t.Fatalf("expected filter to be echoed back, got %+v", d.Filter)
	}
}

func TestRenderSamplesLaddersAndYearlyCoverage(t *testing.T) {
	p, _ := testPipeline(t, true)

	d, err := p.Render(models.FilterParams{Zone: "north"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.Zones) != 1 {
		t.Fatalf("expected only North, got %+v", d.Zones)
	}

	want := map[string]map[string]float64{
		"water": {"water_safely_pct": 41, "water_basic_pct": 28, "water_limited_pct": 18, "water_unimproved_pct": 9, "water_surface_water_pct": 4},
		"sewer": {"sewer_safely_pct": 22, "sewer_basic_pct": 33, "sewer_limited_pct": 18, "sewer_unimproved_pct": 11, "sewer_open_defecation_pct": 5},
	}
	for _, ladder := range d.Zones[0].Ladders {
		levels, ok := want[ladder.Name]
		if !ok {
			t.Fatalf("unexpected ladder %s", ladder.Name)
		}
		for column, v := range levels {
			step, ok := ladder.Step(column)
			if !ok || step.Value == nil || *step.Value != v {
				t.Fatalf("%s: expected %v, got %+v", column, v, step)
			}
		}
	}

	p, _ = testPipeline(t, true)
	d, err = p.Render(models.FilterParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sewer *presentation.Series
	for i := range d.Yearly {
		if d.Yearly[i].Metric == "municipal_coverage" && d.Yearly[i].Label == "sewer" {
			sewer = &d.Yearly[i]
		}
	}
	if sewer == nil || len(sewer.Points) != 2 {
		t.Fatalf("expected sewer coverage for 2023 and 2024, got %+v", d.Yearly)
	}
	if sewer.Points[0].Period != "2023" || *sewer.Points[0].Value != 48.75 {
		t.Fatalf("expected blank West to be skipped in 2023 mean, got %+v", sewer.Points[0])
	}
}

func TestRenderPicksUpFileThatAppears(t *testing.T) {
	dir := t.TempDir()
	cfg := config.GetConfig()
	cfg.DataDir = dir
	cfg.UseSampleData = false

	fileCache, err := cache.NewFileCache(cfg.CacheSize)
	if err != nil {
		t.Fatal(err)
	}
	p := New(cfg, fileCache, utils.NewWriterLogger(io.Discard, false))

	water := "country,zone,year,w_safely_managed_pct\nMalawi,Lilongwe,2024,45\n"
	if err := os.WriteFile(filepath.Join(dir, "Water Access Data.csv"), []byte(water), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := p.Render(models.FilterParams{})
	if err != nil {
		t.Fatal(err)
	}
	if d.Zones[0].SewerSafelyPct != nil {
		t.Fatalf("expected no sewer value before the file exists")
	}

	src, _ := cfg.Source("sewer")
	sewerPath := filepath.Join(dir, src.File)
	sewer := "country,zone,year,s_safely_managed_pct\nMalawi,Lilongwe,2024,30\n"
	if err := os.WriteFile(sewerPath, []byte(sewer), 0o644); err != nil {
		t.Fatal(err)
	}

	stale := fileCache.Stale()
	if len(stale) != 1 || stale[0] != sewerPath {
		t.Fatalf("expected new sewer file to be reported, got %v", stale)
	}
	fileCache.Invalidate(sewerPath)

	d, err = p.Render(models.FilterParams{})
	if err != nil {
		t.Fatal(err)
	}
	if d.Zones[0].SewerSafelyPct == nil || *d.Zones[0].SewerSafelyPct != 30 {
		t.Fatalf("expected sewer value after the file appeared, got %+v", d.Zones[0])
	}
}
