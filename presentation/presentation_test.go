package presentation

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/linear_regression"
	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/xuri/excelize/v2"
)

func nf(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }
func ni(v int64) sql.NullInt64     { return sql.NullInt64{Int64: v, Valid: true} }

func sampleData() *models.TransformedData {
	return &models.TransformedData{
		Zones: []models.ZoneSummary{
			{ID: "malawi-lilongwe", Zone: "Lilongwe", Country: sql.NullString{String: "Malawi", Valid: true},
				WaterSafelyPct: nf(45), SafeAccess: nf(45), WaterYear: ni(2024)},
			{ID: "malawi-blantyre", Zone: "Blantyre", Country: sql.NullString{String: "Malawi", Valid: true},
				WaterSafelyPct: nf(90), SewerSafelyPct: nf(70), SafeAccess: nf(80), WaterYear: ni(2024), SewerYear: ni(2023)},
			{ID: "na-zomba", Zone: "Zomba"},
		},
		Periods: []models.TimePeriodAggregate{
			{Period: models.Period{Year: 2024, Month: 1}, Metrics: map[string]sql.NullFloat64{"quality_rate": nf(93), "nrw_pct": nf(30)}},
			{Period: models.Period{Year: 2024, Month: 2}, Metrics: map[string]sql.NullFloat64{"quality_rate": nf(96), "nrw_pct": {}}},
		},
	}
}

func TestZoneRowsJSONUsesNulls(t *testing.T) {
	rows := DefaultAdapter{}.ZoneRows(sampleData().Zones)

	b, err := json.Marshal(rows[0])
	if err != nil {
		t.Fatal(err)
	}
	got := string(b)
	for _, want := range []string{`"id":"malawi-lilongwe"`, `"name":"Lilongwe"`, `"safeAccess":45`, `"sewer_safely_pct":null`, `"sewer_year":null`, `"band":"poor"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %s in %s", want, got)
		}
	}

	if rows[1].Band != BandGood {
		t.Fatalf("expected 80 to be good, got %s", rows[1].Band)
	}
	if rows[2].Band != BandNoData || rows[2].Country != nil {
		t.Fatalf("expected no_data band and null country, got %+v", rows[2])
	}
}

func TestBandThresholds(t *testing.T) {
	cases := map[float64]string{100: BandGood, 80: BandGood, 79.9: BandFair, 60: BandFair, 59.9: BandPoor, 0: BandPoor}
	for v, want := range cases {
		if got := Band(nf(v)); got != want {
			t.Fatalf("Band(%v): expected %s, got %s", v, want, got)
		}
	}
	if Band(sql.NullFloat64{}) != BandNoData {
		t.Fatalf("expected missing value to be no_data, never a number")
	}
}

func TestPeriodSeriesKeepsGaps(t *testing.T) {
	series := DefaultAdapter{}.PeriodSeries(sampleData().Periods)
	if len(series) != 2 || series[0].Metric != "nrw_pct" || series[1].Metric != "quality_rate" {
		t.Fatalf("expected metrics sorted by name, got %+v", series)
	}
	nrw := series[0]
	if len(nrw.Points) != 2 || nrw.Points[1].Value != nil {
		t.Fatalf("expected missing February value to stay null, got %+v", nrw.Points)
	}
	if nrw.Points[0].Period != "2024-01" {
		t.Fatalf("unexpected period label %q", nrw.Points[0].Period)
	}
}

func TestMapLayer(t *testing.T) {
	layer := DefaultAdapter{}.MapLayer(MetricWaterPct, sampleData().Zones)
	if layer.Metric != MetricWaterPct {
		t.Fatalf("unexpected metric %q", layer.Metric)
	}
	if v := layer.Values["malawi-blantyre"]; v == nil || *v != 90 {
		t.Fatalf("expected 90 for Blantyre, got %v", v)
	}
	if layer.Values["na-zomba"] != nil || layer.Bands["na-zomba"] != BandNoData {
		t.Fatalf("expected Zomba to have no data")
	}
}

func TestBuildStatesAndCards(t *testing.T) {
	targets := []config.TargetConfig{
		{Metric: "quality_rate", Label: "Quality", Target: 95},
		{Metric: "nrw_pct", Label: "NRW", Target: 25, LowerIsBetter: true},
		{Metric: "hours_of_supply", Target: 22},
		{Metric: MetricSafeAccess, Label: "Safe access", Target: 60},
	}

	d := Build(sampleData(), targets, nil)
	if d.State != StateOK {
		t.Fatalf("expected ok state, got %s", d.State)
	}

	quality := d.Cards[0]
	if quality.Value == nil || *quality.Value != 96 || quality.Period != "2024-02" {
		t.Fatalf("expected latest quality 96 in 2024-02, got %+v", quality)
	}
	if quality.Delta == nil || *quality.Delta != 3 {
		t.Fatalf("expected delta 3, got %v", quality.Delta)
	}
	if quality.MeetsTarget == nil || !*quality.MeetsTarget {
		t.Fatalf("expected quality target to be met")
	}

	nrw := d.Cards[1]
	if nrw.Value == nil || *nrw.Value != 30 || nrw.Period != "2024-01" {
		t.Fatalf("expected latest available nrw 30 from 2024-01, got %+v", nrw)
	}
	if nrw.MeetsTarget == nil || *nrw.MeetsTarget {
		t.Fatalf("expected nrw 30 to miss a lower-is-better target of 25")
	}

	hours := d.Cards[2]
	if hours.Value != nil || hours.MeetsTarget != nil || hours.Label != "hours_of_supply" {
		t.Fatalf("expected missing metric to stay null, got %+v", hours)
	}

	safe := d.Cards[3]
	if safe.Value == nil || *safe.Value != 62.5 {
		t.Fatalf("expected mean safe access 62.5, got %v", safe.Value)
	}

	partial := sampleData()
	partial.Warnings = []string{"источник sewer недоступен"}
	if Build(partial, nil, nil).State != StatePartial {
		t.Fatalf("expected partial state with warnings")
	}

	empty := Build(&models.TransformedData{Warnings: []string{"x"}}, targets, nil)
	if empty.State != StateEmpty {
		t.Fatalf("expected empty state, got %s", empty.State)
	}
	if empty.Zones == nil || empty.Cards[0].Value != nil {
		t.Fatalf("expected empty but non-nil zones and null card values")
	}
}

func TestForecastSeries(t *testing.T) {
	s := ForecastSeries("quality_rate", []linear_regression.ForecastPoint{
		{Period: models.Period{Year: 2024, Month: 3}, ForecastValue: 97, CILower: 95, CIUpper: 99},
	})
	if s.Label != "forecast" || len(s.Points) != 1 {
		t.Fatalf("unexpected series %+v", s)
	}
	pt := s.Points[0]
	if pt.Period != "2024-03" || *pt.Value != 97 || *pt.Lower != 95 || *pt.Upper != 99 {
		t.Fatalf("unexpected point %+v", pt)
	}
}

var pngMagic = []byte("\x89PNG")

func TestRenderCharts(t *testing.T) {
	d := Build(sampleData(), nil, nil)
	forecast := ForecastSeries("quality_rate", []linear_regression.ForecastPoint{
		{Period: models.Period{Year: 2024, Month: 3}, ForecastValue: 97, CILower: 95, CIUpper: 99},
	})
	d.Forecast = &forecast

	for _, name := range []string{ChartSafeAccess, ChartWaterBox, "quality_rate", "nrw_pct"} {
		var buf bytes.Buffer
		if err := RenderChart(name, d, &buf); err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
			t.Fatalf("%s: expected PNG output", name)
		}
	}

	var buf bytes.Buffer
	if err := RenderChart("unknown", d, &buf); !errors.Is(err, ErrUnknownChart) {
		t.Fatalf("expected ErrUnknownChart, got %v", err)
	}
}

func TestChartsWithoutDataReturnErrNoData(t *testing.T) {
	rows := []ZoneRow{{ID: "na-zomba", Name: "Zomba", Band: BandNoData}}
	var buf bytes.Buffer

	if err := SafeAccessBarChart(rows, &buf); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData from bar chart, got %v", err)
	}
	if err := WaterSafelyBoxPlot(rows, &buf); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData from box plot, got %v", err)
	}
	if err := SeriesLineChart(Series{Metric: "x", Points: []Point{{Period: "2024-01"}}}, nil, &buf); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData from line chart, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written")
	}
}

func TestWriteZonesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteZonesCSV(DefaultAdapter{}.ZoneRows(sampleData().Zones), &buf); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d lines", len(lines))
	}
	if lines[0] != "id,name,country,safeAccess,water_safely_pct,sewer_safely_pct,water_year,sewer_year,band" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "malawi-lilongwe,Lilongwe,Malawi,45,45,,2024,,poor" {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if lines[3] != "na-zomba,Zomba,,,,,,,no_data" {
		t.Fatalf("expected blanks for missing values, got %q", lines[3])
	}
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWorkbook(Build(sampleData(), nil, nil), &buf); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Zones" || sheets[1] != "Periods" {
		t.Fatalf("unexpected sheets %v", sheets)
	}

	name, _ := f.GetCellValue("Zones", "B3")
	if name != "Blantyre" {
		t.Fatalf("expected Blantyre in B3, got %q", name)
	}
	empty, _ := f.GetCellValue("Zones", "F2")
	if empty != "" {
		t.Fatalf("expected missing sewer value to stay blank, got %q", empty)
	}

	period, _ := f.GetCellValue("Periods", "A3")
	quality, _ := f.GetCellValue("Periods", "C3")
	if period != "2024-02" || quality != "96" {
		t.Fatalf("expected 2024-02 quality 96, got %q %q", period, quality)
	}
}

func TestExportFileName(t *testing.T) {
	cases := map[string]string{
		"Zone summary (2024)": "Zone_summary_2024",
		"  ***  ":             "data",
		"KPI/Malawi":          "KPI_Malawi",
	}
	for in, want := range cases {
		if got := ExportFileName(in); got != want {
			t.Fatalf("ExportFileName(%q): expected %q, got %q", in, want, got)
		}
	}
}
