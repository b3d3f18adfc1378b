package presentation

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/xuri/excelize/v2"
)

func ladderZones() []models.ZoneSummary {
	return []models.ZoneSummary{
		{ID: "demo-north", Zone: "North", WaterSafelyPct: nf(41), SafeAccess: nf(41),
			Values: map[string]sql.NullFloat64{"water_basic_pct": nf(28), "water_limited_pct": {}, "water_unimproved_pct": nf(9)}},
		{ID: "demo-west", Zone: "West", WaterSafelyPct: nf(33), SafeAccess: nf(33),
			Values: map[string]sql.NullFloat64{"water_basic_pct": nf(26), "water_limited_pct": nf(23), "water_unimproved_pct": nf(12), "water_surface_water_pct": nf(6)}},
		{ID: "na-zomba", Zone: "Zomba"},
	}
}

func ladderAdapter() DefaultAdapter {
	return DefaultAdapter{Ladders: config.DefaultLadders}
}

func TestLadderMissingLevelsStayNull(t *testing.T) {
	rows := ladderAdapter().ZoneRows(ladderZones())

	water := rows[0].Ladders[0]
	if water.Name != "water" || len(water.Steps) != 5 {
		t.Fatalf("unexpected water ladder %+v", water)
	}
	for column, want := range map[string]float64{"water_safely_pct": 41, "water_basic_pct": 28, "water_unimproved_pct": 9} {
		step, ok := water.Step(column)
		if !ok || step.Value == nil || *step.Value != want {
			t.Fatalf("%s: expected %v, got %+v", column, want, step)
		}
	}
	for _, column := range []string{"water_limited_pct", "water_surface_water_pct"} {
		if step, _ := water.Step(column); step.Value != nil {
			t.Fatalf("%s: expected null, got %v", column, *step.Value)
		}
	}

	b, err := json.Marshal(rows[0].Ladders)
	if err != nil {
		t.Fatal(err)
	}
	got := string(b)
	if !strings.Contains(got, `"column":"water_limited_pct","value":null`) {
		t.Fatalf("expected missing level to be null in JSON, got %s", got)
	}
	if strings.Contains(got, `"column":"water_limited_pct","value":0`) {
		t.Fatalf("missing level must not become 0: %s", got)
	}

	for _, ladder := range rows[2].Ladders {
		for _, step := range ladder.Steps {
			if step.Value != nil {
				t.Fatalf("expected empty ladder for zone without data, got %+v", step)
			}
		}
	}
}

func TestZoneRowsWithoutLaddersOmitField(t *testing.T) {
	rows := DefaultAdapter{}.ZoneRows(ladderZones())
	b, err := json.Marshal(rows[0])
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "ladders") {
		t.Fatalf("expected no ladders without configuration, got %s", b)
	}
}

func TestWriteZonesCSVWithLadders(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteZonesCSV(ladderAdapter().ZoneRows(ladderZones()), &buf); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	header := "id,name,country,safeAccess,water_safely_pct,sewer_safely_pct,water_year,sewer_year,band," +
		"water_basic_pct,water_limited_pct,water_unimproved_pct,water_surface_water_pct," +
		"sewer_basic_pct,sewer_limited_pct,sewer_unimproved_pct,sewer_open_defecation_pct"
	if lines[0] != header {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "demo-north,North,,41,41,,,,poor,28,,9,,,,," {
		t.Fatalf("expected blank cells for missing levels, got %q", lines[1])
	}
	if lines[2] != "demo-west,West,,33,33,,,,poor,26,23,12,6,,,," {
		t.Fatalf("unexpected row %q", lines[2])
	}
}

func TestWriteWorkbookWithLadders(t *testing.T) {
	d := BuildWith(ladderAdapter(), &models.TransformedData{Zones: ladderZones()}, nil, nil)

	var buf bytes.Buffer
	if err := WriteWorkbook(d, &buf); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if h, _ := f.GetCellValue("Zones", "J1"); h != "water_basic_pct" {
		t.Fatalf("expected ladder column in J1, got %q", h)
	}
	if v, _ := f.GetCellValue("Zones", "J2"); v != "28" {
		t.Fatalf("expected 28 in J2, got %q", v)
	}
	if v, _ := f.GetCellValue("Zones", "K2"); v != "" {
		t.Fatalf("expected missing level to stay empty, got %q", v)
	}
}

func TestAccessLadderChart(t *testing.T) {
	rows := ladderAdapter().ZoneRows(ladderZones())

	var buf bytes.Buffer
	if err := AccessLadderChart(rows, "water", &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
		t.Fatalf("expected PNG output")
	}

	buf.Reset()
	if err := AccessLadderChart(rows, "sewer", &buf); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for empty sewer ladder, got %v", err)
	}
	if err := AccessLadderChart(rows, "hygiene", &buf); !errors.Is(err, ErrUnknownChart) {
		t.Fatalf("expected ErrUnknownChart, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written")
	}

	// Построение графика не должно менять пропуски в строках
	if step, _ := rows[0].Ladders[0].Step("water_limited_pct"); step.Value != nil {
		t.Fatalf("expected missing level to stay null after drawing")
	}
}

func yearlyData() []models.YearlyAggregate {
	return []models.YearlyAggregate{
		{Source: "water", Metric: "municipal_coverage", Year: 2023, Rows: 5, Value: nf(75.6)},
		{Source: "water", Metric: "municipal_coverage", Year: 2024, Rows: 5, Value: nf(77.6)},
		{Source: "sewer", Metric: "municipal_coverage", Year: 2022, Rows: 1},
		{Source: "sewer", Metric: "municipal_coverage", Year: 2023, Rows: 5, Value: nf(48.75)},
	}
}

func TestYearlySeries(t *testing.T) {
	series := DefaultAdapter{}.YearlySeries(yearlyData())
	if len(series) != 2 || series[0].Label != "water" || series[1].Label != "sewer" {
		t.Fatalf("expected a series per source, got %+v", series)
	}
	sewer := series[1]
	if sewer.Metric != "municipal_coverage" || len(sewer.Points) != 2 {
		t.Fatalf("unexpected sewer series %+v", sewer)
	}
	if sewer.Points[0].Period != "2022" || sewer.Points[0].Value != nil {
		t.Fatalf("expected empty year to stay null, got %+v", sewer.Points[0])
	}
	if *sewer.Points[1].Value != 48.75 {
		t.Fatalf("expected 48.75, got %v", *sewer.Points[1].Value)
	}
}

func TestChartNamesAndYearlyChart(t *testing.T) {
	data := sampleData()
	data.Zones = ladderZones()
	data.Yearly = yearlyData()
	d := BuildWith(ladderAdapter(), data, nil, nil)

	names := strings.Join(ChartNames(d), ",")
	if names != "safe-access,water-distribution,ladder-water,ladder-sewer,nrw_pct,quality_rate,municipal_coverage" {
		t.Fatalf("unexpected chart names %s", names)
	}

	var buf bytes.Buffer
	if err := RenderChart("municipal_coverage", d, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
		t.Fatalf("expected PNG output")
	}

	buf.Reset()
	if err := RenderChart(ChartLadderPrefix+"water", d, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	empty := []Series{{Metric: "municipal_coverage", Label: "sewer", Points: []Point{{Period: "2022"}}}}
	if err := YearlyLineChart("municipal_coverage", empty, &buf); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestSafeAccessBarsSortedAndUnclipped(t *testing.T) {
	v := func(f float64) *float64 { return &f }
	rows := []ZoneRow{
		{Name: "West", SafeAccess: v(33)},
		{Name: "Zomba"},
		{Name: "Central", SafeAccess: v(120)},
		{Name: "East", SafeAccess: v(52)},
		{Name: "North", SafeAccess: v(52)},
	}

	values, names := safeAccessBars(rows)
	if strings.Join(names, ",") != "Central,East,North,West" {
		t.Fatalf("expected bars sorted by value, got %v", names)
	}
	if values[0] != 120 || values[3] != 33 {
		t.Fatalf("expected values kept as is, got %v", values)
	}

	var buf bytes.Buffer
	if err := SafeAccessBarChart(rows, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
