package transform

import (
	"reflect"
	"testing"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
)

func normalize(t *testing.T, columns []string, rows [][]string, prefix string) models.NormalizedTable {
	t.Helper()
	table, err := NormalizeRecords(models.RawTable{Source: "test", Columns: columns, Rows: rows}, prefix, testOpts)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return table
}

var waterSnapshotOpts = SnapshotOptions{
	Keys:   []string{models.ColumnCountry, models.ColumnZone},
	Rename: map[string]string{"safely_managed_pct": "water_safely_pct", "year": "water_year"},
	Extras: []string{"basic_pct"},
}

func TestSelectLatestPicksMaxYear(t *testing.T) {
	table := normalize(t,
		[]string{"country", "zone", "year", "w_safely_managed_pct"},
		[][]string{
			{"Uganda", "Kampala", "2019", "10"},
			{"Uganda", "Kampala", "2022", "30"},
			{"Uganda", "Kampala", "2021", "20"},
		}, "w_")

	snap := SelectLatest(table, waterSnapshotOpts)
	if len(snap.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(snap.Rows))
	}
	row := snap.Rows[0]
	if row.Year.Int64 != 2022 {
		t.Fatalf("expected year 2022, got %d", row.Year.Int64)
	}
	if v := row.Values["water_safely_pct"]; v.Float64 != 30 {
		t.Fatalf("expected renamed value 30, got %+v", v)
	}
	if snap.YearColumn != "water_year" {
		t.Fatalf("expected renamed year column, got %q", snap.YearColumn)
	}
}

func TestSelectLatestTieKeepsFirst(t *testing.T) {
	table := normalize(t,
		[]string{"zone", "year", "w_safely_managed_pct"},
		[][]string{
			{"North", "2022", "1"},
			{"North", "2022", "2"},
		}, "w_")

	snap := SelectLatest(table, waterSnapshotOpts)
	if v := snap.Rows[0].Values["water_safely_pct"]; v.Float64 != 1 {
		t.Fatalf("expected first occurrence to win a tie, got %v", v.Float64)
	}
}

func TestSelectLatestMissingYearsFallsBackToLast(t *testing.T) {
	table := normalize(t,
		[]string{"zone", "year", "w_safely_managed_pct"},
		[][]string{
			{"North", "", "1"},
			{"North", "bad", "2"},
			{"North", "NA", "3"},
		}, "w_")

	snap := SelectLatest(table, waterSnapshotOpts)
	if len(snap.Rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(snap.Rows))
	}
	if v := snap.Rows[0].Values["water_safely_pct"]; v.Float64 != 3 {
		t.Fatalf("expected last record, got %v", v.Float64)
	}
	if snap.Rows[0].Year.Valid {
		t.Fatalf("expected missing year to stay missing")
	}
}

func TestSelectLatestKeyUniqueness(t *testing.T) {
	table := normalize(t,
		[]string{"country", "zone", "year", "w_safely_managed_pct"},
		[][]string{
			{"Uganda", "North", "2020", "1"},
			{"Kenya", "North", "2021", "2"},
			{"Uganda", "South", "", "3"},
			{"Uganda", "North", "2023", "4"},
			{"", "North", "2022", "5"},
			{"Kenya", "North", "2019", "6"},
		}, "w_")

	snap := SelectLatest(table, waterSnapshotOpts)

	distinct := make(map[string]bool)
	for _, rec := range table.Records {
		distinct[groupKey(rec.Country, rec.Zone)] = true
	}
	if len(snap.Rows) != len(distinct) {
		t.Fatalf("expected %d rows, got %d", len(distinct), len(snap.Rows))
	}

	var zones []string
	for _, row := range snap.Rows {
		zones = append(zones, row.Country.String+"/"+row.Zone)
	}
	want := []string{"Uganda/North", "Kenya/North", "Uganda/South", "/North"}
	if !reflect.DeepEqual(zones, want) {
		t.Fatalf("expected first-appearance order %v, got %v", want, zones)
	}
}

func TestSelectLatestFallsBackToZoneKey(t *testing.T) {
	table := normalize(t,
		[]string{"country", "zone", "year", "w_safely_managed_pct"},
		[][]string{
			{"", "North", "2020", "1"},
			{"", "North", "2021", "2"},
		}, "w_")

	snap := SelectLatest(table, waterSnapshotOpts)
	if !reflect.DeepEqual(snap.Keys, []string{models.ColumnZone}) {
		t.Fatalf("expected zone-only key, got %v", snap.Keys)
	}
	if len(snap.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(snap.Rows))
	}
}

func TestSelectLatestKeepsOnlyRequestedColumns(t *testing.T) {
	table := normalize(t,
		[]string{"zone", "year", "w_safely_managed_pct", "w_basic_pct", "w_limited_pct"},
		[][]string{{"North", "2024", "41", "28", "18"}}, "w_")

	snap := SelectLatest(table, waterSnapshotOpts)
	want := []string{"water_safely_pct", "basic_pct"}
	if !reflect.DeepEqual(snap.Columns, want) {
		t.Fatalf("expected columns %v, got %v", want, snap.Columns)
	}
	if _, ok := snap.Rows[0].Values["limited_pct"]; ok {
		t.Fatalf("expected limited_pct to be dropped")
	}
}
