package extractors

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/LilVoxy/wash_dashboard/ETL/cache"
	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
	"github.com/xuri/excelize/v2"
)

func testConfig(dir string) config.DashboardConfig {
	cfg := config.GetConfig()
	cfg.DataDir = dir
	return cfg
}

func quietLogger() *utils.ETLLogger {
	return utils.NewWriterLogger(io.Discard, false)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadCSVKeepsCellsAsText(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("zone,year,w_safely_managed_pct\nNorth,2023,NA\nSouth,,45.5\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantCols := []string{"zone", "year", "w_safely_managed_pct"}
	if !reflect.DeepEqual(table.Columns, wantCols) {
		t.Fatalf("expected columns %v, got %v", wantCols, table.Columns)
	}
	wantRows := [][]string{{"North", "2023", "NA"}, {"South", "", "45.5"}}
	if !reflect.DeepEqual(table.Rows, wantRows) {
		t.Fatalf("expected rows %v, got %v", wantRows, table.Rows)
	}
}

func TestReadCSVKeepsHeaderAsWritten(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("zone,x,x,\nNorth,1,2,3\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantCols := []string{"zone", "x", "x", ""}
	if !reflect.DeepEqual(table.Columns, wantCols) {
		t.Fatalf("expected columns %v, got %v", wantCols, table.Columns)
	}
	if len(table.Rows) != 1 || !reflect.DeepEqual(table.Rows[0], []string{"North", "1", "2", "3"}) {
		t.Fatalf("unexpected rows %v", table.Rows)
	}
}

func TestReadCSVHeaderOnly(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("zone,year\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Columns) != 2 || len(table.Rows) != 0 {
		t.Fatalf("expected header without rows, got %+v", table)
	}
}

func TestReadJSONArrayOfObjects(t *testing.T) {
	table, err := ReadJSON([]byte(`[{"zone":"North","year":2023,"ok":true},{"zone":"South","year":null}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantCols := []string{"ok", "year", "zone"}
	if !reflect.DeepEqual(table.Columns, wantCols) {
		t.Fatalf("expected columns %v, got %v", wantCols, table.Columns)
	}
	wantRows := [][]string{{"true", "2023", "North"}, {"", "", "South"}}
	if !reflect.DeepEqual(table.Rows, wantRows) {
		t.Fatalf("expected rows %v, got %v", wantRows, table.Rows)
	}
}

func TestReadJSONColumnar(t *testing.T) {
	table, err := ReadJSON([]byte(`{"zone":["North","South"],"nrw_pct":[33.5,null]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantRows := [][]string{{"33.5", "North"}, {"", "South"}}
	if !reflect.DeepEqual(table.Rows, wantRows) {
		t.Fatalf("expected rows %v, got %v", wantRows, table.Rows)
	}

	if _, err := ReadJSON([]byte(`{"zone":["North"],"nrw_pct":[1,2]}`)); err == nil {
		t.Fatalf("expected error for columns of different length")
	}
}

func TestReadTableXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "water.xlsx")

	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "zone")
	f.SetCellValue("Sheet1", "B1", "year")
	f.SetCellValue("Sheet1", "C1", "w_safely_managed_pct")
	f.SetCellValue("Sheet1", "A2", "North")
	f.SetCellValue("Sheet1", "B2", 2024)
	f.SetCellValue("Sheet1", "A3", "South")
	f.SetCellValue("Sheet1", "B3", 2023)
	f.SetCellValue("Sheet1", "C3", 51)
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	table, err := ReadTable(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantRows := [][]string{{"North", "2024", ""}, {"South", "2023", "51"}}
	if !reflect.DeepEqual(table.Rows, wantRows) {
		t.Fatalf("expected rows %v, got %v", wantRows, table.Rows)
	}
	if table.Path != path {
		t.Fatalf("expected path %s, got %s", path, table.Path)
	}
}

func TestReadTableUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "water.parquet")
	writeFile(t, path, "x")
	if _, err := ReadTable(path); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestExtractMissingRequiredFile(t *testing.T) {
	cfg := testConfig(t.TempDir())

	_, err := NewExtractor(cfg, nil, quietLogger()).Extract()
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}

	var notFound *FileNotFoundError
	if !errors.As(err, &notFound) || notFound.Source != "water" {
		t.Fatalf("expected FileNotFoundError for water, got %v", err)
	}
}

func TestExtractMissingOptionalFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Water Access Data.csv"), "country,zone,year,w_safely_managed_pct\nMalawi,Lilongwe,2024,45\n")

	data, err := NewExtractor(testConfig(dir), nil, quietLogger()).Extract()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := data.Tables["water"]; !ok {
		t.Fatalf("expected water table to be extracted")
	}
	if _, ok := data.Tables["sewer"]; ok {
		t.Fatalf("expected no sewer table")
	}
	if !errors.Is(data.Missing["sewer"], ErrFileNotFound) {
		t.Fatalf("expected sewer to be recorded as missing, got %v", data.Missing)
	}
	if data.Tables["water"].Source != "water" {
		t.Fatalf("expected source name to be set, got %q", data.Tables["water"].Source)
	}
}

func TestExtractFallsBackToSamples(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.UseSampleData = true

	data, err := NewExtractor(cfg, nil, quietLogger()).Extract()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(data.SampleSources) != 3 {
		t.Fatalf("expected all three sources to use samples, got %v", data.SampleSources)
	}
	if len(data.Tables["water"].Rows) == 0 || len(data.Tables["operations"].Rows) == 0 {
		t.Fatalf("expected sample rows to be loaded")
	}
	if len(data.Missing) != 0 {
		t.Fatalf("expected nothing missing, got %v", data.Missing)
	}
}

func TestExtractUsesCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Water Access Data.csv")
	writeFile(t, path, "zone,year,w_safely_managed_pct\nNorth,2024,45\n")

	fileCache, err := cache.NewFileCache(4)
	if err != nil {
		t.Fatal(err)
	}
	extractor := NewExtractor(testConfig(dir), fileCache, quietLogger())

	first, err := extractor.Extract()
	if err != nil {
		t.Fatal(err)
	}
	second, err := extractor.Extract()
	if err != nil {
		t.Fatal(err)
	}

	if fileCache.Len() != 1 {
		t.Fatalf("expected one cached file, got %d", fileCache.Len())
	}
	if !reflect.DeepEqual(first.Tables, second.Tables) {
		t.Fatalf("expected cached extraction to equal fresh extraction")
	}
}
