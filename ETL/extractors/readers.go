package extractors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// ReadTable читает табличный файл, формат определяется по расширению
func ReadTable(path string) (models.RawTable, error) {
	var (
		table models.RawTable
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		table, err = readCSVFile(path)
	case ".json":
		table, err = readJSONFile(path)
	case ".xlsx", ".xlsm":
		table, err = readXLSXFile(path)
	default:
		return models.RawTable{}, fmt.Errorf("неподдерживаемый формат файла %s", path)
	}
	if err != nil {
		return models.RawTable{}, err
	}

	table.Path = path
	return table, nil
}

func readCSVFile(path string) (models.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.RawTable{}, err
	}
	defer f.Close()

	table, err := ReadCSV(f)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("ошибка чтения CSV %s: %w", path, err)
	}
	return table, nil
}

// ReadCSV читает CSV с заголовком. Все значения остаются строками,
// приведение типов выполняет нормализатор. Заголовок читается как первая
// строка данных: gota переименовывает пустые и повторяющиеся имена колонок,
// а их обработка остаётся за нормализатором.
func ReadCSV(r io.Reader) (models.RawTable, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return models.RawTable{}, df.Err
	}

	// records[0] - имена, сгенерированные gota, records[1] - заголовок файла
	records := df.Records()
	if len(records) < 2 {
		return models.RawTable{}, fmt.Errorf("пустой CSV без заголовка")
	}

	return models.RawTable{
		Columns: records[1],
		Rows:    records[2:],
	}, nil
}

func readJSONFile(path string) (models.RawTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.RawTable{}, err
	}

	table, err := ReadJSON(data)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("ошибка чтения JSON %s: %w", path, err)
	}
	return table, nil
}

// ReadJSON разбирает JSON в одной из двух форм: массив объектов
// или объект с колонками одинаковой длины
func ReadJSON(data []byte) (models.RawTable, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return models.RawTable{}, fmt.Errorf("пустой JSON")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	switch trimmed[0] {
	case '[':
		var objects []map[string]interface{}
		if err := dec.Decode(&objects); err != nil {
			return models.RawTable{}, err
		}
		return tableFromObjects(objects), nil
	case '{':
		var columns map[string][]interface{}
		if err := dec.Decode(&columns); err != nil {
			return models.RawTable{}, err
		}
		return tableFromColumns(columns)
	default:
		return models.RawTable{}, fmt.Errorf("ожидается массив объектов или объект с колонками")
	}
}

func tableFromObjects(objects []map[string]interface{}) models.RawTable {
	seen := make(map[string]bool)
	var columns []string
	for _, obj := range objects {
		for key := range obj {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)

	rows := make([][]string, 0, len(objects))
	for _, obj := range objects {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = jsonCell(obj[col])
		}
		rows = append(rows, row)
	}

	return models.RawTable{Columns: columns, Rows: rows}
}

func tableFromColumns(data map[string][]interface{}) (models.RawTable, error) {
	columns := make([]string, 0, len(data))
	for key := range data {
		columns = append(columns, key)
	}
	sort.Strings(columns)

	n := -1
	for _, col := range columns {
		if n == -1 {
			n = len(data[col])
			continue
		}
		if len(data[col]) != n {
			return models.RawTable{}, fmt.Errorf("колонка %q длиной %d, ожидалось %d", col, len(data[col]), n)
		}
	}
	if n < 0 {
		n = 0
	}

	rows := make([][]string, n)
	for i := range rows {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = jsonCell(data[col][i])
		}
		rows[i] = row
	}

	return models.RawTable{Columns: columns, Rows: rows}, nil
}

func jsonCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func readXLSXFile(path string) (models.RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("ошибка открытия XLSX %s: %w", path, err)
	}
	defer f.Close()

	table, err := readWorkbook(f)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("ошибка чтения XLSX %s: %w", path, err)
	}
	return table, nil
}

// ReadXLSX читает первый лист книги
func ReadXLSX(r io.Reader) (models.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return models.RawTable{}, err
	}
	defer f.Close()

	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) (models.RawTable, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return models.RawTable{}, fmt.Errorf("в книге нет листов")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return models.RawTable{}, err
	}
	if len(rows) == 0 {
		return models.RawTable{}, fmt.Errorf("лист %q пуст", sheets[0])
	}

	header := rows[0]
	table := models.RawTable{
		Columns: header,
		Rows:    make([][]string, 0, len(rows)-1),
	}

	// GetRows обрезает пустые ячейки в конце строки
	for _, row := range rows[1:] {
		padded := make([]string, len(header))
		copy(padded, row)
		table.Rows = append(table.Rows, padded)
	}

	return table, nil
}
