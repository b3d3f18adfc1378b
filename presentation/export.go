package presentation

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

const (
	sheetZones   = "Zones"
	sheetPeriods = "Periods"
)

var zoneHeader = []string{"id", "name", "country", "safeAccess", "water_safely_pct", "sewer_safely_pct", "water_year", "sewer_year", "band"}

// ExportFileName превращает подпись в безопасное имя файла
func ExportFileName(label string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.TrimSpace(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return "data"
	}
	return b.String()
}

// zoneColumns дополняет основной заголовок столбцами ступеней лестниц
// в порядке их появления. Столбцы, уже входящие в заголовок, не повторяются.
func zoneColumns(rows []ZoneRow) []string {
	columns := append([]string(nil), zoneHeader...)
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		seen[c] = true
	}
	for _, row := range rows {
		for _, ladder := range row.Ladders {
			for _, step := range ladder.Steps {
				if !seen[step.Column] {
					seen[step.Column] = true
					columns = append(columns, step.Column)
				}
			}
		}
	}
	return columns
}

// WriteZonesCSV выгружает строки зон в CSV. Пропуски выводятся пустыми ячейками.
func WriteZonesCSV(rows []ZoneRow, w io.Writer) error {
	columns := zoneColumns(rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(zoneRecord(row, columns)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteWorkbook выгружает зоны и помесячные ряды в XLSX
func WriteWorkbook(d *Dashboard, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetZones); err != nil {
		return fmt.Errorf("ошибка переименования листа: %w", err)
	}
	columns := zoneColumns(d.Zones)
	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetZones, cell, h)
	}
	for r, row := range d.Zones {
		for c, v := range zoneValues(row, columns) {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheetZones, cell, v)
		}
	}

	if _, err := f.NewSheet(sheetPeriods); err != nil {
		return fmt.Errorf("ошибка создания листа: %w", err)
	}
	f.SetCellValue(sheetPeriods, "A1", "period")
	periodRows := make(map[string]int)
	var periods []string
	for _, s := range d.Series {
		for _, pt := range s.Points {
			if _, ok := periodRows[pt.Period]; !ok {
				periodRows[pt.Period] = len(periods) + 2
				periods = append(periods, pt.Period)
			}
		}
	}
	for _, p := range periods {
		f.SetCellValue(sheetPeriods, fmt.Sprintf("A%d", periodRows[p]), p)
	}
	for i, s := range d.Series {
		col := i + 2
		cell, _ := excelize.CoordinatesToCellName(col, 1)
		f.SetCellValue(sheetPeriods, cell, s.Metric)
		for _, pt := range s.Points {
			if pt.Value == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col, periodRows[pt.Period])
			f.SetCellValue(sheetPeriods, cell, *pt.Value)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("ошибка записи XLSX: %w", err)
	}
	return nil
}

func zoneValues(row ZoneRow, columns []string) []interface{} {
	values := make([]interface{}, len(columns))
	copy(values, []interface{}{row.ID, row.Name, nil, nil, nil, nil, nil, nil, row.Band})
	if row.Country != nil {
		values[2] = *row.Country
	}
	if row.SafeAccess != nil {
		values[3] = *row.SafeAccess
	}
	if row.WaterSafelyPct != nil {
		values[4] = *row.WaterSafelyPct
	}
	if row.SewerSafelyPct != nil {
		values[5] = *row.SewerSafelyPct
	}
	if row.WaterYear != nil {
		values[6] = *row.WaterYear
	}
	if row.SewerYear != nil {
		values[7] = *row.SewerYear
	}

	for i := len(zoneHeader); i < len(columns); i++ {
		for _, ladder := range row.Ladders {
			if step, ok := ladder.Step(columns[i]); ok && step.Value != nil {
				values[i] = *step.Value
				break
			}
		}
	}
	return values
}

func zoneRecord(row ZoneRow, columns []string) []string {
	values := zoneValues(row, columns)
	record := make([]string, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case nil:
		case string:
			record[i] = val
		case float64:
			record[i] = strconv.FormatFloat(val, 'f', -1, 64)
		case int64:
			record[i] = strconv.FormatInt(val, 10)
		}
	}
	return record
}
