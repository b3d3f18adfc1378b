package transform

import (
	"database/sql"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
)

// SnapshotOptions - параметры выбора последнего среза
type SnapshotOptions struct {
	// Ключ группировки: подмножество {country, zone}
	Keys []string

	// Переименование выходных колонок, в том числе year
	Rename map[string]string

	// Колонки, которые сохраняются под своими именами
	Extras []string
}

type snapshotGroup struct {
	country sql.NullString
	zone    string
	records []int
}

// SelectLatest оставляет по одной записи на ключ: с максимальным годом
// (при равенстве первую), а если года нет ни у одной записи группы - последнюю
func SelectLatest(table models.NormalizedTable, opts SnapshotOptions) models.SnapshotTable {
	keys := snapshotKeys(table, opts.Keys)
	byCountry := containsString(keys, models.ColumnCountry)

	yearColumn := models.ColumnYear
	if renamed, ok := opts.Rename[models.ColumnYear]; ok && renamed != "" {
		yearColumn = renamed
	}

	out := models.SnapshotTable{
		Source:     table.Source,
		Keys:       keys,
		YearColumn: yearColumn,
		HasCountry: table.HasCountry,
	}

	// Выходные колонки в порядке исходной таблицы
	outputs := make(map[string]string)
	used := make(map[string]bool)
	for _, col := range table.MetricColumns {
		name, ok := opts.Rename[col]
		if !ok || name == "" {
			if !containsString(opts.Extras, col) {
				continue
			}
			name = col
		}
		if used[name] {
			continue
		}
		used[name] = true
		outputs[col] = name
		out.Columns = append(out.Columns, name)
	}

	// Группы в порядке первого появления ключа
	var groups []*snapshotGroup
	index := make(map[string]*snapshotGroup)
	for i, rec := range table.Records {
		var country sql.NullString
		if byCountry {
			country = rec.Country
		}
		k := groupKey(country, rec.Zone)

		g, ok := index[k]
		if !ok {
			g = &snapshotGroup{country: country, zone: rec.Zone}
			index[k] = g
			groups = append(groups, g)
		}
		g.records = append(g.records, i)
	}

	out.Rows = make([]models.SnapshotRow, 0, len(groups))
	for _, g := range groups {
		rec := table.Records[pickLatest(table.Records, g.records)]

		row := models.SnapshotRow{
			Country: rec.Country,
			Zone:    g.zone,
			Year:    rec.Year,
			Values:  make(map[string]sql.NullFloat64, len(outputs)),
		}
		for src, name := range outputs {
			row.Values[name] = rec.Metrics[src]
		}
		out.Rows = append(out.Rows, row)
	}

	return out
}

func snapshotKeys(table models.NormalizedTable, requested []string) []string {
	withCountry := containsString(requested, models.ColumnCountry) && table.HasCountryValues()
	if withCountry {
		return []string{models.ColumnCountry, models.ColumnZone}
	}
	return []string{models.ColumnZone}
}

func pickLatest(records []models.AccessRecord, idx []int) int {
	best := -1
	for _, i := range idx {
		y := records[i].Year
		if !y.Valid {
			continue
		}
		// Строгое сравнение: при равенстве лет остаётся первая запись
		if best == -1 || y.Int64 > records[best].Year.Int64 {
			best = i
		}
	}
	if best == -1 {
		return idx[len(idx)-1]
	}
	return best
}

func groupKey(country sql.NullString, zone string) string {
	if !country.Valid {
		return "\x01\x00" + zone
	}
	return country.String + "\x00" + zone
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
