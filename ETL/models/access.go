package models

import (
	"database/sql"
	"strconv"
)

// Имена служебных колонок, которые распознаются во всех источниках
const (
	ColumnCountry = "country"
	ColumnZone    = "zone"
	ColumnYear    = "year"
	ColumnMonth   = "month"
)

// RawTable представляет таблицу в том виде, в котором она прочитана из файла
type RawTable struct {
	Source  string     `json:"source"`
	Path    string     `json:"path"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// AccessRecord представляет одну запись о доступе к услугам после очистки.
// Отсутствующее значение всегда хранится как невалидный sql.Null*, а не как 0.
type AccessRecord struct {
	Country    sql.NullString
	Zone       string
	Year       sql.NullInt64
	Month      sql.NullInt64
	Metrics    map[string]sql.NullFloat64
	Attributes map[string]string
}

// Metric возвращает значение числовой колонки (невалидное, если колонки нет)
func (r AccessRecord) Metric(name string) sql.NullFloat64 {
	return r.Metrics[name]
}

// Period возвращает период записи, если заданы и год, и месяц
func (r AccessRecord) Period() (Period, bool) {
	if !r.Year.Valid || !r.Month.Valid {
		return Period{}, false
	}
	return Period{Year: int(r.Year.Int64), Month: int(r.Month.Int64)}, true
}

// NormalizedTable представляет упорядоченную последовательность очищенных записей
type NormalizedTable struct {
	Source        string
	Columns       []string
	MetricColumns []string
	HasCountry    bool
	HasYear       bool
	HasMonth      bool
	InvalidValues int
	Records       []AccessRecord
}

// Len возвращает количество записей
func (t NormalizedTable) Len() int {
	return len(t.Records)
}

// HasCountryValues сообщает, есть ли хотя бы одна запись с заполненной страной
func (t NormalizedTable) HasCountryValues() bool {
	if !t.HasCountry {
		return false
	}
	for _, rec := range t.Records {
		if rec.Country.Valid {
			return true
		}
	}
	return false
}

// IsMetric сообщает, является ли колонка числовой
func (t NormalizedTable) IsMetric(column string) bool {
	for _, c := range t.MetricColumns {
		if c == column {
			return true
		}
	}
	return false
}

// Raw превращает нормализованную таблицу обратно в сырую.
// Пропуски выводятся пустыми ячейками, числа - в кратчайшем точном виде.
func (t NormalizedTable) Raw() RawTable {
	raw := RawTable{
		Source:  t.Source,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, 0, len(t.Records)),
	}

	metrics := make(map[string]bool, len(t.MetricColumns))
	for _, c := range t.MetricColumns {
		metrics[c] = true
	}

	for _, rec := range t.Records {
		row := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			switch {
			case col == ColumnCountry:
				if rec.Country.Valid {
					row[i] = rec.Country.String
				}
			case col == ColumnZone:
				row[i] = rec.Zone
			case col == ColumnYear:
				row[i] = formatNullInt(rec.Year)
			case col == ColumnMonth:
				row[i] = formatNullInt(rec.Month)
			case metrics[col]:
				if v := rec.Metrics[col]; v.Valid {
					row[i] = strconv.FormatFloat(v.Float64, 'f', -1, 64)
				}
			default:
				row[i] = rec.Attributes[col]
			}
		}
		raw.Rows = append(raw.Rows, row)
	}

	return raw
}

func formatNullInt(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}
