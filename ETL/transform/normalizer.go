package transform

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/samber/lo"
)

// ErrMissingColumns - в таблице нет обязательных колонок
var ErrMissingColumns = errors.New("отсутствуют обязательные колонки")

// MissingColumnsError перечисляет отсутствующие колонки источника
type MissingColumnsError struct {
	Source  string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("источник %q: отсутствуют колонки %s", e.Source, strings.Join(e.Columns, ", "))
}

// Is позволяет сравнивать ошибку с ErrMissingColumns через errors.Is
func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// NormalizeOptions - правила распознавания числовых колонок
type NormalizeOptions struct {
	// Суффикс процентных колонок, по умолчанию "_pct"
	PercentSuffix string

	// Процентные колонки, имена которых не заканчиваются суффиксом
	ExtraPercentColumns []string

	// Колонки со счётчиками, которые тоже приводятся к числу
	NumericColumns []string
}

// Значения, которые означают пропуск и не считаются ошибкой разбора
var naTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
	"-":    true,
	"<na>": true,
}

var monthNames = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

type columnKind int

const (
	kindAttribute columnKind = iota
	kindCountry
	kindZone
	kindYear
	kindMonth
	kindMetric
)

type columnPlan struct {
	index int
	name  string
	kind  columnKind
}

// NormalizeRecords очищает сырую таблицу источника: обрезает пробелы в стране и зоне,
// снимает префикс источника с процентных колонок и приводит числа, год и месяц к
// типам с явным пропуском. Нераспознанное значение становится пропуском.
func NormalizeRecords(raw models.RawTable, prefix string, opts NormalizeOptions) (models.NormalizedTable, error) {
	suffix := opts.PercentSuffix
	if suffix == "" {
		suffix = "_pct"
	}

	toSet := func(cols []string) map[string]bool {
		return lo.SliceToMap(cols, func(c string) (string, bool) {
			return strings.ToLower(strings.TrimSpace(c)), true
		})
	}
	extras := toSet(opts.ExtraPercentColumns)
	numeric := toSet(opts.NumericColumns)

	table := models.NormalizedTable{Source: raw.Source}

	var plans []columnPlan
	taken := make(map[string]bool, len(raw.Columns))

	for i, header := range raw.Columns {
		h := strings.ToLower(strings.TrimSpace(header))
		if h == "" {
			continue
		}

		plan := columnPlan{index: i, name: h, kind: kindAttribute}
		stripped := h
		if prefix != "" && strings.HasPrefix(h, prefix) && len(h) > len(prefix) {
			stripped = h[len(prefix):]
		}

		switch {
		case h == models.ColumnCountry:
			plan.kind = kindCountry
		case h == models.ColumnZone:
			plan.kind = kindZone
		case h == models.ColumnYear:
			plan.kind = kindYear
		case h == models.ColumnMonth:
			plan.kind = kindMonth
		case strings.HasSuffix(stripped, suffix), extras[stripped], numeric[stripped]:
			plan.name = stripped
			plan.kind = kindMetric
		}

		// При совпадении имён побеждает первая колонка
		if taken[plan.name] {
			continue
		}
		taken[plan.name] = true
		plans = append(plans, plan)
	}

	hasZone := lo.ContainsBy(plans, func(p columnPlan) bool { return p.kind == kindZone })
	if !hasZone {
		return models.NormalizedTable{Source: raw.Source}, &MissingColumnsError{
			Source:  raw.Source,
			Columns: []string{models.ColumnZone},
		}
	}

	for _, plan := range plans {
		table.Columns = append(table.Columns, plan.name)
		switch plan.kind {
		case kindCountry:
			table.HasCountry = true
		case kindYear:
			table.HasYear = true
		case kindMonth:
			table.HasMonth = true
		case kindMetric:
			table.MetricColumns = append(table.MetricColumns, plan.name)
		}
	}

	table.Records = make([]models.AccessRecord, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		rec := models.AccessRecord{
			Metrics:    make(map[string]sql.NullFloat64, len(table.MetricColumns)),
			Attributes: make(map[string]string),
		}

		for _, plan := range plans {
			cell := ""
			if plan.index < len(row) {
				cell = row[plan.index]
			}

			switch plan.kind {
			case kindCountry:
				if v := strings.TrimSpace(cell); !isNA(v) {
					rec.Country = sql.NullString{String: v, Valid: true}
				}
			case kindZone:
				if v := strings.TrimSpace(cell); !isNA(v) {
					rec.Zone = v
				}
			case kindYear:
				v, invalid := parseYear(cell)
				rec.Year = v
				if invalid {
					table.InvalidValues++
				}
			case kindMonth:
				v, invalid := parseMonth(cell)
				rec.Month = v
				if invalid {
					table.InvalidValues++
				}
			case kindMetric:
				v, invalid := parseFloat(cell)
				rec.Metrics[plan.name] = v
				if invalid {
					table.InvalidValues++
				}
			default:
				rec.Attributes[plan.name] = cell
			}
		}

		table.Records = append(table.Records, rec)
	}

	return table, nil
}

func isNA(s string) bool {
	return naTokens[strings.ToLower(s)]
}

// parseFloat возвращает число и признак того, что значение не удалось разобрать
func parseFloat(cell string) (sql.NullFloat64, bool) {
	s := strings.TrimSpace(cell)
	if isNA(s) {
		return sql.NullFloat64{}, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, true
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}, false
	}
	return sql.NullFloat64{Float64: f, Valid: true}, false
}

func parseYear(cell string) (sql.NullInt64, bool) {
	f, invalid := parseFloat(cell)
	if !f.Valid {
		return sql.NullInt64{}, invalid
	}
	// 2023.0 допустимо, 2023.5 - нет
	if f.Float64 != math.Trunc(f.Float64) {
		return sql.NullInt64{}, true
	}
	return sql.NullInt64{Int64: int64(f.Float64), Valid: true}, false
}

func parseMonth(cell string) (sql.NullInt64, bool) {
	s := strings.ToLower(strings.TrimSpace(cell))
	if m, ok := monthNames[s]; ok {
		return sql.NullInt64{Int64: int64(m), Valid: true}, false
	}

	v, invalid := parseYear(s)
	if !v.Valid {
		return v, invalid
	}
	if v.Int64 < 1 || v.Int64 > 12 {
		return sql.NullInt64{}, true
	}
	return v, false
}
