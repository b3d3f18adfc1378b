package transform

import (
	"strings"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/samber/lo"
)

// ApplyFilter возвращает новую таблицу с записями, подходящими под фильтр.
// Фильтр по стране применяется только к таблицам с колонкой country,
// диапазон месяцев - только к таблицам с колонкой month.
func ApplyFilter(table models.NormalizedTable, filter models.FilterParams) models.NormalizedTable {
	zone := selection(filter.Zone)
	country := selection(filter.Country)
	byMonth := table.HasMonth && filter.HasMonthRange()

	out := table
	out.Records = lo.Filter(table.Records, func(rec models.AccessRecord, _ int) bool {
		if zone != "" && !strings.EqualFold(strings.TrimSpace(rec.Zone), zone) {
			return false
		}
		if country != "" && table.HasCountry {
			if !rec.Country.Valid || !strings.EqualFold(strings.TrimSpace(rec.Country.String), country) {
				return false
			}
		}
		if byMonth {
			period, ok := rec.Period()
			if !ok || !filter.InRange(period) {
				return false
			}
		}
		return true
	})

	return out
}

func selection(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") || strings.EqualFold(s, "all zones") {
		return ""
	}
	return s
}
