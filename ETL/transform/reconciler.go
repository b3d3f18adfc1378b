package transform

import (
	"database/sql"
	"strings"
	"unicode"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
)

// ReconcileOptions - имена процентов безопасного доступа в левой и правой таблицах
type ReconcileOptions struct {
	LeftPct  string
	RightPct string
}

// Reconcile выполняет полное внешнее соединение двух последних срезов.
// Общие колонки берутся слева, пропуски заполняются значениями справа.
func Reconcile(left, right models.SnapshotTable, opts ReconcileOptions) []models.ZoneSummary {
	byCountry := left.KeyedByCountry() && right.KeyedByCountry()

	key := func(row models.SnapshotRow) string {
		if byCountry {
			return groupKey(row.Country, row.Zone)
		}
		return row.Zone
	}

	rightIndex := make(map[string][]int, len(right.Rows))
	for i, row := range right.Rows {
		k := key(row)
		rightIndex[k] = append(rightIndex[k], i)
	}

	matched := make([]bool, len(right.Rows))
	zones := make([]models.ZoneSummary, 0, len(left.Rows)+len(right.Rows))

	for i := range left.Rows {
		l := &left.Rows[i]
		matches := rightIndex[key(*l)]
		if len(matches) == 0 {
			zones = append(zones, mergeRows(l, nil, opts))
			continue
		}
		for _, j := range matches {
			matched[j] = true
			zones = append(zones, mergeRows(l, &right.Rows[j], opts))
		}
	}

	for j := range right.Rows {
		if !matched[j] {
			zones = append(zones, mergeRows(nil, &right.Rows[j], opts))
		}
	}

	return zones
}

func mergeRows(l, r *models.SnapshotRow, opts ReconcileOptions) models.ZoneSummary {
	var z models.ZoneSummary
	z.Values = make(map[string]sql.NullFloat64)

	if r != nil {
		z.Zone = r.Zone
		z.Country = r.Country
		z.SewerYear = r.Year
		z.SewerSafelyPct = r.Values[opts.RightPct]
		for name, v := range r.Values {
			z.Values[name] = v
		}
	}

	if l != nil {
		z.Zone = l.Zone
		if l.Country.Valid {
			z.Country = l.Country
		}
		z.WaterYear = l.Year
		z.WaterSafelyPct = l.Values[opts.LeftPct]
		for name, v := range l.Values {
			if existing, ok := z.Values[name]; ok && !v.Valid && existing.Valid {
				continue
			}
			z.Values[name] = v
		}
	}

	z.SafeAccess = meanOfValid(z.WaterSafelyPct, z.SewerSafelyPct)
	z.ID = Slug(z.Country.String, z.Zone)
	return z
}

func meanOfValid(values ...sql.NullFloat64) sql.NullFloat64 {
	var sum float64
	n := 0
	for _, v := range values {
		if v.Valid {
			sum += v.Float64
			n++
		}
	}
	if n == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: sum / float64(n), Valid: true}
}

// Slug строит идентификатор зоны из страны и названия:
// "Uganda", "Kampala North" -> "uganda-kampala-north"
func Slug(country, zone string) string {
	if country == "" {
		country = "na"
	}
	if zone == "" {
		zone = "zone"
	}

	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(country + "-" + zone) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}

	if b.Len() == 0 {
		return "zone"
	}
	return b.String()
}
