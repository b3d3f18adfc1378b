package transform

import (
	"database/sql"
	"sort"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
)

const defaultRatioScale = 100

type metricAccumulator struct {
	sum   float64
	count int
}

type periodAccumulator struct {
	period  models.Period
	rows    int
	metrics map[string]*metricAccumulator
}

// AggregatePeriods сводит записи по месяцам. Записи без года или месяца пропускаются,
// пропуски не участвуют ни в сумме, ни в среднем.
func AggregatePeriods(table models.NormalizedTable, specs []models.MetricSpec) []models.TimePeriodAggregate {
	byPeriod := make(map[int]*periodAccumulator)

	for _, rec := range table.Records {
		period, ok := rec.Period()
		if !ok {
			continue
		}

		acc, exists := byPeriod[period.Index()]
		if !exists {
			acc = &periodAccumulator{
				period:  period,
				metrics: make(map[string]*metricAccumulator, len(specs)),
			}
			for _, spec := range specs {
				acc.metrics[spec.Name] = &metricAccumulator{}
			}
			byPeriod[period.Index()] = acc
		}
		acc.rows++

		for _, spec := range specs {
			v := RowValue(rec, spec)
			if !v.Valid {
				continue
			}
			m := acc.metrics[spec.Name]
			m.sum += v.Float64
			m.count++
		}
	}

	aggregates := make([]models.TimePeriodAggregate, 0, len(byPeriod))
	for _, acc := range byPeriod {
		agg := models.TimePeriodAggregate{
			Period:  acc.period,
			Rows:    acc.rows,
			Metrics: make(map[string]sql.NullFloat64, len(specs)),
		}
		for _, spec := range specs {
			agg.Metrics[spec.Name] = finish(acc.metrics[spec.Name], spec.Agg)
		}
		aggregates = append(aggregates, agg)
	}

	sort.Slice(aggregates, func(i, j int) bool {
		return aggregates[i].Period.Before(aggregates[j].Period)
	})

	return aggregates
}

// AggregateYears считает среднее колонки по годам. Записи без года пропускаются,
// год без единого значения остаётся в результате с пропуском.
func AggregateYears(table models.NormalizedTable, metric, column string) []models.YearlyAggregate {
	if !table.IsMetric(column) {
		return nil
	}

	byYear := make(map[int]*metricAccumulator)
	rows := make(map[int]int)
	for _, rec := range table.Records {
		if !rec.Year.Valid {
			continue
		}
		year := int(rec.Year.Int64)
		acc, ok := byYear[year]
		if !ok {
			acc = &metricAccumulator{}
			byYear[year] = acc
		}
		rows[year]++

		if v := rec.Metric(column); v.Valid {
			acc.sum += v.Float64
			acc.count++
		}
	}

	aggregates := make([]models.YearlyAggregate, 0, len(byYear))
	for year, acc := range byYear {
		aggregates = append(aggregates, models.YearlyAggregate{
			Source: table.Source,
			Metric: metric,
			Year:   year,
			Rows:   rows[year],
			Value:  finish(acc, models.AggMean),
		})
	}
	sort.Slice(aggregates, func(i, j int) bool {
		return aggregates[i].Year < aggregates[j].Year
	})

	return aggregates
}

// RowValue вычисляет значение метрики для одной записи.
// Для отношения нулевой или пропущенный знаменатель даёт пропуск.
func RowValue(rec models.AccessRecord, spec models.MetricSpec) sql.NullFloat64 {
	if !spec.IsRatio() {
		return rec.Metric(spec.Column)
	}

	num := rec.Metric(spec.Numerator)
	den := rec.Metric(spec.Denominator)
	if !num.Valid || !den.Valid || den.Float64 == 0 {
		return sql.NullFloat64{}
	}

	value := num.Float64
	if spec.Subtract != "" {
		sub := rec.Metric(spec.Subtract)
		if !sub.Valid {
			return sql.NullFloat64{}
		}
		value -= sub.Float64
	}

	scale := spec.Scale
	if scale == 0 {
		scale = defaultRatioScale
	}

	return sql.NullFloat64{Float64: value / den.Float64 * scale, Valid: true}
}

func finish(m *metricAccumulator, agg models.Aggregation) sql.NullFloat64 {
	if m == nil || m.count == 0 {
		return sql.NullFloat64{}
	}
	if agg == models.AggMean {
		return sql.NullFloat64{Float64: m.sum / float64(m.count), Valid: true}
	}
	return sql.NullFloat64{Float64: m.sum, Valid: true}
}
