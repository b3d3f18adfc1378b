// Package presentation превращает результаты конвейера в структуры,
// которые потребляют графики, карта зон и выгрузки.
package presentation

import (
	"database/sql"
	"sort"
	"strconv"

	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/linear_regression"
	"github.com/LilVoxy/wash_dashboard/ETL/models"
)

// Метрики слоя карты
const (
	MetricSafeAccess = "safeAccess"
	MetricWaterPct   = "water_safely_pct"
	MetricSewerPct   = "sewer_safely_pct"
)

// Категории зон на карте
const (
	BandGood   = "good"
	BandFair   = "fair"
	BandPoor   = "poor"
	BandNoData = "no_data"
)

// ZoneRow - строка таблицы зон в том виде, который ожидают графики и карта.
// Пропуски сериализуются как null.
type ZoneRow struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Country        *string  `json:"country"`
	SafeAccess     *float64 `json:"safeAccess"`
	WaterSafelyPct *float64 `json:"water_safely_pct"`
	SewerSafelyPct *float64 `json:"sewer_safely_pct"`
	WaterYear      *int64   `json:"water_year"`
	SewerYear      *int64   `json:"sewer_year"`
	Band           string   `json:"band"`
	Ladders        []Ladder `json:"ladders,omitempty"`
}

// LadderStep - ступень лестницы доступа. Value равно nil, если значения нет.
type LadderStep struct {
	Label  string   `json:"label"`
	Column string   `json:"column"`
	Value  *float64 `json:"value"`
}

// Ladder - лестница доступа зоны для одного вида услуг
type Ladder struct {
	Name  string       `json:"name"`
	Steps []LadderStep `json:"steps"`
}

// Step возвращает ступень по имени колонки
func (l Ladder) Step(column string) (LadderStep, bool) {
	for _, step := range l.Steps {
		if step.Column == column {
			return step, true
		}
	}
	return LadderStep{}, false
}

// Point - точка ряда. Value равно nil, если значения за период нет.
type Point struct {
	Period string   `json:"period"`
	Value  *float64 `json:"value"`
	Lower  *float64 `json:"lower,omitempty"`
	Upper  *float64 `json:"upper,omitempty"`
}

// Series - помесячный ряд одного показателя
type Series struct {
	Metric string  `json:"metric"`
	Label  string  `json:"label,omitempty"`
	Points []Point `json:"points"`
}

// MapLayer - значения показателя по идентификаторам зон
type MapLayer struct {
	Metric string              `json:"metric"`
	Values map[string]*float64 `json:"values"`
	Bands  map[string]string   `json:"bands"`
}

// Adapter преобразует таблицы конвейера в структуры для отрисовки
type Adapter interface {
	ZoneRows(zones []models.ZoneSummary) []ZoneRow
	PeriodSeries(aggs []models.TimePeriodAggregate) []Series
	YearlySeries(aggs []models.YearlyAggregate) []Series
	MapLayer(metric string, zones []models.ZoneSummary) MapLayer
}

// DefaultAdapter - адаптер с порогами карты 80/60.
// Ladders задаёт лестницы доступа в строках зон.
type DefaultAdapter struct {
	Ladders []config.LadderConfig
}

var _ Adapter = DefaultAdapter{}

// ZoneRows возвращает строки зон в исходном порядке
func (a DefaultAdapter) ZoneRows(zones []models.ZoneSummary) []ZoneRow {
	rows := make([]ZoneRow, 0, len(zones))
	for _, z := range zones {
		row := ZoneRow{
			ID:             z.ID,
			Name:           z.Zone,
			SafeAccess:     floatPtr(z.SafeAccess),
			WaterSafelyPct: floatPtr(z.WaterSafelyPct),
			SewerSafelyPct: floatPtr(z.SewerSafelyPct),
			WaterYear:      intPtr(z.WaterYear),
			SewerYear:      intPtr(z.SewerYear),
			Band:           Band(z.SafeAccess),
		}
		if z.Country.Valid {
			country := z.Country.String
			row.Country = &country
		}
		for _, lc := range a.Ladders {
			ladder := Ladder{Name: lc.Name, Steps: make([]LadderStep, 0, len(lc.Levels))}
			for _, level := range lc.Levels {
				ladder.Steps = append(ladder.Steps, LadderStep{
					Label:  level.Label,
					Column: level.Column,
					Value:  floatPtr(ZoneMetric(z, level.Column)),
				})
			}
			row.Ladders = append(row.Ladders, ladder)
		}
		rows = append(rows, row)
	}
	return rows
}

// PeriodSeries возвращает по ряду на каждый показатель, показатели по алфавиту
func (DefaultAdapter) PeriodSeries(aggs []models.TimePeriodAggregate) []Series {
	names := make(map[string]bool)
	for _, agg := range aggs {
		for name := range agg.Metrics {
			names[name] = true
		}
	}

	metrics := make([]string, 0, len(names))
	for name := range names {
		metrics = append(metrics, name)
	}
	sort.Strings(metrics)

	series := make([]Series, 0, len(metrics))
	for _, metric := range metrics {
		s := Series{Metric: metric, Points: make([]Point, 0, len(aggs))}
		for _, agg := range aggs {
			s.Points = append(s.Points, Point{
				Period: agg.Period.String(),
				Value:  floatPtr(agg.Metric(metric)),
			})
		}
		series = append(series, s)
	}
	return series
}

// YearlySeries возвращает по ряду на пару (показатель, источник) в порядке первого
// появления. Label ряда - имя источника, период - год.
func (DefaultAdapter) YearlySeries(aggs []models.YearlyAggregate) []Series {
	index := make(map[string]int)
	var series []Series
	for _, agg := range aggs {
		key := agg.Metric + "/" + agg.Source
		i, ok := index[key]
		if !ok {
			i = len(series)
			index[key] = i
			series = append(series, Series{Metric: agg.Metric, Label: agg.Source})
		}
		series[i].Points = append(series[i].Points, Point{
			Period: strconv.Itoa(agg.Year),
			Value:  floatPtr(agg.Value),
		})
	}
	return series
}

// MapLayer возвращает значения показателя и категории по идентификатору зоны
func (DefaultAdapter) MapLayer(metric string, zones []models.ZoneSummary) MapLayer {
	if metric == "" {
		metric = MetricSafeAccess
	}

	layer := MapLayer{
		Metric: metric,
		Values: make(map[string]*float64, len(zones)),
		Bands:  make(map[string]string, len(zones)),
	}
	for _, z := range zones {
		v := ZoneMetric(z, metric)
		layer.Values[z.ID] = floatPtr(v)
		layer.Bands[z.ID] = Band(v)
	}
	return layer
}

// ZoneMetric возвращает показатель зоны по имени
func ZoneMetric(z models.ZoneSummary, metric string) sql.NullFloat64 {
	switch metric {
	case MetricSafeAccess:
		return z.SafeAccess
	case MetricWaterPct:
		return z.WaterSafelyPct
	case MetricSewerPct:
		return z.SewerSafelyPct
	default:
		return z.Values[metric]
	}
}

// Band относит значение к категории карты
func Band(v sql.NullFloat64) string {
	switch {
	case !v.Valid:
		return BandNoData
	case v.Float64 >= 80:
		return BandGood
	case v.Float64 >= 60:
		return BandFair
	default:
		return BandPoor
	}
}

// ForecastSeries превращает прогноз в ряд с границами доверительного интервала
func ForecastSeries(metric string, points []linear_regression.ForecastPoint) Series {
	s := Series{Metric: metric, Label: "forecast", Points: make([]Point, 0, len(points))}
	for _, fp := range points {
		value, lower, upper := fp.ForecastValue, fp.CILower, fp.CIUpper
		s.Points = append(s.Points, Point{
			Period: fp.Period.String(),
			Value:  &value,
			Lower:  &lower,
			Upper:  &upper,
		})
	}
	return s
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}
