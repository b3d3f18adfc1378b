package presentation

import (
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/models"
)

// Состояние данных дашборда
const (
	StateOK      = "ok"
	StatePartial = "partial"
	StateEmpty   = "empty"
	StateError   = "error"
)

// Card - карточка KPI с последним значением и целевым уровнем
type Card struct {
	Metric        string   `json:"metric"`
	Label         string   `json:"label"`
	Value         *float64 `json:"value"`
	Period        string   `json:"period,omitempty"`
	Delta         *float64 `json:"delta"`
	Target        float64  `json:"target"`
	LowerIsBetter bool     `json:"lower_is_better"`
	MeetsTarget   *bool    `json:"meets_target"`
}

// Dashboard - полный результат одного рендера
type Dashboard struct {
	State       string              `json:"state"`
	Filter      models.FilterParams `json:"filter"`
	GeneratedAt time.Time           `json:"generated_at"`
	Zones       []ZoneRow           `json:"zones"`
	Map         MapLayer            `json:"map"`
	Series      []Series            `json:"series"`
	Yearly      []Series            `json:"yearly"`
	Forecast    *Series             `json:"forecast,omitempty"`
	Cards       []Card              `json:"cards"`
	Warnings    []string            `json:"warnings"`
}

// Build собирает дашборд из результата преобразования адаптером без лестниц доступа
func Build(data *models.TransformedData, targets []config.TargetConfig, forecast *Series) *Dashboard {
	return BuildWith(DefaultAdapter{}, data, targets, forecast)
}

// BuildWith собирает дашборд указанным адаптером
func BuildWith(adapter Adapter, data *models.TransformedData, targets []config.TargetConfig, forecast *Series) *Dashboard {
	d := &Dashboard{
		Filter:      data.Filter,
		GeneratedAt: time.Now().UTC(),
		Zones:       adapter.ZoneRows(data.Zones),
		Map:         adapter.MapLayer(MetricSafeAccess, data.Zones),
		Series:      adapter.PeriodSeries(data.Periods),
		Yearly:      adapter.YearlySeries(data.Yearly),
		Forecast:    forecast,
		Warnings:    append([]string{}, data.Warnings...),
	}

	d.Cards = make([]Card, 0, len(targets))
	for _, target := range targets {
		d.Cards = append(d.Cards, buildCard(target, data))
	}

	switch {
	case len(data.Zones) == 0 && len(data.Periods) == 0:
		d.State = StateEmpty
	case len(data.Warnings) > 0:
		d.State = StatePartial
	default:
		d.State = StateOK
	}

	return d
}

func buildCard(target config.TargetConfig, data *models.TransformedData) Card {
	card := Card{
		Metric:        target.Metric,
		Label:         target.Label,
		Target:        target.Target,
		LowerIsBetter: target.LowerIsBetter,
	}
	if card.Label == "" {
		card.Label = target.Metric
	}

	if zoneMetric(target.Metric) {
		card.Value = zoneMean(data.Zones, target.Metric)
	} else {
		var latest, previous *float64
		for i := len(data.Periods) - 1; i >= 0; i-- {
			v := floatPtr(data.Periods[i].Metric(target.Metric))
			if v == nil {
				continue
			}
			if latest == nil {
				latest = v
				card.Period = data.Periods[i].Period.String()
				continue
			}
			previous = v
			break
		}
		card.Value = latest
		if latest != nil && previous != nil {
			delta := *latest - *previous
			card.Delta = &delta
		}
	}

	if card.Value != nil {
		meets := *card.Value >= target.Target
		if target.LowerIsBetter {
			meets = *card.Value <= target.Target
		}
		card.MeetsTarget = &meets
	}

	return card
}

func zoneMetric(metric string) bool {
	return metric == MetricSafeAccess || metric == MetricWaterPct || metric == MetricSewerPct
}

// zoneMean - среднее показателя по зонам без учёта пропусков
func zoneMean(zones []models.ZoneSummary, metric string) *float64 {
	var sum float64
	n := 0
	for _, z := range zones {
		if v := ZoneMetric(z, metric); v.Valid {
			sum += v.Float64
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}
