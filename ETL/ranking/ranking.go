// Package ranking строит рейтинги зон по показателям сводки.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/presentation"
)

// RoundToThousandth округляет число до тысячных (3 знака после запятой)
func RoundToThousandth(value float64) float64 {
	return math.Round(value*1000) / 1000
}

// RankZones строит рейтинг зон по показателю. Зоны без значения в рейтинг не попадают.
// Равные значения делят место (1, 2, 2, 4), порядок внутри места - по id зоны.
func RankZones(zones []models.ZoneSummary, metric string, lowerIsBetter bool, cfg Config) []ZoneRank {
	ranks := make([]ZoneRank, 0, len(zones))
	calculationTime := time.Now().UTC()

	for _, z := range zones {
		v := presentation.ZoneMetric(z, metric)
		if !v.Valid {
			continue
		}
		ranks = append(ranks, ZoneRank{
			Metric:          metric,
			ZoneID:          z.ID,
			Zone:            z.Zone,
			Country:         z.Country,
			Value:           v.Float64,
			CalculationDate: calculationTime,
		})
	}

	better := func(a, b float64) bool {
		if lowerIsBetter {
			return a < b
		}
		return a > b
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Value != ranks[j].Value {
			return better(ranks[i].Value, ranks[j].Value)
		}
		return ranks[i].ZoneID < ranks[j].ZoneID
	})

	for i := range ranks {
		if i > 0 && ranks[i].Value == ranks[i-1].Value {
			ranks[i].Position = ranks[i-1].Position
		} else {
			ranks[i].Position = i + 1
		}

		percentile := getPercentile(len(ranks), ranks[i].Position)
		ranks[i].Percentile = RoundToThousandth(percentile)

		switch {
		case percentile >= cfg.HighPercentile:
			ranks[i].Category = CategoryHigh
		case percentile >= cfg.MediumPercentile:
			ranks[i].Category = CategoryMedium
		default:
			ranks[i].Category = CategoryLow
		}
	}

	return ranks
}

// Top возвращает первые n позиций рейтинга (все, если n <= 0)
func Top(ranks []ZoneRank, n int) []ZoneRank {
	if n <= 0 || n >= len(ranks) {
		return ranks
	}
	return ranks[:n]
}

// getPercentile переводит место в процентиль от 0 до 1. Единственная зона получает 1.
func getPercentile(total, position int) float64 {
	if total <= 1 {
		return 1
	}
	return float64(total-position) / float64(total-1)
}
