package linear_regression

import (
	"errors"
	"fmt"
	"math"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
)

// ErrNotEnoughData - в ряду меньше двух значений
var ErrNotEnoughData = errors.New("недостаточно данных для построения тренда")

// RoundToThousandth округляет число до тысячных (3 знака после запятой)
func RoundToThousandth(value float64) float64 {
	return math.Round(value*1000) / 1000
}

// LinearRegression выполняет расчет линейной регрессии методом наименьших квадратов
func LinearRegression(points []DataPoint) (*RegressionResult, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: требуется минимум 2 точки, получено: %d", ErrNotEnoughData, len(points))
	}

	start, end := points[0].Period, points[0].Period
	for _, p := range points {
		if p.Period.Before(start) {
			start = p.Period
		}
		if end.Before(p.Period) {
			end = p.Period
		}
	}

	// a = (n*sum(x*y) - sum(x)*sum(y)) / (n*sum(x^2) - (sum(x))^2)
	// b = (sum(y) - a*sum(x)) / n
	n := float64(len(points))
	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumX2 += p.X * p.X
		sumY2 += p.Y * p.Y
	}

	denominator := n*sumX2 - sumX*sumX
	if math.Abs(denominator) < 1e-10 {
		return nil, fmt.Errorf("все X одинаковы, невозможно вычислить наклон")
	}

	a := (n*sumXY - sumX*sumY) / denominator
	b := (sumY - a*sumX) / n

	// Коэффициент корреляции Пирсона
	numerator := n*sumXY - sumX*sumY
	spread := math.Sqrt(denominator * (n*sumY2 - sumY*sumY))

	var r float64
	if spread > 1e-10 {
		r = numerator / spread
	}

	return &RegressionResult{
		A:           RoundToThousandth(a),
		B:           RoundToThousandth(b),
		R:           RoundToThousandth(r),
		R2:          RoundToThousandth(r * r),
		PeriodStart: start,
		PeriodEnd:   end,
		DataPoints:  points,
	}, nil
}

// Predict прогнозирует значение Y для заданного X
func Predict(result *RegressionResult, x float64) float64 {
	return RoundToThousandth(result.A*x + result.B)
}

// tStatistic возвращает приближённое значение t-статистики для уровня доверия
func tStatistic(confidenceLevel float64) float64 {
	switch {
	case confidenceLevel >= 0.99:
		return 2.58
	case confidenceLevel <= 0.90:
		return 1.64
	default:
		return 2.0
	}
}

// CalculateConfidenceInterval вычисляет доверительный интервал прогноза в точке x.
// Для двух точек остатков нет, и интервал вырождается в сам прогноз.
func CalculateConfidenceInterval(result *RegressionResult, x float64, confidenceLevel float64) (float64, float64) {
	yPred := Predict(result, x)

	n := float64(len(result.DataPoints))
	if n < 3 {
		return yPred, yPred
	}

	meanX := 0.0
	for _, p := range result.DataPoints {
		meanX += p.X
	}
	meanX /= n

	sumSqDevX := 0.0
	sumSqResiduals := 0.0
	for _, p := range result.DataPoints {
		predY := Predict(result, p.X)
		sumSqDevX += (p.X - meanX) * (p.X - meanX)
		sumSqResiduals += (p.Y - predY) * (p.Y - predY)
	}

	standardError := math.Sqrt(sumSqResiduals / (n - 2))
	predictionStdError := standardError * math.Sqrt(1+1/n+(x-meanX)*(x-meanX)/sumSqDevX)
	margin := tStatistic(confidenceLevel) * predictionStdError

	return RoundToThousandth(yPred - margin), RoundToThousandth(yPred + margin)
}

// GenerateForecasts строит прогноз на указанное число месяцев после конца ряда
func GenerateForecasts(result *RegressionResult, periodsAhead int, confidenceLevel float64) []ForecastPoint {
	if periodsAhead <= 0 {
		return nil
	}

	maxX := 0.0
	for _, p := range result.DataPoints {
		if p.X > maxX {
			maxX = p.X
		}
	}

	forecasts := make([]ForecastPoint, periodsAhead)
	for i := 0; i < periodsAhead; i++ {
		x := maxX + float64(i+1)
		lower, upper := CalculateConfidenceInterval(result, x, confidenceLevel)

		forecasts[i] = ForecastPoint{
			Period:        result.PeriodEnd.AddMonths(i + 1),
			ForecastValue: Predict(result, x),
			CILower:       lower,
			CIUpper:       upper,
		}
	}

	return forecasts
}

// PointsFromAggregates собирает ряд показателя из помесячных агрегатов.
// X - число месяцев от первого месяца с заданным значением, пропуски не попадают в ряд.
func PointsFromAggregates(aggs []models.TimePeriodAggregate, metric string) []DataPoint {
	var points []DataPoint
	base := -1
	for _, agg := range aggs {
		v := agg.Metric(metric)
		if !v.Valid {
			continue
		}
		if base == -1 {
			base = agg.Period.Index()
		}
		points = append(points, DataPoint{
			X:      float64(agg.Period.Index() - base),
			Y:      v.Float64,
			Period: agg.Period,
		})
	}
	return points
}

// Forecast строит тренд показателя по помесячным агрегатам и прогноз на periods месяцев
func Forecast(aggs []models.TimePeriodAggregate, metric string, periods int, confidenceLevel float64) (*RegressionResult, []ForecastPoint, error) {
	points := PointsFromAggregates(aggs, metric)

	result, err := LinearRegression(points)
	if err != nil {
		return nil, nil, fmt.Errorf("показатель %s: %w", metric, err)
	}
	result.Metric = metric

	return result, GenerateForecasts(result, periods, confidenceLevel), nil
}
