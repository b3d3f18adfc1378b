package linear_regression

import (
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
)

// DataPoint представляет точку помесячного ряда показателя
type DataPoint struct {
	X      float64       // Номер месяца относительно начала ряда
	Y      float64       // Значение показателя за месяц
	Period models.Period // Фактический месяц
}

// RegressionResult содержит результаты линейной регрессии
type RegressionResult struct {
	Metric      string        // Показатель, по которому построен тренд
	A           float64       // Коэффициент наклона (изменение за месяц)
	B           float64       // Сдвиг
	R           float64       // Коэффициент корреляции Пирсона
	R2          float64       // Коэффициент детерминации
	PeriodStart models.Period // Первый месяц ряда
	PeriodEnd   models.Period // Последний месяц ряда
	DataPoints  []DataPoint   // Исходные точки данных
}

// ForecastPoint представляет точку прогноза
type ForecastPoint struct {
	Period        models.Period // Прогнозируемый месяц
	ForecastValue float64       // Прогнозируемое значение
	CILower       float64       // Нижняя граница доверительного интервала
	CIUpper       float64       // Верхняя граница доверительного интервала
}

// PredictionRepository интерфейс для работы с хранилищем прогнозов
type PredictionRepository interface {
	// EnsureTableExists создает таблицу прогнозов при необходимости
	EnsureTableExists() error

	// SaveMultiplePredictions заменяет прогнозы показателя новыми
	SaveMultiplePredictions(result RegressionResult, forecasts []ForecastPoint) error

	// GetForecasts получает сохранённые прогнозы показателя
	GetForecasts(metric string) ([]ForecastPoint, error)

	// GetLastRegressionResult получает последний результат регрессии по показателю
	GetLastRegressionResult(metric string) (*RegressionResult, error)

	// DeleteOldPredictions удаляет устаревшие прогнозы
	DeleteOldPredictions(olderThan time.Time) error
}
