package models

import (
	"time"
)

// ExtractedData содержит сырые таблицы, прочитанные из файлов источников
type ExtractedData struct {
	Tables map[string]RawTable

	// Необязательные источники, файлы которых не найдены
	Missing map[string]error

	// Источники, подменённые демонстрационными данными
	SampleSources []string

	LastRunTS time.Time
}

// TransformedData содержит результат фазы Transform для одного набора фильтров
type TransformedData struct {
	Filter FilterParams

	// Нормализованные таблицы по имени источника
	Tables map[string]NormalizedTable

	// Последние срезы (вода, канализация)
	WaterSnapshot SnapshotTable
	SewerSnapshot SnapshotTable

	// Сводка по зонам после сверки
	Zones []ZoneSummary

	// Агрегаты по месяцам
	Periods []TimePeriodAggregate

	// Средние по годам (например, муниципальное покрытие по источникам)
	Yearly []YearlyAggregate

	// Некритичные проблемы с данными (нет колонок, нет необязательного файла)
	Warnings []string

	Metadata ETLMetadata
}

// ETLMetadata содержит метаданные о запуске конвейера
type ETLMetadata struct {
	LastRunTimestamp  time.Time
	FilesRead         int
	RowsNormalized    int
	InvalidValues     int
	ZonesReconciled   int
	PeriodsAggregated int
}
