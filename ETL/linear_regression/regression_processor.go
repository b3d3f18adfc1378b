package linear_regression

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
)

// Config конфигурация процессора линейной регрессии
type Config struct {
	// Показатель, по которому строится тренд
	Metric string
	// Количество месяцев для анализа
	AnalysisPeriods int
	// Количество месяцев для прогноза
	ForecastPeriods int
	// Уровень доверия (0.90, 0.95, 0.99)
	ConfidenceLevel float64
	// Минимальное значение r² для признания модели значимой
	MinR2Threshold float64
	// Срок хранения прогнозов
	Retention time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Metric:          "quality_rate",
		AnalysisPeriods: 24,
		ForecastPeriods: 6,
		ConfidenceLevel: 0.95,
		MinR2Threshold:  0.30, // 30% объяснённой вариации
		Retention:       90 * 24 * time.Hour,
	}
}

// ConfigFromForecast переносит настройки прогноза дашборда в конфигурацию процессора
func ConfigFromForecast(fc config.ForecastConfig) Config {
	cfg := DefaultConfig()
	if fc.Metric != "" {
		cfg.Metric = fc.Metric
	}
	if fc.Periods > 0 {
		cfg.ForecastPeriods = fc.Periods
	}
	if fc.ConfidenceLevel > 0 {
		cfg.ConfidenceLevel = fc.ConfidenceLevel
	}
	if fc.MinR2Threshold > 0 {
		cfg.MinR2Threshold = fc.MinR2Threshold
	}
	return cfg
}

// RegressionProcessor процессор линейной регрессии
type RegressionProcessor struct {
	dataService *DataService
	repository  PredictionRepository
	logger      *utils.ETLLogger
	config      Config
}

// NewRegressionProcessor создает новый процессор линейной регрессии
func NewRegressionProcessor(
	dataService *DataService,
	repository PredictionRepository,
	logger *utils.ETLLogger,
	config Config,
) *RegressionProcessor {
	return &RegressionProcessor{
		dataService: dataService,
		repository:  repository,
		logger:      logger,
		config:      config,
	}
}

// Process строит тренд по данным OLAP базы и сохраняет прогноз
func (p *RegressionProcessor) Process() error {
	startTime := time.Now()
	p.logger.Info("Запуск процесса линейной регрессии для показателя %s", p.config.Metric)

	// 1. Убеждаемся, что таблица существует
	if err := p.repository.EnsureTableExists(); err != nil {
		return fmt.Errorf("ошибка при проверке/создании таблицы: %w", err)
	}

	// 2. Получаем данные для анализа
	p.logger.Info("Получение ряда показателя за последние %d месяцев", p.config.AnalysisPeriods)
	dataPoints, err := p.dataService.GetPeriodMetricData(p.config.Metric, p.config.AnalysisPeriods)
	if err != nil {
		return fmt.Errorf("ошибка при получении данных: %w", err)
	}
	p.logger.Info("Получено %d точек данных для анализа", len(dataPoints))

	// 3. Строим модель
	regressionResult, err := LinearRegression(dataPoints)
	if err != nil {
		return fmt.Errorf("ошибка при построении модели линейной регрессии: %w", err)
	}
	regressionResult.Metric = p.config.Metric

	p.logger.Info("Результаты модели: коэффициент наклона (a)=%.3f, сдвиг (b)=%.3f, R=%.3f, R²=%.3f",
		regressionResult.A, regressionResult.B, regressionResult.R, regressionResult.R2)
	p.logger.Info("Период анализа: с %s по %s", regressionResult.PeriodStart, regressionResult.PeriodEnd)

	if regressionResult.R2 < p.config.MinR2Threshold {
		p.logger.Warn("Низкое качество модели (R²=%.3f < %.3f). Однако прогноз будет сделан.",
			regressionResult.R2, p.config.MinR2Threshold)
	}

	// 4. Генерируем и сохраняем прогнозы
	forecasts := GenerateForecasts(regressionResult, p.config.ForecastPeriods, p.config.ConfidenceLevel)
	p.logger.Info("Сохранение %d прогнозов в базу данных", len(forecasts))
	if err := p.repository.SaveMultiplePredictions(*regressionResult, forecasts); err != nil {
		return fmt.Errorf("ошибка при сохранении прогнозов: %w", err)
	}

	// 5. Удаляем устаревшие прогнозы
	if err := p.repository.DeleteOldPredictions(time.Now().Add(-p.config.Retention)); err != nil {
		p.logger.Warn("Не удалось удалить устаревшие прогнозы: %v", err)
	}

	p.logger.Info("Процесс линейной регрессии успешно завершен. Время выполнения: %v", time.Since(startTime))
	return nil
}

// RunWithCustomConfig запускает процесс с пользовательской конфигурацией
func RunWithCustomConfig(olapDB *sql.DB, logger *utils.ETLLogger, config Config) error {
	log.Printf("Запуск процесса линейной регрессии для показателя %s", config.Metric)

	processor := NewRegressionProcessor(NewDataService(olapDB), NewSQLPredictionRepository(olapDB), logger, config)
	return processor.Process()
}
